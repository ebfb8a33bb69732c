package device

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Header writes the firmware config.h for these settings.
func (s Settings) Header(w io.Writer) error {
	var b strings.Builder

	b.WriteString("// WiFi Configuration\n")
	fmt.Fprintf(&b, "#define WIFI_SSID %s\n", strconv.Quote(s.WiFiSSID))
	fmt.Fprintf(&b, "#define WIFI_PASSWORD %s\n", strconv.Quote(s.WiFiPassword))
	b.WriteString("\n// RGB LED Pin Configuration\n")
	fmt.Fprintf(&b, "#define RED_PIN %d\n", s.RedPin)
	fmt.Fprintf(&b, "#define GREEN_PIN %d\n", s.GreenPin)
	fmt.Fprintf(&b, "#define BLUE_PIN %d\n", s.BluePin)
	b.WriteString("\n// LED Brightness (0-255)\n")
	fmt.Fprintf(&b, "#define LED_BRIGHTNESS %d\n", s.LEDBrightness)
	b.WriteString("\n// Price Check Settings\n")
	fmt.Fprintf(&b, "#define CHECK_INTERVAL %d        // milliseconds\n", s.CheckIntervalMs)
	fmt.Fprintf(&b, "#define PRICE_HISTORY_MINUTES %d\n", s.PriceHistoryMinutes)

	_, err := io.WriteString(w, b.String())
	return err
}
