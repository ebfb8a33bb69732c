package device

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSettings is wrapped by every validation failure.
var ErrInvalidSettings = errors.New("invalid device settings")

// Placeholder credentials shipped with the firmware template.
const (
	PlaceholderSSID     = "YOUR_WIFI_NAME"
	PlaceholderPassword = "YOUR_WIFI_PASSWORD"
)

// MaxGPIO is the highest GPIO index on the ESP32.
const MaxGPIO = 39

// Settings is the lamp's configuration surface. The firmware consumes the
// same values as compile-time constants (see Header).
type Settings struct {
	WiFiSSID            string     `yaml:"wifi_ssid" json:"wifi_ssid"`
	WiFiPassword        string     `yaml:"wifi_password" json:"wifi_password"`
	RedPin              Pin        `yaml:"red_pin" json:"red_pin"`
	GreenPin            Pin        `yaml:"green_pin" json:"green_pin"`
	BluePin             Pin        `yaml:"blue_pin" json:"blue_pin"`
	LEDBrightness       Brightness `yaml:"led_brightness" json:"led_brightness"`
	CheckIntervalMs     int        `yaml:"check_interval_ms" json:"check_interval_ms"`
	PriceHistoryMinutes int        `yaml:"price_history_minutes" json:"price_history_minutes"`
}

// DefaultSettings returns the values of the stock config.h.
func DefaultSettings() Settings {
	return Settings{
		WiFiSSID:            PlaceholderSSID,
		WiFiPassword:        PlaceholderPassword,
		RedPin:              25,
		GreenPin:            26,
		BluePin:             27,
		LEDBrightness:       255,
		CheckIntervalMs:     60000,
		PriceHistoryMinutes: 5,
	}
}

// Validate checks ranges and pin assignments and returns the first violation.
func (s Settings) Validate() error {
	if s.WiFiSSID == "" {
		return fmt.Errorf("%w: wifi_ssid is required", ErrInvalidSettings)
	}
	if s.WiFiPassword == "" {
		return fmt.Errorf("%w: wifi_password is required", ErrInvalidSettings)
	}
	if _, err := NewBrightness(int(s.LEDBrightness)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}

	pins := []struct {
		name string
		pin  Pin
	}{
		{"red_pin", s.RedPin},
		{"green_pin", s.GreenPin},
		{"blue_pin", s.BluePin},
	}
	seen := make(map[Pin]string, len(pins))
	for _, p := range pins {
		if _, err := NewPin(int(p.pin)); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidSettings, p.name, err)
		}
		if other, ok := seen[p.pin]; ok {
			return fmt.Errorf("%w: %s and %s share GPIO %d", ErrInvalidSettings, other, p.name, p.pin)
		}
		seen[p.pin] = p.name
	}

	if s.CheckIntervalMs <= 0 {
		return fmt.Errorf("%w: check_interval_ms must be positive", ErrInvalidSettings)
	}
	if s.PriceHistoryMinutes <= 0 {
		return fmt.Errorf("%w: price_history_minutes must be positive", ErrInvalidSettings)
	}
	return nil
}

// Placeholders lists the options still holding template credentials.
func (s Settings) Placeholders() []string {
	var names []string
	if s.WiFiSSID == PlaceholderSSID {
		names = append(names, "wifi_ssid")
	}
	if s.WiFiPassword == PlaceholderPassword {
		names = append(names, "wifi_password")
	}
	return names
}

// CheckInterval returns the polling period.
func (s Settings) CheckInterval() time.Duration {
	return time.Duration(s.CheckIntervalMs) * time.Millisecond
}

// HistoryWindow returns the comparison lookback.
func (s Settings) HistoryWindow() time.Duration {
	return time.Duration(s.PriceHistoryMinutes) * time.Minute
}

// Redacted returns a copy safe to expose over the API or in logs.
func (s Settings) Redacted() Settings {
	if s.WiFiPassword != "" {
		s.WiFiPassword = "********"
	}
	return s
}
