package notifier

import (
	"fmt"
	"html"
	"strings"

	"github.com/dustin/go-humanize"

	"MoonLamp/internal/device"
	"MoonLamp/internal/model"
)

var tickers = map[string]string{
	"ethereum": "ETH",
	"bitcoin":  "BTC",
	"solana":   "SOL",
}

// Ticker returns a short display name for a data source symbol.
func Ticker(symbol string) string {
	if t, ok := tickers[strings.ToLower(symbol)]; ok {
		return t
	}
	return strings.ToUpper(symbol)
}

// Money formats a price as $1,234.56.
func Money(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

// StatusLine describes the lamp state for the console.
func StatusLine(sig *model.Signal) string {
	switch sig.Status {
	case model.StatusWaiting:
		return "Status: 🔵 BLUE - Building price history..."
	case model.StatusGreen:
		return fmt.Sprintf("Status: 🟢 GREEN - UP %.2f%%", sig.Change)
	case model.StatusRed:
		return fmt.Sprintf("Status: 🔴 RED - DOWN %.2f%%", sig.Change)
	default:
		return "Status: ⚪ NEUTRAL - No change"
	}
}

// FormatTick returns the console lines for one check.
func FormatTick(sig *model.Signal, historyMinutes int) []string {
	lines := []string{
		fmt.Sprintf("[%s] Current %s Price: %s", sig.CheckedAt.Format("15:04:05"), Ticker(sig.Symbol), Money(sig.Price)),
	}
	if sig.ComparePrice != nil {
		lines = append(lines, fmt.Sprintf("Price %d min ago: %s", historyMinutes, Money(*sig.ComparePrice)))
	}
	return append(lines, StatusLine(sig))
}

var statusEmoji = map[model.Status]string{
	model.StatusWaiting: "🔵",
	model.StatusGreen:   "🟢",
	model.StatusRed:     "🔴",
	model.StatusNeutral: "⚪",
}

// FormatStatusChange formats a lamp colour change for Telegram. Text from
// configuration is HTML-escaped since messages use parse_mode HTML.
func FormatStatusChange(sig *model.Signal, from model.Status, historyMinutes int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>MoonLamp</b> | %s %s → %s\n\n",
		statusEmoji[sig.Status], html.EscapeString(Ticker(sig.Symbol)), from, sig.Status))
	b.WriteString(fmt.Sprintf("Current price: %s\n", Money(sig.Price)))
	if sig.ComparePrice != nil {
		b.WriteString(fmt.Sprintf("%d min ago: %s\n", historyMinutes, Money(*sig.ComparePrice)))
	}
	b.WriteString(fmt.Sprintf("Change: %+.2f%%\n", sig.Change))
	b.WriteString(fmt.Sprintf("Time: %s", sig.CheckedAt.Format("2006-01-02 15:04:05")))
	return b.String()
}

// FormatHistory lists the samples in the window, newest last.
func FormatHistory(symbol string, points []model.PricePoint) string {
	if len(points) == 0 {
		return "No price history yet."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>%s history</b> (%d samples)\n\n", html.EscapeString(Ticker(symbol)), len(points)))
	for _, p := range points {
		b.WriteString(fmt.Sprintf("%s  %s\n", p.Timestamp.Format("15:04:05"), Money(p.Price)))
	}
	return b.String()
}

// FormatDevice shows the lamp settings with the password redacted.
func FormatDevice(s device.Settings) string {
	r := s.Redacted()
	var b strings.Builder
	b.WriteString("💡 <b>Lamp settings</b>\n\n")
	b.WriteString(fmt.Sprintf("WiFi: %s (%s)\n", html.EscapeString(r.WiFiSSID), r.WiFiPassword))
	b.WriteString(fmt.Sprintf("Pins R/G/B: %d/%d/%d\n", r.RedPin, r.GreenPin, r.BluePin))
	b.WriteString(fmt.Sprintf("Brightness: %d/255\n", r.LEDBrightness))
	b.WriteString(fmt.Sprintf("Check interval: %v\n", r.CheckInterval()))
	b.WriteString(fmt.Sprintf("Compare window: %d min\n", r.PriceHistoryMinutes))
	if p := s.Placeholders(); len(p) > 0 {
		b.WriteString(fmt.Sprintf("⚠️ placeholder values: %s\n", strings.Join(p, ", ")))
	}
	return b.String()
}
