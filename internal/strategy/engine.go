package strategy

import (
	"math"
	"time"

	"MoonLamp/internal/device"
	"MoonLamp/internal/model"
)

// Palette maps each status to its full-brightness lamp colour.
var Palette = map[model.Status]model.Color{
	model.StatusGreen:   {R: 0, G: 255, B: 0},
	model.StatusRed:     {R: 255, G: 0, B: 0},
	model.StatusWaiting: {R: 0, G: 0, B: 255},
	model.StatusNeutral: {R: 255, G: 255, B: 255},
}

// Evaluate compares the current price against the historical one. The
// status follows the exact change; the returned change is rounded to 2
// decimals. A nil or zero compare price yields WAITING with no change.
func Evaluate(current float64, compare *float64) (model.Status, float64) {
	if compare == nil || *compare == 0 {
		return model.StatusWaiting, 0
	}
	change := (current - *compare) / *compare * 100
	switch {
	case change > 0:
		return model.StatusGreen, roundChange(change)
	case change < 0:
		return model.StatusRed, roundChange(change)
	default:
		return model.StatusNeutral, 0
	}
}

// NewSignal evaluates a check and fills in the lamp colour.
func NewSignal(symbol string, current float64, compare *float64, brightness device.Brightness, at time.Time) *model.Signal {
	status, change := Evaluate(current, compare)
	return &model.Signal{
		Symbol:       symbol,
		Price:        current,
		ComparePrice: compare,
		Status:       status,
		Change:       change,
		Color:        ColorFor(status, brightness),
		CheckedAt:    at,
	}
}

// ColorFor returns the status colour scaled by the lamp brightness.
func ColorFor(status model.Status, brightness device.Brightness) model.Color {
	c, ok := Palette[status]
	if !ok {
		c = Palette[model.StatusWaiting]
	}
	return model.Color{
		R: brightness.Scale(c.R),
		G: brightness.Scale(c.G),
		B: brightness.Scale(c.B),
	}
}

// roundChange rounds a percentage to 2 decimals, half away from zero.
// Negative zero is normalised so it encodes as 0.
func roundChange(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0
	}
	return r
}
