package recorder

import (
	"time"

	"MoonLamp/internal/model"
)

// TickEvent holds the outcome of one price check.
type TickEvent struct {
	Symbol       string
	Source       string
	Price        float64
	ComparePrice *float64
	Status       model.Status
	Change       float64
	CheckedAt    time.Time
}

// StatusChange records the lamp switching colour.
type StatusChange struct {
	Symbol string
	From   model.Status
	To     model.Status
	Price  float64
	Change float64
	At     time.Time
}

// Recorder persists price history for restarts and later analysis.
type Recorder interface {
	RecordTick(evt *TickEvent) error
	RecordStatusChange(evt *StatusChange) error
	RecentPrices(symbol string, since time.Time) ([]model.PricePoint, error)
	Purge(before time.Time) (int64, error)
	Close() error
}
