package model

import "time"

// Status is the lamp state derived from a price comparison.
type Status string

const (
	StatusWaiting Status = "WAITING"
	StatusGreen   Status = "GREEN"
	StatusRed     Status = "RED"
	StatusNeutral Status = "NEUTRAL"
)

// Color is an RGB triple, each channel 0-255.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Signal is the outcome of one price check.
type Signal struct {
	Symbol       string    `json:"symbol"`
	Price        float64   `json:"price"`
	ComparePrice *float64  `json:"compare_price,omitempty"`
	Status       Status    `json:"status"`
	Change       float64   `json:"change"` // percent, 2 decimals
	Color        Color     `json:"color"`
	CheckedAt    time.Time `json:"checked_at"`
}

// LampMessage is the frame the lamp firmware parses.
type LampMessage struct {
	Price  float64 `json:"price"`
	Status Status  `json:"status"`
	Change float64 `json:"change"`
}

// Message builds the lamp frame for this signal.
func (s *Signal) Message() LampMessage {
	return LampMessage{Price: s.Price, Status: s.Status, Change: s.Change}
}
