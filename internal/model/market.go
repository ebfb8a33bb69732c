package model

import "time"

// PricePoint is a single observed price.
type PricePoint struct {
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// Quote is a price as returned by a data source, before it enters the history.
type Quote struct {
	Symbol    string
	Source    string
	Price     float64
	FetchedAt time.Time
}

// Point converts the quote to a history sample.
func (q Quote) Point() PricePoint {
	return PricePoint{Price: q.Price, Timestamp: q.FetchedAt}
}
