package recorder

import (
	"time"

	"MoonLamp/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordTick(_ *TickEvent) error            { return nil }
func (n *NoopRecorder) RecordStatusChange(_ *StatusChange) error { return nil }
func (n *NoopRecorder) RecentPrices(_ string, _ time.Time) ([]model.PricePoint, error) {
	return nil, nil
}
func (n *NoopRecorder) Purge(_ time.Time) (int64, error) { return 0, nil }
func (n *NoopRecorder) Close() error                     { return nil }
