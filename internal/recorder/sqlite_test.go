package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MoonLamp/internal/model"
)

func openTestDB(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(zerolog.Nop(), filepath.Join(t.TempDir(), "data", "moonlamp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecorder_TicksRoundTrip(t *testing.T) {
	r := openTestDB(t)
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	compare := 100.0

	for i, price := range []float64{100, 101, 99} {
		evt := &TickEvent{
			Symbol:    "ethereum",
			Source:    "mock",
			Price:     price,
			Status:    model.StatusWaiting,
			CheckedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if i > 0 {
			evt.ComparePrice = &compare
			evt.Status = model.StatusGreen
		}
		require.NoError(t, r.RecordTick(evt))
	}
	require.NoError(t, r.RecordTick(&TickEvent{Symbol: "bitcoin", Price: 60000, Status: model.StatusWaiting, CheckedAt: base}))

	points, err := r.RecentPrices("ethereum", base)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 101.0, points[0].Price)
	assert.True(t, points[0].Timestamp.Equal(base.Add(time.Minute)))
	assert.Equal(t, 99.0, points[1].Price)

	all, err := r.RecentPrices("ethereum", base.Add(-time.Second))
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLiteRecorder_Purge(t *testing.T) {
	r := openTestDB(t)
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := old.Add(10 * 24 * time.Hour)

	require.NoError(t, r.RecordTick(&TickEvent{Symbol: "ethereum", Price: 1, Status: model.StatusWaiting, CheckedAt: old}))
	require.NoError(t, r.RecordTick(&TickEvent{Symbol: "ethereum", Price: 2, Status: model.StatusWaiting, CheckedAt: recent}))
	require.NoError(t, r.RecordStatusChange(&StatusChange{Symbol: "ethereum", From: model.StatusWaiting, To: model.StatusRed, At: old}))

	n, err := r.Purge(old.Add(24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	points, err := r.RecentPrices("ethereum", old.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 2.0, points[0].Price)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordTick(&TickEvent{}))
	points, err := r.RecentPrices("x", time.Now())
	assert.NoError(t, err)
	assert.Empty(t, points)
	assert.NoError(t, r.Close())
}
