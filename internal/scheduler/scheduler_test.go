package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MoonLamp/internal/collector"
	"MoonLamp/internal/device"
	"MoonLamp/internal/history"
	"MoonLamp/internal/model"
	"MoonLamp/internal/recorder"
)

type stubLamp struct {
	mu   sync.Mutex
	sent []model.LampMessage
	err  error
}

func (l *stubLamp) Name() string { return "stub" }
func (l *stubLamp) Send(_ context.Context, m model.LampMessage) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, m)
	return l.err
}
func (l *stubLamp) Close() error { return nil }

type stubNotifier struct {
	msgs []string
}

func (n *stubNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	n.msgs = append(n.msgs, text)
	return nil
}

type memRecorder struct {
	recorder.NoopRecorder
	ticks   []*recorder.TickEvent
	changes []*recorder.StatusChange
	recent  []model.PricePoint
	since   time.Time
	purged  time.Time
}

func (m *memRecorder) RecordTick(e *recorder.TickEvent) error {
	m.ticks = append(m.ticks, e)
	return nil
}

func (m *memRecorder) RecordStatusChange(e *recorder.StatusChange) error {
	m.changes = append(m.changes, e)
	return nil
}

func (m *memRecorder) RecentPrices(_ string, since time.Time) ([]model.PricePoint, error) {
	m.since = since
	return m.recent, nil
}

func (m *memRecorder) Purge(before time.Time) (int64, error) {
	m.purged = before
	return 3, nil
}

type fixture struct {
	s     *Scheduler
	lamp  *stubLamp
	notif *stubNotifier
	rec   *memRecorder
	start time.Time
}

func newFixture(fetcher collector.Fetcher) *fixture {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	col := collector.NewCollector(fetcher, "ethereum")
	tick := 0
	col.Now = func() time.Time {
		t := start.Add(time.Duration(tick) * time.Minute)
		tick++
		return t
	}

	f := &fixture{lamp: &stubLamp{}, notif: &stubNotifier{}, rec: &memRecorder{}, start: start}
	f.s = NewScheduler(context.Background(), zerolog.Nop(), Deps{
		Collector:        col,
		History:          history.New(20 * time.Minute),
		Lamp:             f.lamp,
		Recorder:         f.rec,
		Notifier:         f.notif,
		Settings:         device.DefaultSettings(),
		StorageRetention: 7 * 24 * time.Hour,
	})
	f.s.Now = func() time.Time { return start }
	return f
}

func TestCheckTask_StatusSequence(t *testing.T) {
	f := newFixture(&collector.MockFetcher{Prices: []float64{100, 101, 99, 99}})

	for i := 0; i < 4; i++ {
		f.s.RunNow()
	}

	require.Len(t, f.lamp.sent, 4)
	assert.Equal(t, model.LampMessage{Price: 100, Status: model.StatusWaiting, Change: 0}, f.lamp.sent[0])
	assert.Equal(t, model.LampMessage{Price: 101, Status: model.StatusGreen, Change: 1}, f.lamp.sent[1])
	assert.Equal(t, model.LampMessage{Price: 99, Status: model.StatusRed, Change: -1}, f.lamp.sent[2])
	assert.Equal(t, model.StatusRed, f.lamp.sent[3].Status)

	assert.Len(t, f.rec.ticks, 4)
	require.Len(t, f.rec.changes, 2)
	assert.Equal(t, model.StatusWaiting, f.rec.changes[0].From)
	assert.Equal(t, model.StatusGreen, f.rec.changes[0].To)
	assert.Equal(t, model.StatusRed, f.rec.changes[1].To)

	require.Len(t, f.notif.msgs, 2)
	assert.Contains(t, f.notif.msgs[1], "GREEN → RED")

	sig, ok := f.s.Latest()
	require.True(t, ok)
	assert.Equal(t, 99.0, sig.Price)
	require.NotNil(t, sig.ComparePrice)
	assert.Equal(t, 100.0, *sig.ComparePrice)
	assert.Len(t, f.s.Points(), 4)
}

func TestCheckTask_FetchFailure(t *testing.T) {
	f := newFixture(&collector.MockFetcher{Err: errors.New("timeout")})
	f.s.RunNow()

	assert.Empty(t, f.lamp.sent)
	assert.Empty(t, f.rec.ticks)
	_, ok := f.s.Latest()
	assert.False(t, ok)
}

func TestCheckTask_LampErrorDoesNotStopRecording(t *testing.T) {
	f := newFixture(&collector.MockFetcher{Prices: []float64{100}})
	f.lamp.err = errors.New("port closed")
	f.s.RunNow()

	assert.Len(t, f.rec.ticks, 1)
	_, ok := f.s.Latest()
	assert.True(t, ok)
}

func TestWarmUp(t *testing.T) {
	f := newFixture(&collector.MockFetcher{Prices: []float64{110}})
	f.rec.recent = []model.PricePoint{
		{Price: 100, Timestamp: f.start.Add(-6 * time.Minute)},
		{Price: 105, Timestamp: f.start.Add(-1 * time.Minute)},
	}
	require.NoError(t, f.s.WarmUp())
	assert.Equal(t, f.start.Add(-20*time.Minute), f.rec.since)
	assert.Equal(t, 2, f.s.History.Len())

	f.s.RunNow()
	sig, ok := f.s.Latest()
	require.True(t, ok)
	assert.Equal(t, model.StatusGreen, sig.Status)
	assert.Equal(t, 10.0, sig.Change)
}

func TestPurgeTask(t *testing.T) {
	f := newFixture(&collector.MockFetcher{Prices: []float64{1}})
	f.s.purgeTask()
	assert.Equal(t, f.start.Add(-7*24*time.Hour), f.rec.purged)
}

func TestRegisterAll(t *testing.T) {
	f := newFixture(&collector.MockFetcher{Prices: []float64{1}})
	require.NoError(t, f.s.RegisterAll("0 0 3 * * *"))
	assert.Len(t, f.s.Cron.Entries(), 2)

	f = newFixture(&collector.MockFetcher{Prices: []float64{1}})
	assert.Error(t, f.s.RegisterAll("not a cron"))
}

func TestHandleCommand(t *testing.T) {
	f := newFixture(&collector.MockFetcher{Prices: []float64{3000}})
	assert.Equal(t, "No price check completed yet.", f.s.HandleCommand("/price"))
	assert.Equal(t, "No price history yet.", f.s.HandleCommand("/history"))

	f.s.RunNow()
	assert.Contains(t, f.s.HandleCommand("/price"), "Current ETH Price: $3,000.00")
	assert.Contains(t, f.s.HandleCommand("/history"), "1 samples")
	assert.Contains(t, f.s.HandleCommand("/device"), "Pins R/G/B: 25/26/27")
	assert.Contains(t, f.s.HandleCommand("hello"), "/price")
}

func TestHandleCommand_CheckReplies(t *testing.T) {
	f := newFixture(&collector.MockFetcher{Prices: []float64{3000}})
	f.s.RunNow()
	f.s.RunNow()
	notified := len(f.notif.msgs)

	reply := f.s.HandleCommand("/check")
	assert.Contains(t, reply, "Current ETH Price: $3,000.00")
	assert.Contains(t, reply, "NEUTRAL")
	assert.Len(t, f.notif.msgs, notified)
	assert.Len(t, f.lamp.sent, 3)
}

func TestHandleCommand_CheckReportsFailure(t *testing.T) {
	f := newFixture(&collector.MockFetcher{Err: errors.New("rate <limited>")})
	reply := f.s.HandleCommand("/check")
	assert.Contains(t, reply, "Price check failed")
	assert.Contains(t, reply, "rate &lt;limited&gt;")
	assert.Empty(t, f.lamp.sent)
}
