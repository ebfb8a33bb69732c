package scheduler

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"MoonLamp/internal/collector"
	"MoonLamp/internal/device"
	"MoonLamp/internal/history"
	"MoonLamp/internal/lamp"
	"MoonLamp/internal/model"
	"MoonLamp/internal/notifier"
	"MoonLamp/internal/recorder"
	"MoonLamp/internal/strategy"
)

// Deps are the components a Scheduler drives.
type Deps struct {
	Collector        *collector.Collector
	History          *history.History
	Lamp             lamp.Lamp
	Recorder         recorder.Recorder
	Notifier         notifier.Notifier
	Settings         device.Settings
	StorageRetention time.Duration
}

// Scheduler runs the price check loop and housekeeping tasks.
type Scheduler struct {
	Cron             *cron.Cron
	Collector        *collector.Collector
	History          *history.History
	Lamp             lamp.Lamp
	Recorder         recorder.Recorder
	Notifier         notifier.Notifier
	Settings         device.Settings
	StorageRetention time.Duration
	Ctx              context.Context
	Now              func() time.Time

	logger zerolog.Logger

	checkMu sync.Mutex

	mu         sync.RWMutex
	latest     *model.Signal
	lastStatus model.Status
}

// NewScheduler creates a new Scheduler. Overlapping checks are skipped.
func NewScheduler(ctx context.Context, logger zerolog.Logger, deps Deps) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		Collector:        deps.Collector,
		History:          deps.History,
		Lamp:             deps.Lamp,
		Recorder:         deps.Recorder,
		Notifier:         deps.Notifier,
		Settings:         deps.Settings,
		StorageRetention: deps.StorageRetention,
		Ctx:              ctx,
		Now:              time.Now,
		logger:           logger,
	}
}

// RegisterAll registers the price check and the storage purge.
func (s *Scheduler) RegisterAll(purgeCron string) error {
	spec := fmt.Sprintf("@every %s", s.Settings.CheckInterval())
	if _, err := s.Cron.AddFunc(spec, s.checkTask); err != nil {
		return fmt.Errorf("register check task: %w", err)
	}
	if purgeCron != "" {
		if _, err := s.Cron.AddFunc(purgeCron, s.purgeTask); err != nil {
			return fmt.Errorf("register purge task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info().Dur("interval", s.Settings.CheckInterval()).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running check to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}

// RunNow executes one price check immediately.
func (s *Scheduler) RunNow() {
	s.checkTask()
}

// WarmUp seeds the in-memory history from storage so a restart does not
// start over in the waiting state.
func (s *Scheduler) WarmUp() error {
	now := s.Now()
	points, err := s.Recorder.RecentPrices(s.Collector.Symbol, now.Add(-s.History.Retention()))
	if err != nil {
		return fmt.Errorf("load recent prices: %w", err)
	}
	s.History.Load(points, now)
	s.logger.Info().Int("samples", s.History.Len()).Msg("price history restored")
	return nil
}

func (s *Scheduler) checkTask() {
	_, _ = s.check()
}

// check runs one price check and returns the resulting signal.
func (s *Scheduler) check() (*model.Signal, error) {
	s.checkMu.Lock()
	defer s.checkMu.Unlock()

	quote, err := s.Collector.Collect(s.Ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to fetch price, retrying...")
		return nil, err
	}

	s.History.Add(quote.Point())
	var compare *float64
	if p, ok := s.History.PriceAt(s.Settings.HistoryWindow(), quote.FetchedAt); ok {
		compare = &p
	}
	sig := strategy.NewSignal(quote.Symbol, quote.Price, compare, s.Settings.LEDBrightness, quote.FetchedAt)

	if err := s.Lamp.Send(s.Ctx, sig.Message()); err != nil {
		s.logger.Error().Err(err).Str("lamp", s.Lamp.Name()).Msg("send to lamp")
	}

	if err := s.Recorder.RecordTick(&recorder.TickEvent{
		Symbol: quote.Symbol, Source: quote.Source, Price: sig.Price,
		ComparePrice: sig.ComparePrice, Status: sig.Status, Change: sig.Change,
		CheckedAt: sig.CheckedAt,
	}); err != nil {
		s.logger.Error().Err(err).Msg("record tick")
	}

	s.mu.Lock()
	prev := s.lastStatus
	s.latest = sig
	s.lastStatus = sig.Status
	s.mu.Unlock()

	if prev != "" && prev != sig.Status {
		s.statusChanged(sig, prev)
	}

	for _, line := range notifier.FormatTick(sig, s.Settings.PriceHistoryMinutes) {
		s.logger.Info().Msg(line)
	}
	return sig, nil
}

func (s *Scheduler) statusChanged(sig *model.Signal, from model.Status) {
	if err := s.Recorder.RecordStatusChange(&recorder.StatusChange{
		Symbol: sig.Symbol, From: from, To: sig.Status,
		Price: sig.Price, Change: sig.Change, At: sig.CheckedAt,
	}); err != nil {
		s.logger.Error().Err(err).Msg("record status change")
	}
	s.trySend(notifier.FormatStatusChange(sig, from, s.Settings.PriceHistoryMinutes))
}

func (s *Scheduler) purgeTask() {
	before := s.Now().Add(-s.StorageRetention)
	n, err := s.Recorder.Purge(before)
	if err != nil {
		s.logger.Error().Err(err).Msg("purge stored ticks")
		return
	}
	s.logger.Info().Int64("rows", n).Time("before", before).Msg("purged stored ticks")
}

// Latest returns the most recent signal, if any check has completed.
func (s *Scheduler) Latest() (*model.Signal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, false
	}
	cp := *s.latest
	return &cp, true
}

// Points returns the in-memory price history.
func (s *Scheduler) Points() []model.PricePoint {
	return s.History.Points()
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch strings.TrimSpace(command) {
	case "/price":
		sig, ok := s.Latest()
		if !ok {
			return "No price check completed yet."
		}
		return s.tickReply(sig)
	case "/check":
		sig, err := s.check()
		if err != nil {
			return "❌ Price check failed: " + html.EscapeString(err.Error())
		}
		return s.tickReply(sig)
	case "/history":
		return notifier.FormatHistory(s.Collector.Symbol, s.History.Points())
	case "/device":
		return notifier.FormatDevice(s.Settings)
	default:
		return "Commands:\n• /price - latest check\n• /check - check now\n• /history - recent samples\n• /device - lamp settings"
	}
}

func (s *Scheduler) tickReply(sig *model.Signal) string {
	return html.EscapeString(strings.Join(notifier.FormatTick(sig, s.Settings.PriceHistoryMinutes), "\n"))
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.logger.Error().Err(err).Msg("send notification")
	}
}

// cronLogger routes cron's own logging through zerolog.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
