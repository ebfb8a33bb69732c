package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"MoonLamp/internal/api"
	"MoonLamp/internal/collector"
	"MoonLamp/internal/config"
	"MoonLamp/internal/history"
	"MoonLamp/internal/lamp"
	"MoonLamp/internal/logger"
	"MoonLamp/internal/notifier"
	"MoonLamp/internal/recorder"
	"MoonLamp/internal/scheduler"
)

func main() {
	headerPath := flag.String("header", "", "write the firmware config.h to this path (- for stdout) and exit")
	flag.Parse()

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	if *headerPath != "" {
		if err := writeHeader(cfg, *headerPath); err != nil {
			log.Fatal().Err(err).Msg("write config.h")
		}
		log.Info().Str("path", *headerPath).Msg("config.h written")
		return
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	for _, name := range cfg.Device.Placeholders() {
		log.Warn().Str("option", name).Msg("device setting still holds the template placeholder")
	}

	log.Info().Msg("MoonLamp starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("MoonLamp stopped")
		stop()
		os.Exit(1)
	}
	log.Info().Msg("Goodbye!")
}

// run wires the tracker and blocks until ctx is cancelled. Every resource it
// opens is released before it returns.
func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Init fetcher
	fetcher := newFetcher(cfg)
	log.Info().Str("source", fetcher.Name()).Str("symbol", cfg.DataSource.Symbol).Msg("data source ready")
	col := collector.NewCollector(fetcher, cfg.DataSource.Symbol)

	// Init recorder
	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(logger.Component(log, "recorder"), cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec = sr
		}
	}
	defer func() {
		if err := rec.Close(); err != nil {
			log.Error().Err(err).Msg("close recorder")
		}
	}()

	// Init lamps
	lamps := openLamps(ctx, cfg, log)
	defer func() {
		if err := lamps.Close(); err != nil {
			log.Error().Err(err).Msg("close lamps")
		}
	}()

	// Init notifier
	var notif notifier.Notifier = notifier.NoopNotifier{}
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(logger.Component(log, "telegram"), cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		notif = tn
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, logger.Component(log, "scheduler"), scheduler.Deps{
		Collector:        col,
		History:          history.New(cfg.HistoryRetention()),
		Lamp:             lamps,
		Recorder:         rec,
		Notifier:         notif,
		Settings:         cfg.Device,
		StorageRetention: cfg.StorageRetention(),
	})
	if err := sched.WarmUp(); err != nil {
		log.Warn().Err(err).Msg("restore price history")
	}
	if err := sched.RegisterAll(cfg.Database.PurgeCron); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("Telegram polling started")
	}

	var apiDone <-chan struct{}
	if cfg.HTTP.Addr != "" {
		apiDone = api.NewServer(logger.Component(log, "api"), cfg.HTTP.Addr, sched, cfg.Device).Start(ctx)
	}

	sched.Start()
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		sched.RunNow()
	}()

	log.Info().Msg("MoonLamp is running. Press Ctrl+C to stop.")
	<-ctx.Done()

	log.Info().Msg("Shutting down...")
	cancel()
	sched.Stop()
	<-firstDone
	if apiDone != nil {
		<-apiDone
	}
	return nil
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	ds := cfg.DataSource
	switch ds.Provider {
	case "yahoo":
		return collector.NewYahooFetcher(cfg.Proxy, ds.Timeout)
	case "mock":
		return &collector.MockFetcher{Prices: []float64{ds.MockPrice}}
	default:
		return collector.NewCoinGeckoFetcher(ds.BaseURL, ds.APIKey, ds.VsCurrency, cfg.Proxy, ds.Timeout)
	}
}

func openLamps(ctx context.Context, cfg *config.Config, log zerolog.Logger) lamp.Multi {
	var lamps lamp.Multi

	if cfg.Serial.Port != "" {
		sl := lamp.NewSerialLamp(logger.Component(log, "serial"), cfg.Serial.Port, cfg.Serial.BaudRate, cfg.Serial.SettleDelay, nil)
		if err := sl.Connect(ctx); err != nil {
			log.Error().Err(err).Msg("could not open serial port, will retry on next check")
			for _, hint := range lamp.Troubleshoot(err) {
				log.Warn().Msg(hint)
			}
		}
		lamps = append(lamps, sl)
	}

	if cfg.MQTT.Broker != "" {
		ml, err := lamp.DialMQTT(logger.Component(log, "mqtt"), lamp.MQTTOptions{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
		})
		if err != nil {
			log.Error().Err(err).Msg("connect MQTT broker")
		} else {
			lamps = append(lamps, ml)
		}
	}
	return lamps
}

func writeHeader(cfg *config.Config, path string) error {
	if err := cfg.Device.Validate(); err != nil {
		return err
	}
	if path == "-" {
		return cfg.Device.Header(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := cfg.Device.Header(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
