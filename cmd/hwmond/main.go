package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"codeberg.org/mutker/hwmond/internal/alert"
	"codeberg.org/mutker/hwmond/internal/api"
	"codeberg.org/mutker/hwmond/internal/bridge"
	"codeberg.org/mutker/hwmond/internal/config"
	"codeberg.org/mutker/hwmond/internal/errors"
	"codeberg.org/mutker/hwmond/internal/logger"
	"codeberg.org/mutker/hwmond/internal/metrics"
	"codeberg.org/mutker/hwmond/internal/monitor"
	"codeberg.org/mutker/hwmond/internal/notify"
	"codeberg.org/mutker/hwmond/internal/pid"
	"codeberg.org/mutker/hwmond/internal/sanitize"
	"codeberg.org/mutker/hwmond/internal/store"
	"codeberg.org/mutker/hwmond/internal/telemetry"
	"codeberg.org/mutker/hwmond/internal/ui"
)

const shutdownTimeout = 5 * time.Second

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug().Msg("Config loaded")
}

func main() {
	if err := pid.Write(); err != nil {
		if errors.CodeOf(err) == errors.ErrAlreadyRunning {
			logger.Fatal().Msg("Another instance is already running")
		}
		logger.Fatal().Msgf("Failed to write PID file: %v", err)
	}
	defer pid.Remove()

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Warn().Msgf("Metrics registration failed: %v", err)
	}

	st := store.New()
	san := sanitize.New()

	dispatcher := notify.NewDispatcher(cfg.QueueSize, cfg.Workers)
	engine := alert.NewEngine(dispatcher)
	seedRules(engine)

	recorder := newRecorder()
	dispatcher.AddSink(telemetry.NewEventSink(recorder))

	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		sink, err := notify.NewTelegramSink(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			logger.Error().Msgf("Telegram sink disabled: %v", err)
		} else {
			dispatcher.AddSink(sink)
			logger.Info().Msg("Telegram notifications enabled")
		}
	}

	hub := api.NewHub()
	dispatcher.AddSink(hub)

	br := bridge.New(cfg.BridgeCommand, cfg.BridgeArgs...)
	if err := br.Start(); err != nil {
		logger.Warn().Msgf("Sensor bridge unavailable, serving empty snapshots: %v", err)
	}

	var view *ui.UI
	if cfg.TUI {
		view = ui.New(st, br)
		dispatcher.AddSink(view)
	}

	dispatcher.Start()

	mon := monitor.New(monitor.Config{
		Source:    br,
		Sanitizer: san,
		Store:     st,
		Evaluator: engine,
		Recorder:  recorder,
		Interval:  time.Duration(cfg.Interval) * time.Second,
		OnTick:    hub.BroadcastSnapshot,
	})
	mon.Start()

	srv := startAPI(st, san, engine, br, hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if view != nil {
		go func() {
			<-ctx.Done()
			view.Quit()
		}()
		if err := view.Run(); err != nil {
			logger.Error().Msgf("Terminal view failed: %v", err)
		}
		cancel()
	} else {
		<-ctx.Done()
	}

	shutdown(srv, hub, mon, dispatcher, recorder)
}

func seedRules(engine *alert.Engine) {
	if cfg.RulesFile == "" {
		return
	}

	rules, err := alert.LoadRulesFile(cfg.RulesFile)
	if err != nil {
		logger.Fatal().Msgf("Failed to load alert rules: %v", err)
	}
	for _, rule := range rules {
		if err := engine.SetRule(rule); err != nil {
			logger.Fatal().Msgf("Invalid alert rule for %q: %v", rule.Sensor, err)
		}
	}
	logger.Info().Msgf("Loaded %d alert rules from %s", len(rules), cfg.RulesFile)
}

func newRecorder() telemetry.Recorder {
	if !cfg.Telemetry {
		return telemetry.NewNoop()
	}

	rec, err := telemetry.NewRecorder(telemetry.Config{
		DBPath:       cfg.TelemetryDB,
		BatchSize:    cfg.BatchSize,
		FlushSeconds: cfg.FlushSeconds,
	})
	if err != nil {
		logger.Fatal().Msgf("Failed to open telemetry database: %v", err)
	}

	return rec
}

func startAPI(st *store.Store, san *sanitize.Sanitizer, engine *alert.Engine, br *bridge.Bridge, hub *api.Hub) *api.Server {
	if cfg.ListenAddress == "" {
		logger.Info().Msg("HTTP API disabled")

		return nil
	}

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(st, san, engine, br, hub)
	srv, err := api.NewServer(cfg.ListenAddress, api.NewRouter(handler))
	if err != nil {
		logger.Fatal().Msgf("Failed to bind HTTP API: %v", err)
	}

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error().Msgf("HTTP API failed: %v", err)
		}
	}()

	return srv
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func shutdown(srv *api.Server, hub *api.Hub, mon *monitor.Monitor, dispatcher *notify.Dispatcher, recorder telemetry.Recorder) {
	logger.Info().Msg("Shutting down...")

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Msgf("HTTP shutdown failed: %v", err)
		}
	}
	hub.Close()

	mon.Stop()
	dispatcher.Stop()

	if err := recorder.Close(); err != nil {
		logger.Error().Msgf("Telemetry close failed: %v", err)
	}

	logger.Info().Msg("Exiting...")
}
