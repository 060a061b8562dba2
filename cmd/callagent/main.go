// Command callagent runs a voice customer-service assistant for one business
// domain. Caller turns are read from stdin: typed text, or ":listen file.wav"
// for a recorded utterance.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/harjas-romana/calling-agent/internal/app"
	"github.com/harjas-romana/calling-agent/internal/config"
	"github.com/harjas-romana/calling-agent/internal/observe"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	domainFlag := flag.String("domain", "", "assistant domain, overrides assistant.domain (restaurant or travel)")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := loadConfig(*configPath, *domainFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "callagent: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	level.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Info("callagent starting",
		"config", *configPath,
		"domain", cfg.Assistant.Domain,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "callagent",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(ctx, *configPath, func(next *config.Config, d config.ConfigDiff) {
		application.Reload(next)
		if d.LogLevelChanged {
			level.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level updated", "level", d.NewLogLevel)
		}
	}, config.WithOverride(func(c *config.Config) {
		if *domainFlag != "" {
			c.Assistant.Domain = *domainFlag
		}
	}))
	if err != nil {
		slog.Warn("config hot reload disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── Run ───────────────────────────────────────────────────────────────────
	runCtx, cancelRun := context.WithCancel(ctx)
	runErr := make(chan error, 1)
	go func() { runErr <- application.Run(runCtx) }()

	replErr := newREPL(application, cfg.Assistant.AudioDir, os.Stdin, os.Stdout).run(ctx)
	cancelRun()
	code := 0
	if replErr != nil && !errors.Is(replErr, context.Canceled) {
		slog.Error("conversation loop error", "err", replErr)
		code = 1
	}
	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		code = 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("stopping")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		code = 1
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}
	return code
}

// loadConfig reads path, falling back to the defaults when the file does not
// exist. A non-empty domain overrides the configured one.
func loadConfig(path, domain string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = config.LoadFromReader(strings.NewReader(""))
	}
	if err != nil {
		return nil, err
	}
	if domain != "" {
		cfg.Assistant.Domain = domain
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        callagent: startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	fmt.Printf("║  %-12s    : %-19s ║\n", "Domain", cfg.Assistant.Domain)
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	printProvider("Embeddings", cfg.Providers.Embeddings.Name, cfg.Providers.Embeddings.Model)
	fmt.Printf("║  %-12s    : %-19s ║\n", "Scorer", cfg.Assistant.Scorer)
	fmt.Printf("║  %-12s    : %-19s ║\n", "State", cfg.State.Backend)
	if cfg.Memory.PostgresDSN != "" {
		fmt.Printf("║  %-12s    : %-19s ║\n", "Persistence", "postgres")
	} else {
		fmt.Printf("║  %-12s    : %-19s ║\n", "Persistence", "(in memory)")
	}
	if cfg.Server.ListenAddr != "-" {
		fmt.Printf("║  %-12s    : %-19s ║\n", "Listen addr", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "..."
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
