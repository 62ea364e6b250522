// Aura - live emotion aura driven by a streaming emotion inference session,
// started by a spoken wake phrase.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-aura/internal/config"
	"github.com/teslashibe/go-aura/internal/log"
	"github.com/teslashibe/go-aura/pkg/audioio"
	"github.com/teslashibe/go-aura/pkg/aura"
)

type flags struct {
	configPath string
	envFile    string
	logLevel   string
	addr       string
	phrase     string
	mockAudio  bool
	noIngest   bool
	connect    bool
}

func main() {
	f := parseFlags()

	cfg, err := loadConfig(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log.Level)
	logger := log.Component("main")

	app, err := aura.New(cfg, aura.WithLogger(log.L()))
	if err != nil {
		logger.Error("initialization failed", "error", err)
		os.Exit(1)
	}
	defer app.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if f.connect {
		if err := app.Connect(); err != nil {
			logger.Error("connect failed", "error", err)
			os.Exit(1)
		}
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("runtime error", "error", err)
		os.Exit(1)
	}
}

// parseFlags parses command line flags.
func parseFlags() flags {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "YAML config file (overrides AURA_CONFIG)")
	flag.StringVar(&f.envFile, "env", ".env", "dotenv file to load if present")
	flag.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&f.addr, "addr", "", "Dashboard listen address (overrides AURA_DASHBOARD_ADDR)")
	flag.StringVar(&f.phrase, "phrase", "", "Wake phrase (overrides AURA_WAKE_PHRASE)")
	flag.BoolVar(&f.mockAudio, "mock-audio", false, "Stream a synthetic tone instead of capture client audio")
	flag.BoolVar(&f.noIngest, "no-ingest", false, "Disable the capture client endpoint")
	flag.BoolVar(&f.connect, "connect", false, "Open the session at startup instead of on the wake phrase")
	flag.Parse()
	return f
}

// loadConfig layers flags over the file and environment configuration.
func loadConfig(f flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath, f.envFile)
	if err != nil {
		return nil, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.addr != "" {
		cfg.Dashboard.Addr = f.addr
	}
	if f.phrase != "" {
		cfg.Wake.Phrase = f.phrase
	}
	if f.noIngest {
		cfg.Ingest.Enabled = false
	}
	if f.mockAudio {
		cfg.Audio.Backend = audioio.BackendMock
	}
	return cfg, cfg.Validate()
}
