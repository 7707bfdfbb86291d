package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ayusman/visionctl/internal/app"
	"github.com/ayusman/visionctl/internal/config"
	"github.com/ayusman/visionctl/internal/logging"
	"github.com/ayusman/visionctl/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	addr := flag.String("addr", "", "listen address, overrides the config file")
	withTray := flag.Bool("tray", false, "show a system tray item")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	cfg.Tray = cfg.Tray || *withTray
	if cfg.StaticDir == "" {
		cfg.StaticDir = findWebDir(cfg.DataDir)
	}

	logger := logging.New(logging.Options{App: "visionctl", Level: cfg.LogLevel})
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("visionctl stopped")
	}
}

func run(cfg config.Config, logger zerolog.Logger) error {
	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn().Err(err).Msg("shutdown")
		}
	}()

	if cfg.StaticDir != "" {
		logger.Info().Str("dir", cfg.StaticDir).Msg("serving dashboard")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.Tray {
		return a.Run(ctx)
	}

	// systray needs the main goroutine
	t := tray.New("visionctl")
	t.OnToggle(a.SetEnabled)
	t.OnQuit(stop)
	t.OnDashboard(func() {
		if err := openBrowser("http://" + cfg.Addr); err != nil {
			logger.Warn().Err(err).Msg("open dashboard")
		}
	})
	a.AttachDisplay(t)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx)
		t.Quit()
	}()
	t.Run()
	stop()
	return <-errCh
}

func openBrowser(url string) error {
	name := "xdg-open"
	if runtime.GOOS == "darwin" {
		name = "open"
	}
	return exec.Command(name, url).Start()
}

// findWebDir returns the first dashboard directory found next to the
// working directory or under dataDir, or "" when there is none.
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")} {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return p
	}
	return ""
}
