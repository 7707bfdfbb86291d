// Package config loads the server configuration and the action and
// template documents, and watches them for changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ayusman/visionctl/internal/combo"
	"github.com/ayusman/visionctl/internal/detector"
	"github.com/ayusman/visionctl/internal/gesture"
	"github.com/ayusman/visionctl/internal/stabilize"
)

// Config is the resolved server configuration.
type Config struct {
	Addr          string
	DataDir       string
	ActionsFile   string
	TemplatesFile string
	PluginDir     string
	StaticDir     string
	Watch         bool
	Tray          bool
	LogLevel      string

	Stabilizer  stabilize.Config
	Combo       combo.Config
	Sensitivity float64
	Detector    detector.Config

	FrameWidth  int
	FrameHeight int

	DispatchWorkers int
	ActionTimeout   time.Duration
}

// Default returns the configuration used when no file is given.
func Default() Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".visionctl")

	return Config{
		Addr:            "127.0.0.1:8765",
		DataDir:         dataDir,
		ActionsFile:     filepath.Join(dataDir, "gestures.json"),
		TemplatesFile:   filepath.Join(dataDir, "custom_gestures.json"),
		PluginDir:       filepath.Join(dataDir, "plugins"),
		Watch:           true,
		Tray:            false,
		LogLevel:        "info",
		Stabilizer:      stabilize.DefaultConfig(),
		Combo:           combo.DefaultConfig(),
		Sensitivity:     gesture.DefaultSensitivity,
		Detector:        detector.DefaultConfig(),
		FrameWidth:      320,
		FrameHeight:     240,
		DispatchWorkers: 4,
		ActionTimeout:   5 * time.Second,
	}
}

// DBPath is the SQLite database location.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "visionctl.db")
}

type fileConfig struct {
	Addr          string `toml:"addr"`
	DataDir       string `toml:"data_dir"`
	ActionsFile   string `toml:"actions_file"`
	TemplatesFile string `toml:"templates_file"`
	PluginDir     string `toml:"plugin_dir"`
	StaticDir     string `toml:"static_dir"`
	Watch         bool   `toml:"watch"`
	Tray          bool   `toml:"tray"`
	LogLevel      string `toml:"log_level"`

	Stabilizer struct {
		MinConfidence   float64 `toml:"min_confidence"`
		MinInterval     string  `toml:"min_interval"`
		RefreshInterval string  `toml:"refresh_interval"`
		ClearAfter      int     `toml:"clear_after_frames"`
	} `toml:"stabilizer"`

	Combo struct {
		Window          string `toml:"window"`
		Cooldown        string `toml:"cooldown"`
		DuplicateWindow string `toml:"duplicate_window"`
		Capacity        int    `toml:"history_size"`
	} `toml:"combo"`

	Classifier struct {
		Sensitivity float64 `toml:"similarity_sensitivity"`
	} `toml:"classifier"`

	Detector struct {
		MaxHands      int     `toml:"max_hands"`
		MinConfidence float64 `toml:"min_confidence"`
		IdleTimeout   string  `toml:"idle_timeout"`
		Script        string  `toml:"script"`
		Python        string  `toml:"python"`
	} `toml:"detector"`

	Frame struct {
		Width  int `toml:"width"`
		Height int `toml:"height"`
	} `toml:"frame"`

	Dispatch struct {
		Workers int    `toml:"workers"`
		Timeout string `toml:"timeout"`
	} `toml:"dispatch"`
}

// Load reads a TOML file and applies the keys it defines over Default.
// Relative document paths resolve against the data directory.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	str := func(key, v string, dst *string) {
		if meta.IsDefined(key) {
			*dst = strings.TrimSpace(v)
		}
	}
	str("addr", raw.Addr, &cfg.Addr)
	if meta.IsDefined("data_dir") {
		cfg.DataDir = expandHome(strings.TrimSpace(raw.DataDir))
		cfg.ActionsFile = filepath.Join(cfg.DataDir, "gestures.json")
		cfg.TemplatesFile = filepath.Join(cfg.DataDir, "custom_gestures.json")
		cfg.PluginDir = filepath.Join(cfg.DataDir, "plugins")
	}
	str("actions_file", raw.ActionsFile, &cfg.ActionsFile)
	str("templates_file", raw.TemplatesFile, &cfg.TemplatesFile)
	str("plugin_dir", raw.PluginDir, &cfg.PluginDir)
	str("static_dir", raw.StaticDir, &cfg.StaticDir)
	str("log_level", raw.LogLevel, &cfg.LogLevel)
	if meta.IsDefined("watch") {
		cfg.Watch = raw.Watch
	}
	if meta.IsDefined("tray") {
		cfg.Tray = raw.Tray
	}

	cfg.ActionsFile = cfg.resolve(cfg.ActionsFile)
	cfg.TemplatesFile = cfg.resolve(cfg.TemplatesFile)
	cfg.PluginDir = cfg.resolve(cfg.PluginDir)
	if cfg.StaticDir != "" {
		cfg.StaticDir = expandHome(cfg.StaticDir)
	}

	durations := []struct {
		key []string
		v   string
		dst *time.Duration
	}{
		{[]string{"stabilizer", "min_interval"}, raw.Stabilizer.MinInterval, &cfg.Stabilizer.MinInterval},
		{[]string{"stabilizer", "refresh_interval"}, raw.Stabilizer.RefreshInterval, &cfg.Stabilizer.RefreshInterval},
		{[]string{"combo", "window"}, raw.Combo.Window, &cfg.Combo.Window},
		{[]string{"combo", "cooldown"}, raw.Combo.Cooldown, &cfg.Combo.Cooldown},
		{[]string{"combo", "duplicate_window"}, raw.Combo.DuplicateWindow, &cfg.Combo.DuplicateWindow},
		{[]string{"detector", "idle_timeout"}, raw.Detector.IdleTimeout, &cfg.Detector.IdleTimeout},
		{[]string{"dispatch", "timeout"}, raw.Dispatch.Timeout, &cfg.ActionTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key...) {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(d.v))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", strings.Join(d.key, "."), err)
		}
		*d.dst = parsed
	}

	if meta.IsDefined("stabilizer", "min_confidence") {
		cfg.Stabilizer.MinConfidence = raw.Stabilizer.MinConfidence
	}
	if meta.IsDefined("stabilizer", "clear_after_frames") {
		cfg.Stabilizer.ClearAfter = raw.Stabilizer.ClearAfter
	}
	if meta.IsDefined("combo", "history_size") {
		cfg.Combo.Capacity = raw.Combo.Capacity
	}
	if meta.IsDefined("classifier", "similarity_sensitivity") {
		cfg.Sensitivity = raw.Classifier.Sensitivity
	}
	if meta.IsDefined("detector", "max_hands") {
		cfg.Detector.MaxHands = raw.Detector.MaxHands
	}
	if meta.IsDefined("detector", "min_confidence") {
		cfg.Detector.MinConfidence = raw.Detector.MinConfidence
	}
	if meta.IsDefined("detector", "script") {
		cfg.Detector.ScriptPath = expandHome(strings.TrimSpace(raw.Detector.Script))
	}
	if meta.IsDefined("detector", "python") {
		cfg.Detector.PythonPath = expandHome(strings.TrimSpace(raw.Detector.Python))
	}
	if meta.IsDefined("frame", "width") {
		cfg.FrameWidth = raw.Frame.Width
	}
	if meta.IsDefined("frame", "height") {
		cfg.FrameHeight = raw.Frame.Height
	}
	if meta.IsDefined("dispatch", "workers") {
		cfg.DispatchWorkers = raw.Dispatch.Workers
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that values are in range.
func (c Config) Validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.Stabilizer.MinConfidence < 0 || c.Stabilizer.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("stabilizer.min_confidence must be within [0, 1], got %v", c.Stabilizer.MinConfidence))
	}
	if c.Stabilizer.MinInterval < 0 || c.Stabilizer.RefreshInterval < c.Stabilizer.MinInterval {
		errs = append(errs, errors.New("stabilizer.refresh_interval must be at least min_interval"))
	}
	if c.Stabilizer.ClearAfter < 1 {
		errs = append(errs, errors.New("stabilizer.clear_after_frames must be positive"))
	}
	if c.Combo.Window < 500*time.Millisecond || c.Combo.Window > 10*time.Second {
		errs = append(errs, fmt.Errorf("combo.window must be within [0.5s, 10s], got %v", c.Combo.Window))
	}
	if c.Combo.Capacity < 2 {
		errs = append(errs, errors.New("combo.history_size must be at least 2"))
	}
	if c.Sensitivity <= 0 {
		errs = append(errs, errors.New("classifier.similarity_sensitivity must be positive"))
	}
	if c.FrameWidth <= 0 || c.FrameHeight <= 0 {
		errs = append(errs, errors.New("frame width and height must be positive"))
	}
	if c.DispatchWorkers < 1 {
		errs = append(errs, errors.New("dispatch.workers must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c Config) resolve(path string) string {
	path = expandHome(path)
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.DataDir, path)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
