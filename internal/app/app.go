// Package app wires the recognition pipeline, the action dispatcher and the
// HTTP server into one process.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/ayusman/visionctl/internal/action"
	"github.com/ayusman/visionctl/internal/combo"
	"github.com/ayusman/visionctl/internal/config"
	"github.com/ayusman/visionctl/internal/detector"
	"github.com/ayusman/visionctl/internal/gateway"
	"github.com/ayusman/visionctl/internal/gesture"
	"github.com/ayusman/visionctl/internal/logging"
	"github.com/ayusman/visionctl/internal/metrics"
	"github.com/ayusman/visionctl/internal/server"
	"github.com/ayusman/visionctl/internal/stabilize"
	"github.com/ayusman/visionctl/internal/store"
)

// SettingEnabled persists the recognition toggle across restarts.
const SettingEnabled = "recognition_enabled"

// Display shows recognition state outside the API, e.g. in the tray.
type Display interface {
	SetEnabled(enabled bool)
	SetLastGesture(name string)
	SetLastCombo(name string)
}

// Option customizes New.
type Option func(*App)

// WithDetector replaces the MediaPipe detector.
func WithDetector(d detector.Detector) Option {
	return func(a *App) { a.detector = d }
}

// WithRunner replaces the plugin runner used by the dispatcher.
func WithRunner(r action.Runner) Option {
	return func(a *App) { a.runner = r }
}

// App owns every long-lived component.
type App struct {
	cfg    config.Config
	base   zerolog.Logger
	logger zerolog.Logger

	store      *store.Store
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	library    *gesture.Library
	classifier *gesture.Classifier
	catalog    *combo.Catalog
	plugins    *action.Registry
	runner     action.Runner
	dispatcher *action.Dispatcher
	detector   detector.Detector
	gateway    *gateway.Handler
	server     *server.Server

	mu            sync.Mutex
	fileTemplates []gesture.Template
	display       Display
}

// New builds the application from cfg. Missing or invalid action and
// template documents are logged and treated as empty.
func New(cfg config.Config, logger zerolog.Logger, opts ...Option) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := &App{
		cfg:      cfg,
		base:     logger,
		logger:   logging.Component(logger, "app"),
		store:    st,
		registry: reg,
		metrics:  metrics.New(reg),
		library:  gesture.NewLibrary(nil),
		catalog:  combo.NewCatalog(nil),
		plugins:  action.NewRegistry(cfg.PluginDir, logger),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.classifier = gesture.NewClassifier(a.library, cfg.Sensitivity)

	if err := a.plugins.Discover(); err != nil {
		a.logger.Warn().Err(err).Str("dir", cfg.PluginDir).Msg("plugin discovery failed")
	}
	if a.runner == nil {
		a.runner = action.PluginRunner{
			Registry: a.plugins,
			Executor: action.NewExecutor(cfg.ActionTimeout),
		}
	}
	a.dispatcher = action.NewDispatcher(a.runner, cfg.DispatchWorkers, a.metrics, logger)

	if a.detector == nil {
		mp, err := detector.NewMediaPipeDetector(cfg.Detector, logging.Component(logger, "detector"))
		if err != nil {
			a.logger.Warn().Err(err).Msg("MediaPipe not available, no hands will be reported")
			a.detector = detector.NewMockDetector()
		} else {
			a.detector = mp
		}
	}

	if err := a.ReloadActions(); err != nil {
		a.logger.Warn().Err(err).Msg("starting with no actions")
	}
	if err := a.ReloadTemplates(); err != nil {
		a.logger.Warn().Err(err).Msg("starting with no custom templates")
	}

	a.gateway = gateway.NewHandler(gateway.Options{
		Detector:    a.detector,
		Classifier:  a.classifier,
		Catalog:     a.catalog,
		Stabilizer:  cfg.Stabilizer,
		Combo:       cfg.Combo,
		FrameWidth:  cfg.FrameWidth,
		FrameHeight: cfg.FrameHeight,
		Metrics:     a.metrics,
		Observer:    a,
		Logger:      logger,
	})
	a.gateway.SetEnabled(st.Settings().Bool(SettingEnabled, true))

	a.server = server.New(server.Config{
		StaticDir:       cfg.StaticDir,
		Gateway:         a.gateway,
		Store:           st,
		Library:         a.library,
		Catalog:         a.catalog,
		Dispatcher:      a.dispatcher,
		Registry:        a.plugins,
		ReloadTemplates: a.ReloadTemplates,
		Gatherer:        reg,
		Metrics:         a.metrics,
		Logger:          logger,
	})

	return a, nil
}

// ReloadActions reloads the action document. On failure the current
// bindings and combos stay in place.
func (a *App) ReloadActions() error {
	actions, err := config.LoadActions(a.cfg.ActionsFile)
	if errors.Is(err, fs.ErrNotExist) {
		a.logger.Info().Str("path", a.cfg.ActionsFile).Msg("no action document, nothing bound")
		actions, err = config.Actions{Bindings: map[string]config.Binding{}}, nil
	}
	if err != nil {
		return err
	}

	a.catalog.Swap(actions.Combos)
	a.dispatcher.SetBindings(actions.Bindings)
	a.logger.Info().
		Int("bindings", len(actions.Bindings)).
		Int("combos", len(actions.Combos)).
		Msg("actions loaded")
	return nil
}

// ReloadTemplates rebuilds the custom template set from the template
// document and the store. A stored gesture replaces a document entry of the
// same name. If the document is unreadable its last good contents are used.
func (a *App) ReloadTemplates() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	fromFile, err := config.LoadTemplates(a.cfg.TemplatesFile)
	switch {
	case err == nil:
		a.fileTemplates = fromFile
	case errors.Is(err, fs.ErrNotExist):
		a.fileTemplates = nil
	default:
		a.logger.Warn().Err(err).Str("path", a.cfg.TemplatesFile).Msg("keeping previous template document")
	}

	stored, err := a.store.Templates()
	if err != nil {
		return fmt.Errorf("load stored templates: %w", err)
	}

	set := gesture.NewTemplateSet(mergeTemplates(a.fileTemplates, stored))
	a.library.Swap(set)
	a.logger.Info().Strs("templates", set.Names()).Msg("templates loaded")
	return nil
}

func mergeTemplates(base, override []gesture.Template) []gesture.Template {
	byName := make(map[string]gesture.Template, len(base)+len(override))
	for _, t := range base {
		byName[t.Name] = t
	}
	for _, t := range override {
		byName[t.Name] = t
	}

	out := make([]gesture.Template, 0, len(byName))
	for _, t := range byName {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SetEnabled pauses or resumes recognition and remembers the choice.
func (a *App) SetEnabled(enabled bool) {
	a.gateway.SetEnabled(enabled)
	if err := a.store.Settings().SetBool(SettingEnabled, enabled); err != nil {
		a.logger.Warn().Err(err).Msg("failed to persist recognition toggle")
	}
	if d := a.currentDisplay(); d != nil {
		d.SetEnabled(enabled)
	}
}

// Enabled reports whether recognition is running.
func (a *App) Enabled() bool {
	return a.gateway.Enabled()
}

// AttachDisplay mirrors recognition state to d.
func (a *App) AttachDisplay(d Display) {
	a.mu.Lock()
	a.display = d
	a.mu.Unlock()
	d.SetEnabled(a.Enabled())
}

func (a *App) currentDisplay() Display {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.display
}

// GestureEmitted runs the binding for a newly entered gesture.
func (a *App) GestureEmitted(session string, e stabilize.Event) {
	if d := a.currentDisplay(); d != nil {
		d.SetLastGesture(e.Gesture)
	}
	if !e.Changed || e.Cleared {
		return
	}
	a.dispatcher.Gesture(e.Gesture)
}

// ComboMatched runs the combo's action.
func (a *App) ComboMatched(session string, m *combo.Match) {
	if d := a.currentDisplay(); d != nil {
		d.SetLastCombo(m.Definition.Name)
	}
	a.dispatcher.Combo(m)
}

// Handler is the full HTTP API.
func (a *App) Handler() http.Handler { return a.server }

// Library is the active custom template set.
func (a *App) Library() *gesture.Library { return a.library }

// Catalog is the active combo catalog.
func (a *App) Catalog() *combo.Catalog { return a.catalog }

// Dispatcher runs bound actions.
func (a *App) Dispatcher() *action.Dispatcher { return a.dispatcher }

// Store is the gesture database.
func (a *App) Store() *store.Store { return a.store }

// Run serves HTTP on the configured address and, when enabled, watches the
// action and template documents until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.Watch {
		w := config.NewWatcher(a.base)
		w.On(a.cfg.ActionsFile, func() {
			if err := a.ReloadActions(); err != nil {
				a.logger.Warn().Err(err).Msg("action reload failed, keeping previous actions")
			}
		})
		w.On(a.cfg.TemplatesFile, func() {
			if err := a.ReloadTemplates(); err != nil {
				a.logger.Warn().Err(err).Msg("template reload failed, keeping previous templates")
			}
		})
		go func() {
			if err := w.Run(ctx); err != nil {
				a.logger.Error().Err(err).Msg("config watcher stopped")
			}
		}()
	}

	return a.server.ListenAndServe(ctx, a.cfg.Addr)
}

// Close stops the dispatcher and releases the detector and the store.
func (a *App) Close() error {
	a.dispatcher.Close()
	var errs []error
	if err := a.detector.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close detector: %w", err))
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}
