package action

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ayusman/visionctl/internal/combo"
	"github.com/ayusman/visionctl/internal/config"
	"github.com/ayusman/visionctl/internal/metrics"
)

// Action results recorded in metrics.
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultDropped = "dropped"
	ResultMissing = "no_plugin"
)

// NoAction disables a binding or combo.
const NoAction = "none"

// Trigger is one action to run.
type Trigger struct {
	Action  string
	Gesture string
	Combo   string
	Params  json.RawMessage
}

// Runner executes a trigger. The Dispatcher's default runner resolves the
// action through a Registry and runs it with an Executor.
type Runner interface {
	Run(ctx context.Context, t Trigger) error
}

// PluginRunner runs triggers as plugins.
type PluginRunner struct {
	Registry *Registry
	Executor *Executor
}

func (p PluginRunner) Run(ctx context.Context, t Trigger) error {
	plugin, err := p.Registry.ForAction(t.Action)
	if err != nil {
		return err
	}
	_, err = p.Executor.Execute(ctx, plugin, Request{
		Action:  t.Action,
		Gesture: t.Gesture,
		Combo:   t.Combo,
		Params:  t.Params,
	})
	return err
}

// Dispatcher runs triggers on a bounded number of goroutines. When every
// slot is busy new triggers are dropped instead of queued.
type Dispatcher struct {
	runner  Runner
	metrics *metrics.Metrics
	logger  zerolog.Logger

	bindings atomic.Pointer[map[string]config.Binding]
	slots    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher with the given concurrency.
func NewDispatcher(runner Runner, workers int, m *metrics.Metrics, logger zerolog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		runner:  runner,
		metrics: m,
		logger:  logger.With().Str("component", "dispatcher").Logger(),
		slots:   make(chan struct{}, workers),
		ctx:     ctx,
		cancel:  cancel,
	}
	d.SetBindings(nil)
	return d
}

// SetBindings replaces the gesture bindings.
func (d *Dispatcher) SetBindings(b map[string]config.Binding) {
	snapshot := make(map[string]config.Binding, len(b))
	for k, v := range b {
		snapshot[k] = v
	}
	d.bindings.Store(&snapshot)
}

// Bindings returns the current gesture bindings. Callers must not modify it.
func (d *Dispatcher) Bindings() map[string]config.Binding {
	return *d.bindings.Load()
}

// Gesture dispatches the action bound to name, if any. It reports whether
// an action was started.
func (d *Dispatcher) Gesture(name string) bool {
	b, ok := d.Bindings()[name]
	if !ok {
		return false
	}
	return d.Dispatch(Trigger{Action: b.Action, Gesture: name, Params: b.Params})
}

// Combo dispatches the action of a matched combo.
func (d *Dispatcher) Combo(m *combo.Match) bool {
	return d.Dispatch(Trigger{Action: m.Action, Combo: m.Name, Params: m.Params})
}

// Dispatch starts t without blocking. It returns false when t has no
// action or every slot is busy.
func (d *Dispatcher) Dispatch(t Trigger) bool {
	if t.Action == "" || t.Action == NoAction {
		return false
	}

	select {
	case d.slots <- struct{}{}:
	default:
		d.logger.Warn().Str("action", t.Action).Str("gesture", t.Gesture).Str("combo", t.Combo).Msg("dispatcher saturated, dropping action")
		d.metrics.RecordAction(t.Action, ResultDropped)
		return false
	}

	d.wg.Add(1)
	go func() {
		defer func() {
			<-d.slots
			d.wg.Done()
		}()
		d.run(t)
	}()
	return true
}

func (d *Dispatcher) run(t Trigger) {
	log := d.logger.With().Str("action", t.Action).Str("gesture", t.Gesture).Str("combo", t.Combo).Logger()

	err := d.runner.Run(d.ctx, t)
	switch {
	case err == nil:
		log.Info().Msg("action executed")
		d.metrics.RecordAction(t.Action, ResultOK)
	case errors.Is(err, ErrPluginNotFound):
		log.Warn().Err(err).Msg("no plugin for action")
		d.metrics.RecordAction(t.Action, ResultMissing)
	default:
		log.Warn().Err(err).Msg("action failed")
		d.metrics.RecordAction(t.Action, ResultFailed)
	}
}

// Close cancels running actions and waits for them to return.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}

// Wait blocks until every started action has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
