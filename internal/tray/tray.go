// Package tray shows recognition state in the system tray.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the menu bar item. Its setters are safe to call before Run and
// from any goroutine.
type Tray struct {
	title string

	mu          sync.RWMutex
	onToggle    func(enabled bool)
	onDashboard func()
	onQuit      func()
	enabled     bool
	lastGesture string
	lastCombo   string

	menuToggle      *systray.MenuItem
	menuLastGesture *systray.MenuItem
	menuLastCombo   *systray.MenuItem
}

// New creates a Tray titled title. Recognition is shown as enabled.
func New(title string) *Tray {
	return &Tray{title: title, enabled: true}
}

// OnToggle sets the callback run when the user flips recognition.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnDashboard sets the callback run by "Open Dashboard...".
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback run before the tray exits.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run shows the tray. It blocks until Quit is called and must run on the
// main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit removes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle(t.title)
	systray.SetTooltip(t.title + " gesture control")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Pause or resume gesture recognition")
	systray.AddSeparator()
	t.menuLastGesture = systray.AddMenuItem(lastTitle("Last gesture", t.lastGesture), "Most recent gesture")
	t.menuLastGesture.Disable()
	t.menuLastCombo = systray.AddMenuItem(lastTitle("Last combo", t.lastCombo), "Most recent combo")
	t.menuLastCombo.Disable()
	t.mu.Unlock()

	systray.AddSeparator()
	menuDashboard := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit "+t.title)

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuDashboard.ClickedCh:
				t.handleDashboard()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) handleToggle() {
	t.mu.RLock()
	enabled := !t.enabled
	callback := t.onToggle
	t.mu.RUnlock()

	// the callback reports the new state back through SetEnabled
	if callback != nil {
		callback(enabled)
		return
	}
	t.SetEnabled(enabled)
}

func (t *Tray) handleDashboard() {
	t.mu.RLock()
	callback := t.onDashboard
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
	systray.Quit()
}

// SetEnabled updates the toggle item.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// SetLastGesture updates the last gesture item. An empty name shows none.
func (t *Tray) SetLastGesture(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastGesture = name
	if t.menuLastGesture != nil {
		t.menuLastGesture.SetTitle(lastTitle("Last gesture", name))
	}
}

// SetLastCombo updates the last combo item.
func (t *Tray) SetLastCombo(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastCombo = name
	if t.menuLastCombo != nil {
		t.menuLastCombo.SetTitle(lastTitle("Last combo", name))
	}
}

// IsEnabled returns the state the tray currently shows.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// LastGesture returns the gesture the tray currently shows.
func (t *Tray) LastGesture() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastGesture
}

// LastCombo returns the combo the tray currently shows.
func (t *Tray) LastCombo() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastCombo
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Paused"
}

func lastTitle(label, name string) string {
	if name == "" {
		name = "none"
	}
	return label + ": " + name
}
