// Package action runs the actions bound to gestures and combos. Actions are
// carried out by external plugin executables discovered from a directory.
package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// ErrPluginNotFound is returned when no plugin handles an action.
var ErrPluginNotFound = errors.New("plugin not found")

// ManifestFile is the manifest name inside each plugin directory.
const ManifestFile = "plugin.json"

// Manifest describes a plugin.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Actions     []string `json:"actions"`
}

// Request is written to the plugin's stdin.
type Request struct {
	Action  string          `json:"action"`
	Gesture string          `json:"gesture,omitempty"`
	Combo   string          `json:"combo,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Registry indexes the plugins under a directory by name and by the
// actions they declare.
type Registry struct {
	dir    string
	logger zerolog.Logger

	mu       sync.RWMutex
	plugins  map[string]*Plugin
	byAction map[string]*Plugin
}

// NewRegistry creates an empty registry for dir. Call Discover to load it.
func NewRegistry(dir string, logger zerolog.Logger) *Registry {
	return &Registry{
		dir:      dir,
		logger:   logger.With().Str("component", "plugins").Logger(),
		plugins:  make(map[string]*Plugin),
		byAction: make(map[string]*Plugin),
	}
}

// Discover rescans the directory. A missing directory yields no plugins;
// unreadable or invalid manifests are skipped with a warning.
func (r *Registry) Discover() error {
	plugins := make(map[string]*Plugin)
	byAction := make(map[string]*Plugin)

	entries, err := os.ReadDir(r.dir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read plugin dir: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p, err := loadPlugin(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			if !os.IsNotExist(err) {
				r.logger.Warn().Err(err).Str("plugin", entry.Name()).Msg("skipping plugin")
			}
			continue
		}

		plugins[p.Manifest.Name] = p
		for _, a := range p.Manifest.Actions {
			if prev, ok := byAction[a]; ok {
				r.logger.Warn().Str("action", a).Str("kept", prev.Manifest.Name).Str("ignored", p.Manifest.Name).Msg("action declared by two plugins")
				continue
			}
			byAction[a] = p
		}
	}

	r.mu.Lock()
	r.plugins = plugins
	r.byAction = byAction
	r.mu.Unlock()

	r.logger.Info().Int("count", len(plugins)).Str("dir", r.dir).Msg("plugins discovered")
	return nil
}

func loadPlugin(dir string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Name == "" || m.Executable == "" {
		return nil, errors.New("manifest needs name and executable")
	}

	return &Plugin{
		Manifest:   m,
		Path:       dir,
		Executable: filepath.Join(dir, m.Executable),
	}, nil
}

// Get returns the plugin with the given name.
func (r *Registry) Get(name string) (*Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.plugins[name]; ok {
		return p, nil
	}
	return nil, ErrPluginNotFound
}

// ForAction returns the plugin declaring action, falling back to a plugin
// named after it.
func (r *Registry) ForAction(action string) (*Plugin, error) {
	r.mu.RLock()
	p, ok := r.byAction[action]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}
	if p, err := r.Get(action); err == nil {
		return p, nil
	}
	return nil, fmt.Errorf("action %q: %w", action, ErrPluginNotFound)
}

// List returns the plugins sorted by name.
func (r *Registry) List() []*Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Manifest.Name < out[j].Manifest.Name })
	return out
}

// Dir is the scanned directory.
func (r *Registry) Dir() string {
	return r.dir
}
