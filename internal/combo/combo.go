// Package combo recognizes ordered gesture sequences within a sliding time window.
package combo

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

// Definition is a configured gesture sequence and the action it triggers.
type Definition struct {
	Name        string          `json:"name"`
	Sequence    []string        `json:"sequence"`
	Action      string          `json:"action"`
	Description string          `json:"description,omitempty"`
	Params      json.RawMessage `json:"params,omitempty"`
}

// Event is one gesture in the detector history.
type Event struct {
	Gesture    string    `json:"gesture"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
	Hand       string    `json:"hand"`
}

// Match is a recognized combo.
type Match struct {
	Definition
	MatchedGestures []Event
	Confidence      float64
	Timestamp       time.Time
}

// Catalog holds the current combo definitions. Reloads replace the whole
// list; readers never see a partial update.
type Catalog struct {
	current atomic.Pointer[[]Definition]
}

// NewCatalog creates a catalog holding defs.
func NewCatalog(defs []Definition) *Catalog {
	c := &Catalog{}
	c.Swap(defs)
	return c
}

// Swap installs a copy of defs as the current list.
func (c *Catalog) Swap(defs []Definition) {
	snapshot := append([]Definition(nil), defs...)
	c.current.Store(&snapshot)
}

// Definitions returns the current list. Callers must not modify it.
func (c *Catalog) Definitions() []Definition {
	if p := c.current.Load(); p != nil {
		return *p
	}
	return nil
}
