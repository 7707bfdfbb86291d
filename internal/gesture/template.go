package gesture

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/ayusman/visionctl/internal/detector"
)

// Template is a named custom gesture with one or more recorded samples.
type Template struct {
	Name      string               `json:"name"`
	Samples   [][]detector.Point3D `json:"samples"`
	CreatedAt time.Time            `json:"created_at"`
}

// normalizedTemplate caches wrist-relative, scale-free samples.
type normalizedTemplate struct {
	name    string
	samples [][]detector.Point3D
}

// TemplateSet is an immutable snapshot of custom templates.
type TemplateSet struct {
	templates []normalizedTemplate
	names     []string
}

// NewTemplateSet builds a snapshot from templates. Samples are normalized
// once here; later edits to the input do not affect the set. A template
// appearing twice keeps the later entry.
func NewTemplateSet(templates []Template) *TemplateSet {
	byName := make(map[string]int, len(templates))
	set := &TemplateSet{}

	for _, t := range templates {
		nt := normalizedTemplate{name: t.Name}
		for _, sample := range t.Samples {
			nt.samples = append(nt.samples, detector.Normalize(sample))
		}
		if i, ok := byName[t.Name]; ok {
			set.templates[i] = nt
			continue
		}
		byName[t.Name] = len(set.templates)
		set.templates = append(set.templates, nt)
		set.names = append(set.names, t.Name)
	}
	sort.Strings(set.names)
	return set
}

// Len returns the number of templates in the set.
func (s *TemplateSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.templates)
}

// Names returns the template names in sorted order.
func (s *TemplateSet) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.names...)
}

// Library holds the current TemplateSet. Readers see either the old or the
// new set, never a partial one.
type Library struct {
	current atomic.Pointer[TemplateSet]
}

// NewLibrary creates a library holding set. A nil set is treated as empty.
func NewLibrary(set *TemplateSet) *Library {
	l := &Library{}
	l.Swap(set)
	return l
}

// Swap installs set as the current snapshot.
func (l *Library) Swap(set *TemplateSet) {
	if set == nil {
		set = &TemplateSet{}
	}
	l.current.Store(set)
}

// Load returns the current snapshot.
func (l *Library) Load() *TemplateSet {
	return l.current.Load()
}
