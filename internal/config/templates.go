package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ayusman/visionctl/internal/detector"
	"github.com/ayusman/visionctl/internal/gesture"
)

type templateEntry struct {
	Name       string               `json:"name"`
	Samples    [][]detector.Point3D `json:"samples"`
	CreatedAt  string               `json:"created_at"`
	NumSamples int                  `json:"num_samples"`
}

// created_at is written either as RFC 3339 or as a zone-less ISO timestamp.
var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParseTemplates decodes a template document keyed by gesture name. The
// result is sorted by name.
func ParseTemplates(data []byte) ([]gesture.Template, error) {
	var doc map[string]templateEntry
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse template document: %w", err)
	}

	out := make([]gesture.Template, 0, len(doc))
	for key, entry := range doc {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			name = key
		}
		out = append(out, gesture.Template{
			Name:      name,
			Samples:   entry.Samples,
			CreatedAt: parseCreatedAt(entry.CreatedAt),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func parseCreatedAt(raw string) time.Time {
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// LoadTemplates reads and parses the template document at path.
func LoadTemplates(path string) ([]gesture.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template document: %w", err)
	}
	return ParseTemplates(data)
}
