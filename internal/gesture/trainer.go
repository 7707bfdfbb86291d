package gesture

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ayusman/visionctl/internal/detector"
)

// ErrInvalidSample is returned for training input that cannot form a template.
var ErrInvalidSample = errors.New("invalid training sample")

// Trainer turns recorded landmark samples into gesture templates.
type Trainer struct {
	now func() time.Time
}

// NewTrainer creates a new Trainer instance.
func NewTrainer() *Trainer {
	return &Trainer{now: time.Now}
}

// NormalizeName trims, lower-cases and replaces spaces with underscores.
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// Train validates samples and builds a template named after the normalized
// name. Every sample must hold exactly detector.NumLandmarks points.
func (t *Trainer) Train(name string, samples [][]detector.Point3D) (Template, error) {
	name = NormalizeName(name)
	if name == "" {
		return Template{}, fmt.Errorf("%w: gesture name cannot be empty", ErrInvalidSample)
	}
	if name == Unknown {
		return Template{}, fmt.Errorf("%w: %q is reserved", ErrInvalidSample, name)
	}
	if len(samples) == 0 {
		return Template{}, fmt.Errorf("%w: at least one sample is required", ErrInvalidSample)
	}

	copied := make([][]detector.Point3D, len(samples))
	for i, sample := range samples {
		if len(sample) != detector.NumLandmarks {
			return Template{}, fmt.Errorf("%w: sample %d must have exactly %d landmarks, got %d",
				ErrInvalidSample, i, detector.NumLandmarks, len(sample))
		}
		copied[i] = append([]detector.Point3D(nil), sample...)
	}

	return Template{
		Name:      name,
		Samples:   copied,
		CreatedAt: t.now().UTC(),
	}, nil
}
