package store

import (
	"errors"
	"testing"
	"time"

	"github.com/ayusman/visionctl/internal/detector"
	"github.com/ayusman/visionctl/internal/gesture"
)

func TestSaveTemplate_CreatesGesture(t *testing.T) {
	s := newTestStore(t)

	tmpl := gesture.Template{
		Name:      "rock",
		Samples:   [][]detector.Point3D{detector.FistLandmarks().Points, detector.PeaceLandmarks().Points},
		CreatedAt: time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
	}

	g, err := s.SaveTemplate(tmpl)
	if err != nil {
		t.Fatalf("SaveTemplate() error = %v", err)
	}
	if g.ID == "" || g.Name != "rock" || g.Samples != 2 {
		t.Errorf("unexpected gesture %+v", g)
	}

	stored, err := s.Gestures().GetByName("rock")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if stored.ID != g.ID || stored.Samples != 2 {
		t.Errorf("unexpected stored gesture %+v", stored)
	}

	samples, err := s.Samples().GetByGestureID(g.ID)
	if err != nil {
		t.Fatalf("GetByGestureID() error = %v", err)
	}
	if len(samples) != 2 || len(samples[1].Points) != detector.NumLandmarks {
		t.Fatalf("unexpected samples %+v", samples)
	}
	if samples[1].Points[detector.IndexTip] != detector.PeaceLandmarks().Points[detector.IndexTip] {
		t.Error("sample points did not round trip")
	}
}

func TestSaveTemplate_ReplacesExisting(t *testing.T) {
	s := newTestStore(t)

	first, err := s.SaveTemplate(gesture.Template{
		Name:    "rock",
		Samples: [][]detector.Point3D{detector.FistLandmarks().Points, detector.FistLandmarks().Points},
	})
	if err != nil {
		t.Fatalf("SaveTemplate() error = %v", err)
	}

	second, err := s.SaveTemplate(gesture.Template{
		Name:    "rock",
		Samples: [][]detector.Point3D{detector.PointLandmarks().Points},
	})
	if err != nil {
		t.Fatalf("SaveTemplate() error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected the gesture id to be kept, got %s and %s", first.ID, second.ID)
	}

	templates, err := s.Templates()
	if err != nil {
		t.Fatalf("Templates() error = %v", err)
	}
	if len(templates) != 1 || len(templates[0].Samples) != 1 {
		t.Fatalf("expected one template with one sample, got %+v", templates)
	}
	if templates[0].Samples[0][detector.IndexTip] != detector.PointLandmarks().Points[detector.IndexTip] {
		t.Error("expected the new sample")
	}
}

func TestTemplates_SortedByName(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"wave", "rock", "spock"} {
		if _, err := s.SaveTemplate(gesture.Template{
			Name:    name,
			Samples: [][]detector.Point3D{detector.FistLandmarks().Points},
		}); err != nil {
			t.Fatalf("SaveTemplate(%s) error = %v", name, err)
		}
	}

	templates, err := s.Templates()
	if err != nil {
		t.Fatalf("Templates() error = %v", err)
	}
	var names []string
	for _, tmpl := range templates {
		names = append(names, tmpl.Name)
	}
	if len(names) != 3 || names[0] != "rock" || names[1] != "spock" || names[2] != "wave" {
		t.Errorf("unexpected order %v", names)
	}
}

func TestGestureRepository_Delete(t *testing.T) {
	s := newTestStore(t)

	g, err := s.SaveTemplate(gesture.Template{
		Name:    "rock",
		Samples: [][]detector.Point3D{detector.FistLandmarks().Points},
	})
	if err != nil {
		t.Fatalf("SaveTemplate() error = %v", err)
	}

	if err := s.Gestures().DeleteByName("rock"); err != nil {
		t.Fatalf("DeleteByName() error = %v", err)
	}
	if _, err := s.Gestures().GetByID(g.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	samples, err := s.Samples().GetByGestureID(g.ID)
	if err != nil {
		t.Fatalf("GetByGestureID() error = %v", err)
	}
	if len(samples) != 0 {
		t.Errorf("expected samples to cascade, got %d", len(samples))
	}

	if err := s.Gestures().DeleteByName("rock"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
	if err := s.Gestures().Delete("no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGestureRepository_CreateAndList(t *testing.T) {
	s := newTestStore(t)
	repo := s.Gestures()

	g := &Gesture{ID: "g-1", Name: "zeta"}
	if err := repo.Create(g); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if g.CreatedAt.IsZero() || g.UpdatedAt.IsZero() {
		t.Error("timestamps should be set after create")
	}
	if err := repo.Create(&Gesture{ID: "g-2", Name: "zeta"}); err == nil {
		t.Error("expected unique name violation")
	}

	if err := s.Samples().Replace("g-1", [][]detector.Point3D{detector.FistLandmarks().Points}); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if err := s.Samples().Replace("missing", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown gesture, got %v", err)
	}

	list, err := repo.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 || list[0].Samples != 1 {
		t.Errorf("unexpected list %+v", list)
	}
}
