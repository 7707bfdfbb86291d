package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/visionctl/internal/detector"
	"github.com/ayusman/visionctl/internal/gesture"
)

// SaveTemplate stores t, replacing any gesture with the same name.
func (s *Store) SaveTemplate(t gesture.Template) (*Gesture, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	g := &Gesture{Name: t.Name, Samples: len(t.Samples)}
	err = tx.QueryRow(`SELECT id, created_at FROM gestures WHERE name = ?`, t.Name).Scan(&g.ID, &g.CreatedAt)
	switch {
	case err == nil:
	case isNoRows(err):
		g.ID = uuid.NewString()
		g.CreatedAt = t.CreatedAt
		if g.CreatedAt.IsZero() {
			g.CreatedAt = time.Now()
		}
		if _, err := tx.Exec(
			`INSERT INTO gestures (id, name, samples, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			g.ID, g.Name, 0, g.CreatedAt, g.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("insert gesture: %w", err)
		}
	default:
		return nil, fmt.Errorf("lookup gesture: %w", err)
	}

	if err := replaceSamples(tx, g.ID, t.Samples); err != nil {
		return nil, fmt.Errorf("store samples: %w", err)
	}
	g.UpdatedAt = time.Now()

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return g, nil
}

// Templates loads every stored gesture with its samples.
func (s *Store) Templates() ([]gesture.Template, error) {
	gestures, err := s.Gestures().List()
	if err != nil {
		return nil, fmt.Errorf("list gestures: %w", err)
	}

	samples := s.Samples()
	out := make([]gesture.Template, 0, len(gestures))
	for _, g := range gestures {
		rows, err := samples.GetByGestureID(g.ID)
		if err != nil {
			return nil, fmt.Errorf("load samples for %s: %w", g.Name, err)
		}
		t := gesture.Template{
			Name:      g.Name,
			CreatedAt: g.CreatedAt,
			Samples:   make([][]detector.Point3D, 0, len(rows)),
		}
		for _, r := range rows {
			t.Samples = append(t.Samples, r.Points)
		}
		out = append(out, t)
	}
	return out, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
