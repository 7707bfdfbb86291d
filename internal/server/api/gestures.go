package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/visionctl/internal/gesture"
	"github.com/ayusman/visionctl/internal/store"
)

// ReloadFunc rebuilds the classifier's template snapshot.
type ReloadFunc func() error

// GestureHandler serves /api/gestures and /api/gestures/{name}.
type GestureHandler struct {
	store   *store.Store
	library *gesture.Library
	reload  ReloadFunc
	logger  zerolog.Logger
}

// NewGestureHandler creates a handler over the trained gesture store.
// library is the live snapshot, used to report which templates are loaded.
func NewGestureHandler(s *store.Store, library *gesture.Library, reload ReloadFunc, logger zerolog.Logger) *GestureHandler {
	return &GestureHandler{store: s, library: library, reload: reload, logger: logger}
}

func (h *GestureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/gestures"), "/")

	if name == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, name)
	case http.MethodDelete:
		h.delete(w, name)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type gestureResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	NumSamples int    `json:"num_samples"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type listGesturesResponse struct {
	Gestures []gestureResponse `json:"gestures"`
	// Loaded lists every template the classifier currently holds,
	// including those from the template document.
	Loaded []string `json:"loaded"`
}

func toResponse(g *store.Gesture) gestureResponse {
	return gestureResponse{
		ID:         g.ID,
		Name:       g.Name,
		NumSamples: g.Samples,
		CreatedAt:  g.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  g.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *GestureHandler) list(w http.ResponseWriter) {
	gestures, err := h.store.Gestures().List()
	if err != nil {
		h.logger.Error().Err(err).Msg("list gestures")
		writeError(w, http.StatusInternalServerError, "Failed to list gestures")
		return
	}

	resp := listGesturesResponse{
		Gestures: make([]gestureResponse, 0, len(gestures)),
		Loaded:   []string{},
	}
	for _, g := range gestures {
		resp.Gestures = append(resp.Gestures, toResponse(g))
	}
	if h.library != nil {
		if names := h.library.Load().Names(); names != nil {
			resp.Loaded = names
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *GestureHandler) get(w http.ResponseWriter, name string) {
	g, err := h.store.Gestures().GetByName(gesture.NormalizeName(name))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Gesture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get gesture")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(g))
}

func (h *GestureHandler) delete(w http.ResponseWriter, name string) {
	name = gesture.NormalizeName(name)
	if err := h.store.Gestures().DeleteByName(name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Gesture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete gesture")
		return
	}

	if h.reload != nil {
		if err := h.reload(); err != nil {
			h.logger.Warn().Err(err).Str("gesture", name).Msg("reload after delete failed")
		}
	}
	h.logger.Info().Str("gesture", name).Msg("gesture deleted")
	w.WriteHeader(http.StatusNoContent)
}
