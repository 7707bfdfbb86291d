package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ayusman/visionctl/internal/detector"
	"github.com/ayusman/visionctl/internal/gesture"
	"github.com/ayusman/visionctl/internal/store"
)

// maxTrainBody bounds a training request.
const maxTrainBody = 4 << 20

// TrainHandler serves POST /api/train-gesture.
type TrainHandler struct {
	store   *store.Store
	trainer *gesture.Trainer
	reload  ReloadFunc
	logger  zerolog.Logger
}

// NewTrainHandler creates a handler that persists trained gestures to s
// and then calls reload.
func NewTrainHandler(s *store.Store, reload ReloadFunc, logger zerolog.Logger) *TrainHandler {
	return &TrainHandler{store: s, trainer: gesture.NewTrainer(), reload: reload, logger: logger}
}

type rawPoint struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

type trainRequest struct {
	Name    string       `json:"name"`
	Samples [][]rawPoint `json:"samples"`
}

type trainResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	GestureName string `json:"gesture_name"`
	NumSamples  int    `json:"num_samples"`
	ID          string `json:"id"`
}

func (h *TrainHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req trainRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTrainBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	samples, err := toSamples(req.Samples)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tmpl, err := h.trainer.Train(req.Name, samples)
	if err != nil {
		if errors.Is(err, gesture.ErrInvalidSample) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	saved, err := h.store.SaveTemplate(tmpl)
	if err != nil {
		h.logger.Error().Err(err).Str("gesture", tmpl.Name).Msg("save trained gesture")
		writeError(w, http.StatusInternalServerError, "Failed to save gesture")
		return
	}

	if h.reload != nil {
		if err := h.reload(); err != nil {
			h.logger.Warn().Err(err).Str("gesture", tmpl.Name).Msg("reload after training failed")
		}
	}

	h.logger.Info().Str("gesture", tmpl.Name).Int("samples", len(tmpl.Samples)).Msg("custom gesture trained")
	writeJSON(w, http.StatusOK, trainResponse{
		Status:      "success",
		Message:     fmt.Sprintf("Gesture '%s' trained successfully", tmpl.Name),
		GestureName: tmpl.Name,
		NumSamples:  len(tmpl.Samples),
		ID:          saved.ID,
	})
}

// toSamples converts the request points, rejecting any landmark that lacks
// a coordinate.
func toSamples(raw [][]rawPoint) ([][]detector.Point3D, error) {
	out := make([][]detector.Point3D, len(raw))
	for i, sample := range raw {
		points := make([]detector.Point3D, len(sample))
		for j, p := range sample {
			if p.X == nil || p.Y == nil || p.Z == nil {
				return nil, fmt.Errorf("sample %d, landmark %d missing required keys (x, y, z)", i, j)
			}
			points[j] = detector.Point3D{X: *p.X, Y: *p.Y, Z: *p.Z}
		}
		out[i] = points
	}
	return out, nil
}
