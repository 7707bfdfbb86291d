package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"github.com/ayusman/visionctl/internal/detector"
	"github.com/ayusman/visionctl/internal/gateway"
	"github.com/ayusman/visionctl/internal/gesture"
	"github.com/ayusman/visionctl/internal/store"
)

// TestTrainThenRecognize trains a custom gesture over HTTP and then sees it
// recognized on the WebSocket.
func TestTrainThenRecognize(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()

	library := gesture.NewLibrary(nil)
	reload := func() error {
		templates, err := st.Templates()
		if err != nil {
			return err
		}
		library.Swap(gesture.NewTemplateSet(templates))
		return nil
	}

	det := detector.NewMockDetector()
	gw := gateway.NewHandler(gateway.Options{
		Detector:   det,
		Classifier: gesture.NewClassifier(library, gesture.DefaultSensitivity),
		Logger:     zerolog.Nop(),
		Decode: func(string, int, int) (*gocv.Mat, error) {
			m := gocv.NewMat()
			return &m, nil
		},
	})

	srv := New(Config{
		Gateway:         gw,
		Store:           st,
		Library:         library,
		ReloadTemplates: reload,
		Logger:          zerolog.Nop(),
	})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	pose := detector.FingerPose([5]bool{true, true, false, false, true})
	sample, _ := json.Marshal(pose.Points)
	body := `{"name": "Rock On", "samples": [` + string(sample) + `]}`

	resp, err := http.Post(ts.URL+"/api/train-gesture", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST /api/train-gesture: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("train status = %d", resp.StatusCode)
	}
	if library.Load().Len() != 1 {
		t.Fatalf("expected template snapshot reloaded, got %d templates", library.Load().Len())
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/gestures", nil)
	if err != nil {
		t.Fatalf("dial through middleware: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var status map[string]any
	if err := conn.ReadJSON(&status); err != nil || status["type"] != gateway.TypeStatus {
		t.Fatalf("expected status message, got %v (%v)", status, err)
	}

	det.SetHands(pose)
	conn.WriteJSON(map[string]any{"type": "video_frame", "frame": "x", "sequence": 1, "timestamp": 1})

	var detected gateway.GestureDetected
	if err := conn.ReadJSON(&detected); err != nil {
		t.Fatalf("read gesture: %v", err)
	}
	if detected.Type != gateway.TypeGestureDetected || detected.Gesture == nil || *detected.Gesture != "rock_on" {
		t.Errorf("expected rock_on, got %+v", detected)
	}

	var health healthResponse
	hr, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	json.NewDecoder(hr.Body).Decode(&health)
	hr.Body.Close()
	if health.Connections != 1 || !health.Enabled || health.Templates != 1 {
		t.Errorf("unexpected health %+v", health)
	}
}
