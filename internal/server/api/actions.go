package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/ayusman/visionctl/internal/action"
	"github.com/ayusman/visionctl/internal/config"
)

// ActionHandler serves the gesture bindings and discovered plugins:
//
//	GET  /api/actions                  bindings and plugins
//	POST /api/actions/{gesture}/trigger runs the binding once
type ActionHandler struct {
	dispatcher *action.Dispatcher
	registry   *action.Registry
}

func NewActionHandler(d *action.Dispatcher, r *action.Registry) *ActionHandler {
	return &ActionHandler{dispatcher: d, registry: r}
}

type bindingResponse struct {
	Gesture string `json:"gesture"`
	config.Binding
}

type pluginResponse struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Actions     []string `json:"actions"`
}

type listActionsResponse struct {
	Bindings []bindingResponse `json:"bindings"`
	Plugins  []pluginResponse  `json:"plugins"`
}

func (h *ActionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/actions"), "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w)
		return
	}

	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "trigger" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.trigger(w, parts[0])
}

func (h *ActionHandler) list(w http.ResponseWriter) {
	resp := listActionsResponse{
		Bindings: []bindingResponse{},
		Plugins:  []pluginResponse{},
	}

	if h.dispatcher != nil {
		bindings := h.dispatcher.Bindings()
		for name, b := range bindings {
			resp.Bindings = append(resp.Bindings, bindingResponse{Gesture: name, Binding: b})
		}
		sort.Slice(resp.Bindings, func(i, j int) bool { return resp.Bindings[i].Gesture < resp.Bindings[j].Gesture })
	}
	if h.registry != nil {
		for _, p := range h.registry.List() {
			resp.Plugins = append(resp.Plugins, pluginResponse{
				Name:        p.Manifest.Name,
				Version:     p.Manifest.Version,
				Description: p.Manifest.Description,
				Actions:     p.Manifest.Actions,
			})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ActionHandler) trigger(w http.ResponseWriter, gestureName string) {
	if h.dispatcher == nil {
		writeError(w, http.StatusServiceUnavailable, "Actions are disabled")
		return
	}
	if _, ok := h.dispatcher.Bindings()[gestureName]; !ok {
		writeError(w, http.StatusNotFound, "No action bound to gesture")
		return
	}
	if !h.dispatcher.Gesture(gestureName) {
		writeError(w, http.StatusServiceUnavailable, "Action not started")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "gesture": gestureName})
}
