package api

import (
	"net/http"

	"github.com/ayusman/visionctl/internal/combo"
)

// ComboHandler serves GET /api/combos.
type ComboHandler struct {
	catalog *combo.Catalog
}

func NewComboHandler(catalog *combo.Catalog) *ComboHandler {
	return &ComboHandler{catalog: catalog}
}

type listCombosResponse struct {
	Combos []combo.Definition `json:"combos"`
}

func (h *ComboHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	defs := h.catalog.Definitions()
	if defs == nil {
		defs = []combo.Definition{}
	}
	writeJSON(w, http.StatusOK, listCombosResponse{Combos: defs})
}
