package api

import (
	"net/http"

	"github.com/okian/igot/pkg/logger"
)

// ChartsHandler serves the dashboard chart data and display settings.
type ChartsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewChartsHandler creates a new charts handler.
func NewChartsHandler(deps Dependencies) *ChartsHandler {
	return &ChartsHandler{deps: deps, logger: logger.Get().Named("api")}
}

// HandleCharts handles GET /api/charts?office=&date=.
func (h *ChartsHandler) HandleCharts(w http.ResponseWriter, r *http.Request) {
	const op = "api.charts"

	set, err := h.deps.Charts(r.Context(), criteriaFrom(r))
	if err != nil {
		respondError(w, r, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

type metaResponse struct {
	Locale string `json:"locale"`
	Today  string `json:"today"`
}

// HandleMeta handles GET /api/meta.
func (h *ChartsHandler) HandleMeta(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, metaResponse{Locale: h.deps.Locale(), Today: h.deps.Today()})
}
