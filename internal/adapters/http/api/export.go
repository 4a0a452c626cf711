package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/igot/internal/adapters/export"
	"github.com/okian/igot/pkg/logger"
)

// ExportHandler serves the report table as a spreadsheet.
type ExportHandler struct {
	deps   Dependencies
	logger logger.Logger
	now    func() time.Time
}

// NewExportHandler creates a new export handler.
func NewExportHandler(deps Dependencies) *ExportHandler {
	return &ExportHandler{deps: deps, logger: logger.Get().Named("api"), now: time.Now}
}

// HandleExport handles GET /api/reports/export?office=&date=. Rows are
// ordered newest date first.
func (h *ExportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export"

	list, err := h.deps.Export(r.Context(), criteriaFrom(r))
	if err != nil {
		respondError(w, r, h.logger, op, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, list); err != nil {
		respondError(w, r, h.logger, op, err)
		return
	}

	name := fmt.Sprintf("igot-reports-%s.xlsx", h.now().UTC().Format(time.DateOnly))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
