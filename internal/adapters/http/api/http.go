// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/igot/internal/adapters/repository"
	"github.com/okian/igot/internal/domain/aggregate"
	"github.com/okian/igot/internal/domain/chart"
	"github.com/okian/igot/internal/domain/report"
	"github.com/okian/igot/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// SubmitForm parses, validates and stores a raw submission.
	SubmitForm(ctx context.Context, f report.Form) (report.Report, error)

	// Read operations expose stored reports and derived views.
	Reports(ctx context.Context, recent bool) ([]report.Report, error)
	Latest(ctx context.Context, office string) (report.Report, error)
	Filter(ctx context.Context, c aggregate.Criteria, recent bool) ([]report.Report, error)
	Summary(ctx context.Context) (report.Summary, error)
	Offices(ctx context.Context) ([]string, error)
	Charts(ctx context.Context, c aggregate.Criteria) (chart.Set, error)
	Export(ctx context.Context, c aggregate.Criteria) ([]report.Report, error)

	// Display settings for the dashboard.
	Locale() string
	Today() string

	Ping(ctx context.Context) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	reportsHandler *ReportsHandler
	chartsHandler  *ChartsHandler
	exportHandler  *ExportHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(deps),
		statsHandler:   NewStatsHandler(statsProvider),
		reportsHandler: NewReportsHandler(deps),
		chartsHandler:  NewChartsHandler(deps),
		exportHandler:  NewExportHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /api/reports", MetricsMiddleware(s.reportsHandler.HandleCreate, "create_report"))
	mux.HandleFunc("GET /api/reports", MetricsMiddleware(s.reportsHandler.HandleList, "list_reports"))
	mux.HandleFunc("GET /api/reports/office/{officeId}", MetricsMiddleware(s.reportsHandler.HandleLatest, "latest_report"))
	mux.HandleFunc("GET /api/reports/filter", MetricsMiddleware(s.reportsHandler.HandleFilter, "filter_reports"))
	mux.HandleFunc("GET /api/reports/summary", MetricsMiddleware(s.reportsHandler.HandleSummary, "summary"))
	mux.HandleFunc("GET /api/reports/export", MetricsMiddleware(s.exportHandler.HandleExport, "export"))
	mux.HandleFunc("GET /api/offices", MetricsMiddleware(s.reportsHandler.HandleOffices, "offices"))
	mux.HandleFunc("GET /api/charts", MetricsMiddleware(s.chartsHandler.HandleCharts, "charts"))
	mux.HandleFunc("GET /api/meta", MetricsMiddleware(s.chartsHandler.HandleMeta, "meta"))
}

type messageResponse struct {
	Msg string `json:"msg"`
}

type errorResponse struct {
	Msg  string `json:"msg"`
	Code string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError sends {msg, code}. Only validation messages and client errors
// reach the caller verbatim; everything else is reduced to the status text.
func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, errorResponse{Msg: publicMessage(status, err), Code: code})
}

func publicMessage(status int, err error) string {
	if err != nil && status < http.StatusInternalServerError {
		var ve *report.ValidationError
		if errors.As(err, &ve) {
			return ve.Msg
		}
		var ce *clientError
		if errors.As(err, &ce) {
			return ce.msg
		}
	}
	if status >= http.StatusInternalServerError {
		return "Server error"
	}
	return http.StatusText(status)
}

// respondError maps a dependency error to its HTTP status. Server errors
// are logged in full.
func respondError(w http.ResponseWriter, r *http.Request, log logger.Logger, op string, err error) {
	switch {
	case report.IsValidation(err):
		writeError(w, http.StatusBadRequest, "invalid_report", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	default:
		log.Error(r.Context(), "request failed",
			logger.String("op", op),
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
