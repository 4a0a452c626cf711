package api

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/okian/igot/internal/adapters/repository"
	"github.com/okian/igot/internal/domain/aggregate"
	"github.com/okian/igot/internal/domain/report"
	"github.com/okian/igot/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Ordering values accepted by the order query parameter.
const (
	orderInsertion = "insertion"
	orderRecent    = "recent"
)

// ReportsHandler serves report submission and the report read endpoints.
type ReportsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(deps Dependencies) *ReportsHandler {
	return &ReportsHandler{deps: deps, logger: logger.Get().Named("api")}
}

// HandleCreate handles POST /api/reports. The body is a report as JSON or
// as url-encoded form fields.
func (h *ReportsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_report"

	form, err := decodeForm(w, r)
	if err != nil {
		if errors.Is(err, ErrUnsupported) {
			writeError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", err)
			return
		}
		if errors.Is(err, ErrTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", err)
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	stored, err := h.deps.SubmitForm(r.Context(), form)
	if err != nil {
		respondError(w, r, h.logger, op, err)
		return
	}
	h.logger.Debug(r.Context(), "report stored",
		logger.String("office", stored.Office),
		logger.String("date", stored.Date),
	)
	writeJSON(w, http.StatusCreated, messageResponse{Msg: "Report submitted successfully"})
}

func decodeForm(w http.ResponseWriter, r *http.Request) (report.Form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType := "application/json"
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return report.Form{}, newClientError(ErrUnsupported, "Content-Type is malformed")
		}
		mediaType = mt
	}

	switch mediaType {
	case "application/json":
		var f report.Form
		if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
			return report.Form{}, bodyError(err, "Request body must be a JSON report")
		}
		return f, nil
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return report.Form{}, bodyError(err, "Request body must be form fields")
		}
		return report.FormFromValues(r.PostForm), nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return report.Form{}, bodyError(err, "Request body must be form fields")
		}
		return report.FormFromValues(r.PostForm), nil
	default:
		return report.Form{}, newClientError(ErrUnsupported, "Content-Type must be JSON or form encoded")
	}
}

// bodyError classifies a body read failure: an oversized body is ErrTooLarge,
// anything else is a bad request carrying msg.
func bodyError(err error, msg string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return newClientError(ErrTooLarge, "Request body must not exceed 1 MiB")
	}
	return newClientError(ErrBadRequest, msg)
}

// HandleList handles GET /api/reports[?order=recent].
func (h *ReportsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_reports"

	recent, err := recentOrder(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	list, err := h.deps.Reports(r.Context(), recent)
	if err != nil {
		respondError(w, r, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleLatest handles GET /api/reports/office/{officeId}.
func (h *ReportsHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	const op = "api.latest_report"

	office := strings.TrimSpace(r.PathValue("officeId"))
	if office == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, newClientError(ErrBadRequest, "office is required")))
		return
	}
	latest, err := h.deps.Latest(r.Context(), office)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, newClientError(ErrNotFound, "No reports found for this office")))
		return
	}
	if err != nil {
		respondError(w, r, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

// HandleFilter handles GET /api/reports/filter?office=&date=[&order=recent].
func (h *ReportsHandler) HandleFilter(w http.ResponseWriter, r *http.Request) {
	const op = "api.filter_reports"

	recent, err := recentOrder(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	list, err := h.deps.Filter(r.Context(), criteriaFrom(r), recent)
	if err != nil {
		respondError(w, r, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleSummary handles GET /api/reports/summary.
func (h *ReportsHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.summary"

	sum, err := h.deps.Summary(r.Context())
	if err != nil {
		respondError(w, r, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleOffices handles GET /api/offices.
func (h *ReportsHandler) HandleOffices(w http.ResponseWriter, r *http.Request) {
	const op = "api.offices"

	offices, err := h.deps.Offices(r.Context())
	if err != nil {
		respondError(w, r, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, offices)
}

func criteriaFrom(r *http.Request) aggregate.Criteria {
	q := r.URL.Query()
	return aggregate.Criteria{Office: q.Get("office"), Date: q.Get("date")}
}

func recentOrder(r *http.Request) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("order"))) {
	case "", orderInsertion:
		return false, nil
	case orderRecent:
		return true, nil
	default:
		return false, newClientError(ErrBadRequest, "order must be insertion or recent")
	}
}
