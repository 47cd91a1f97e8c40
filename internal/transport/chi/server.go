package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/findex/internal/domain"
	"github.com/kailas-cloud/findex/internal/domain/answer"
	"github.com/kailas-cloud/findex/internal/domain/query"
	healthuc "github.com/kailas-cloud/findex/internal/usecase/health"
	routeruc "github.com/kailas-cloud/findex/internal/usecase/router"
)

// Server exposes the query router over HTTP.
type Server struct {
	router *routeruc.Service
	health *healthuc.Service
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(router *routeruc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	return &Server{router: router, health: health, logger: logger}
}

// Routes mounts the API endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/query", s.handleQuery)
	r.Post("/v1/query/confirm", s.handleConfirm)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	q, err := query.New(req.Query, req.SessionID, query.ThinkingMode(req.Mode))
	if err != nil {
		if errors.Is(err, domain.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, answer.CodeEmptyQuery, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	resp, err := s.router.Process(r.Context(), q)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, responseToDTO(resp))
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.CorrelationID == "" || req.Choice == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "correlation_id and choice are required")
		return
	}

	resp, err := s.router.Confirm(r.Context(), req.SessionID, req.CorrelationID, req.Choice)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, responseToDTO(resp))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// writeQueryError maps router failures onto HTTP statuses. ErrorResponse
// values carry their own code and suggestion; sentinels map individually.
func (s *Server) writeQueryError(w http.ResponseWriter, err error) {
	var er *answer.ErrorResponse
	if errors.As(err, &er) {
		status := http.StatusInternalServerError
		switch er.Code {
		case answer.CodeEmptyQuery:
			status = http.StatusBadRequest
		case answer.CodeDegraded:
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, errorBody{
			Code:       er.Code,
			Message:    er.Message,
			Suggestion: er.Suggestion,
			Fallback:   findingsToDTO(er.Fallback),
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, answer.CodeEmptyQuery, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "no pending confirmation for this correlation ID")
	case errors.Is(err, domain.ErrConfirmationExpired):
		writeError(w, http.StatusGone, "confirmation_expired", "confirmation window has expired, re-run the query")
	case errors.Is(err, domain.ErrLLMQuotaExceeded):
		writeError(w, http.StatusTooManyRequests, "llm_quota_exceeded", domain.ErrLLMQuotaExceeded.Error())
	default:
		s.logger.Error("query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, answer.CodeInternal, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message, Fallback: []findingDTO{}})
}
