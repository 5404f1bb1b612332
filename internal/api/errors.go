package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"docreader/internal/extract"
	"docreader/internal/logging"
	"docreader/internal/relevance"
	"docreader/internal/summary"

	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr answers with {"error": message, "code": code}. Client errors echo
// the validation message; server errors are logged and answered generically.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, status int, err error) {
	apiErr := toAPIError(status, err)
	if status >= 500 {
		s.logger.Error("request failed", append(logging.ContextFields(r.Context()),
			zap.String("path", r.URL.Path),
			zap.String("code", apiErr.Code),
			zap.Error(err))...)
	}
	writeJSON(w, status, map[string]any{
		"error": apiErr.Message,
		"code":  apiErr.Code,
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	switch {
	case status >= 500:
		var se *relevance.ScoringError
		switch {
		case errors.As(err, &se):
			return apiError{Code: "DR-API-5021", Message: "Relevance scoring failed for part of the document. Retry shortly."}
		case errors.Is(err, relevance.ErrBackendUnavailable):
			return apiError{Code: "DR-API-5020", Message: "Scoring backend unavailable. Retry shortly."}
		}
		return apiError{Code: "DR-API-5000", Message: "Internal server error. Please retry or check service logs."}
	case status == http.StatusMethodNotAllowed:
		return apiError{Code: "DR-API-4005", Message: "This endpoint does not support the requested method."}
	}

	code := "DR-API-4000"
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat):
		code = "DR-API-4002"
	case errors.Is(err, extract.ErrNoTextFound):
		code = "DR-API-4003"
	case errors.Is(err, relevance.ErrInvalidInput):
		code = "DR-API-4001"
	case errors.Is(err, summary.ErrNoPages), errors.Is(err, errNoRelevantPages):
		code = "DR-API-4006"
	}
	msg := "Invalid request. Check inputs and retry."
	if err != nil {
		msg = err.Error()
	}
	return apiError{Code: code, Message: msg}
}
