package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfrec/internal/domain"
)

// ErrorCode is the machine-readable part of an error response.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeValidationFailed  ErrorCode = "validation_failed"
	CodeDomainNotFound    ErrorCode = "domain_not_found"
	CodeDomainUnavailable ErrorCode = "domain_unavailable"
	CodeNoResult          ErrorCode = "no_result"
	CodeDatasetInvalid    ErrorCode = "dataset_invalid"
	CodePayloadTooLarge   ErrorCode = "payload_too_large"
	CodeRateLimited       ErrorCode = "rate_limited"
	CodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// domainErrorMapping ties a sentinel error to its HTTP status and code.
type domainErrorMapping struct {
	sentinel error
	status   int
	code     ErrorCode
}

// domainErrors is checked in order by handlers, messages and stream events.
var domainErrors = []domainErrorMapping{
	{domain.ErrUnknownDomain, http.StatusNotFound, CodeDomainNotFound},
	{domain.ErrDomainUnavailable, http.StatusServiceUnavailable, CodeDomainUnavailable},
	{domain.ErrInvalidQuery, http.StatusBadRequest, CodeValidationFailed},
	{domain.ErrNoResult, http.StatusNotFound, CodeNoResult},
	{domain.ErrDatasetInvalid, http.StatusUnprocessableEntity, CodeDatasetInvalid},
}

func defaultErrorHandlers() []errorHandler {
	handlers := []errorHandler{payloadTooLargeHandler}
	for _, m := range domainErrors {
		handlers = append(handlers, sentinelHandler(m.sentinel, m.status, m.code))
	}
	return handlers
}

// domainErrorBody returns the error body a client sees for err.
func domainErrorBody(err error) ErrorResponse {
	for _, m := range domainErrors {
		if errors.Is(err, m.sentinel) {
			return ErrorResponse{Code: m.code, Message: m.sentinel.Error()}
		}
	}
	return ErrorResponse{Code: CodeInternalError, Message: "internal error"}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	return domainErrorBody(err).Message
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// payloadTooLargeHandler handles uploads cut off by http.MaxBytesReader.
func payloadTooLargeHandler(w http.ResponseWriter, err error, _ string) bool {
	var mbe *http.MaxBytesError
	if !errors.As(err, &mbe) {
		return false
	}
	writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "dataset exceeds upload limit")
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
