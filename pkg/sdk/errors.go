package shelfrec

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by APIError. Use errors.Is() to check.
var (
	ErrUnknownDomain     = errors.New("unknown domain")
	ErrDomainUnavailable = errors.New("domain unavailable")
	ErrInvalidQuery      = errors.New("invalid query")
	ErrNoResult          = errors.New("no result")
	ErrDatasetInvalid    = errors.New("dataset invalid")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrRateLimited       = errors.New("rate limited")
)

var codeSentinels = map[string]error{
	"domain_not_found":   ErrUnknownDomain,
	"domain_unavailable": ErrDomainUnavailable,
	"validation_failed":  ErrInvalidQuery,
	"bad_request":        ErrInvalidQuery,
	"no_result":          ErrNoResult,
	"dataset_invalid":    ErrDatasetInvalid,
	"payload_too_large":  ErrDatasetInvalid,
	"unauthorized":       ErrUnauthorized,
	"rate_limited":       ErrRateLimited,
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shelfrec: %d %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap returns the sentinel error matching Code, if any.
func (e *APIError) Unwrap() error {
	return codeSentinels[e.Code]
}
