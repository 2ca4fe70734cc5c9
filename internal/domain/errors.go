package domain

import "errors"

var (
	// ErrUnknownDomain signals a domain name that is not books, courses or movies.
	ErrUnknownDomain = errors.New("unknown domain")
	// ErrDomainUnavailable signals a domain whose dataset failed to load.
	ErrDomainUnavailable = errors.New("domain unavailable")
	// ErrDatasetNotFound signals a missing dataset file.
	ErrDatasetNotFound = errors.New("dataset not found")
	// ErrDatasetInvalid signals a dataset that could not be decoded or lacks required columns.
	ErrDatasetInvalid = errors.New("dataset invalid")
	// ErrInvalidQuery signals query parameters rejected by the shell.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNoResult signals that the session holds no result to export.
	ErrNoResult = errors.New("no result")
)

// KeyPrefix namespaces every key written to the shared KV store.
const KeyPrefix = "shelfrec:"
