package server

import "errors"

var (
	// ErrMissingParameter indicates a required query parameter is absent or empty.
	ErrMissingParameter = errors.New("missing query parameter")

	// ErrInvalidParameter indicates a query parameter that cannot be parsed.
	ErrInvalidParameter = errors.New("invalid query parameter")

	// ErrInvalidBody indicates a request body that is unreadable or not UTF-8.
	ErrInvalidBody = errors.New("invalid request body")

	// ErrPipelineRequired is returned when no ingestion pipeline is provided.
	ErrPipelineRequired = errors.New("ingestion pipeline required")

	// ErrSearcherRequired is returned when no searcher is provided.
	ErrSearcherRequired = errors.New("searcher required")

	// ErrStoreRequired is returned when no collection store is provided.
	ErrStoreRequired = errors.New("collection store required")

	// ErrIngestionPanicked reports a pipeline run that panicked.
	ErrIngestionPanicked = errors.New("ingestion panicked")
)
