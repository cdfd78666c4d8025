package pubmed

import (
	"errors"
	"fmt"
)

// ErrInvalidPMID is returned when an operation requires a valid PMID and
// none of the supplied identifiers qualify.
var ErrInvalidPMID = errors.New("invalid PMID")

// ErrEmptyQuery is returned when a search operation is called without a
// usable query term.
var ErrEmptyQuery = errors.New("query must not be empty")

// StatusError reports a non-2xx response from the NCBI API. Its message
// carries the numeric status so the retry layer can classify it.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("NCBI API error (status %d): %s", e.StatusCode, e.Body)
}
