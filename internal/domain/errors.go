package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUpstreamFetch     = errors.New("upstream fetch failed")
	ErrMalformedResponse = errors.New("malformed upstream response")
	ErrUnsupportedChain  = errors.New("unsupported chain")
)

// UpstreamError reports a failed call to the indexing API or the metadata
// service. Status is zero when no HTTP response was received.
type UpstreamError struct {
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamFetch
}
