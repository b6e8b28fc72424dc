package repository

import (
	"context"
	"errors"
)

var (
	ErrTransientNetwork = errors.New("transient network error")
	ErrRateLimited      = errors.New("rate limited")
	ErrNoData           = errors.New("no data")
	ErrMissingSibling   = errors.New("missing sibling table")
	ErrMissingHeatmap   = errors.New("missing heatmap")
	ErrStoreIO          = errors.New("store io")
	ErrTableNotFound    = errors.New("table not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrRunInProgress    = errors.New("pipeline run already in progress")
)

// ErrorKind is the failure class used for logging, metrics and retry decisions.
type ErrorKind string

const (
	KindNone             ErrorKind = ""
	KindTransientNetwork ErrorKind = "transient_network"
	KindRateLimited      ErrorKind = "rate_limited"
	KindNoData           ErrorKind = "no_data"
	KindMissingSibling   ErrorKind = "missing_sibling"
	KindMissingHeatmap   ErrorKind = "missing_heatmap"
	KindStoreIO          ErrorKind = "store_io"
	KindInvalidInput     ErrorKind = "invalid_input"
	KindCanceled         ErrorKind = "canceled"
	KindUnknown          ErrorKind = "unknown"
)

// Classify maps err onto the failure taxonomy. A missing table counts as a
// missing sibling: callers only load tables another stage should have written.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrTransientNetwork):
		return KindTransientNetwork
	case errors.Is(err, ErrNoData):
		return KindNoData
	case errors.Is(err, ErrMissingSibling), errors.Is(err, ErrTableNotFound):
		return KindMissingSibling
	case errors.Is(err, ErrMissingHeatmap):
		return KindMissingHeatmap
	case errors.Is(err, ErrStoreIO):
		return KindStoreIO
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindUnknown
	}
}
