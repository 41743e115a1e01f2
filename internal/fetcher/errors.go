package fetcher

import "errors"

// ErrBundleSizeInvalid is returned when the configured bundle size is
// not a power of two (spec.md §3's "MUST refuse B not a power of two").
var ErrBundleSizeInvalid = errors.New("bundle size must be a power of two")

// ErrNothingToFetch is returned when the resume index is already at or
// beyond the STH's tree_size: the log has no new entries for this run.
// It is not a failure; the orchestrator treats it as "already archived".
var ErrNothingToFetch = errors.New("nothing to fetch: resume index at or beyond tree_size")
