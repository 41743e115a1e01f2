package ctlog

import "errors"

// ErrLogUnknown is returned when a log URL has no matching entry in the
// log-list file (spec.md §7's LogUnknown kind).
var ErrLogUnknown = errors.New("log unknown: no matching entry in log list")

// ErrSTHSignatureInvalid is returned when an STH's tree_head_signature
// does not verify against the log's public key (spec.md §7's
// STHSignatureInvalid kind).
var ErrSTHSignatureInvalid = errors.New("sth signature invalid")

// ErrHTTPTransient wraps any non-200 status or transport-level failure
// talking to the log. The fetcher treats it as retryable; nothing else
// should ever see it escape internal/fetcher.
var ErrHTTPTransient = errors.New("http transient error")
