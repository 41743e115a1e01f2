package ctarchive

import "errors"

// Error kinds from spec.md §7, for the errors that originate at the
// orchestration layer rather than inside F, H, or P.
var (
	// ErrConfigInvalid is raised when a required configuration option is
	// missing.
	ErrConfigInvalid = errors.New("configuration invalid")

	// ErrPathUnusable names the error kind for a root_dir or torrent_dir
	// that cannot be created or written to. No function in this module
	// returns it: a failure to create either directory surfaces as the
	// wrapped os error from the stage that hit it.
	ErrPathUnusable = errors.New("path unusable")

	// ErrRootMismatch is raised when H's recomputed global root does not
	// match the STH's sha256_root_hash. The archive for this tree_size is
	// invalid and must not be packaged.
	ErrRootMismatch = errors.New("recomputed root does not match sth root")
)
