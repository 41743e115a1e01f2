// Package ctarchive is the top-level orchestrator: it drives F, H, and P
// in sequence against one log, mirroring the original tool's
// process_log entry point.
package ctarchive

import (
	"fmt"
	"runtime"

	"github.com/ctarchive/ctarchiver/internal/packager"
)

// Config is the typed configuration record the re-architecture notes
// (spec.md §9) ask for in place of the original's dynamic config dict:
// every option named in §6, with explicit optionality.
type Config struct {
	LogListFile string
	DownloadURL string
	RootDir     string // default "/tmp"
	TorrentDir  string // default "/tmp"
	ASN         string
	Workers     int

	Trackers []string
	Peers    []packager.Peer

	PackageSize uint64 // P, default 1024
	BundleSize  uint64 // B, default 1024
	StepSize    uint64 // desired get-entries step, default 1024
}

// Validate checks the required options, surfacing ErrConfigInvalid per
// spec.md §7.
func (c *Config) Validate() error {
	if c.LogListFile == "" {
		return fmt.Errorf("%w: log_list_file is required", ErrConfigInvalid)
	}
	if c.DownloadURL == "" {
		return fmt.Errorf("%w: download_url is required", ErrConfigInvalid)
	}
	if c.RootDir == "" {
		c.RootDir = "/tmp"
	}
	if c.TorrentDir == "" {
		c.TorrentDir = "/tmp"
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.PackageSize == 0 {
		c.PackageSize = 1024
	}
	if c.BundleSize == 0 {
		c.BundleSize = 1024
	}
	if c.StepSize == 0 {
		c.StepSize = 1024
	}
	return nil
}
