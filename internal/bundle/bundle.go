// Package bundle reads and writes the gzip-compressed JSON bundle files
// that hold a contiguous run of log entries, in the archive's on-disk
// bundle format.
package bundle

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"

	ct "github.com/google/certificate-transparency-go"

	"github.com/ctarchive/ctarchiver/internal/atomicfile"
)

// File is the inner shape of a bundle: a JSON object mirroring the log's
// get-entries response, {"entries":[{leaf_input, extra_data}, ...]},
// entries kept in log order.
type File struct {
	Entries []ct.LeafEntry `json:"entries"`
}

// Write gzips and atomically writes a bundle's entries to path.
func Write(path string, entries []ct.LeafEntry) error {
	body, err := json.Marshal(File{Entries: entries})
	if err != nil {
		return fmt.Errorf("marshaling bundle: %w", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(body); err != nil {
		return fmt.Errorf("gzipping bundle: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("closing gzip writer: %w", err)
	}

	return atomicfile.Write(path, buf.Bytes(), 0o644)
}

// Read reads and decompresses a bundle file, returning its entries in
// on-disk order.
func Read(path string) ([]ct.LeafEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening bundle %q: %w", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("opening gzip reader for %q: %w", path, err)
	}
	defer gz.Close()

	body, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("reading bundle %q: %w", path, err)
	}

	var file File
	if err := json.Unmarshal(body, &file); err != nil {
		return nil, fmt.Errorf("decoding bundle %q: %w", path, err)
	}
	return file.Entries, nil
}
