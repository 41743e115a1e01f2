// Package ctlog talks to a single Certificate Transparency log over
// HTTPS: fetching and verifying its STH, probing its effective
// get-entries batch size, and streaming entries. Log-list loading
// (loglist.go) is adapted from the teacher's personalities/sctfe
// config-loading shape, generalized from its protobuf log-config-set
// format to the archiver's simpler JSON log-list file.
package ctlog

import (
	"encoding/json"
	"fmt"
	"os"

	ctx509 "github.com/google/certificate-transparency-go/x509"
	"k8s.io/klog/v2"
)

// LogEntry is one entry of the log-list file: {url, key, ...}. Unknown
// fields (description, log_id, mmd, ...) are accepted but ignored, same
// trust posture as spec.md §1's "trust anchoring is out of scope".
type LogEntry struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// LogList is the parsed {"logs": [...]} log-list file.
type LogList struct {
	Logs []LogEntry `json:"logs"`
}

// LoadLogList reads and parses a log-list file. It does not validate
// individual entries; validation happens lazily in Lookup so a
// single malformed key in an otherwise-unused entry doesn't block
// archiving a different log in the same file.
func LoadLogList(path string) (*LogList, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading log list %q: %w", path, err)
	}
	var ll LogList
	if err := json.Unmarshal(body, &ll); err != nil {
		return nil, fmt.Errorf("decoding log list %q: %w", path, err)
	}
	return &ll, nil
}

// Lookup finds the entry matching url exactly and parses its DER public
// key, per §6's "Looked up by exact url match".
func (ll *LogList) Lookup(url string) (publicKey interface{}, err error) {
	for _, e := range ll.Logs {
		if e.URL != url {
			continue
		}
		der, err := decodeBase64(e.Key)
		if err != nil {
			return nil, fmt.Errorf("decoding public key for log %q: %w", url, err)
		}
		key, err := ctx509.ParsePKIXPublicKey(der)
		if err != nil {
			return nil, fmt.Errorf("parsing public key for log %q: %w", url, err)
		}
		klog.V(1).Infof("resolved public key for log %q", url)
		return key, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrLogUnknown, url)
}
