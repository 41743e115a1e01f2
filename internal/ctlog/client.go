package ctlog

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/bits"
	"net/http"
	"os"
	"strings"
	"time"

	ct "github.com/google/certificate-transparency-go"
	"k8s.io/klog/v2"

	"github.com/ctarchive/ctarchiver/internal/layout"
)

// modernCipherSuites pins the client to the same AEAD/ECDHE suite
// allow-list the teacher's TLS-facing code expects of a well-behaved
// HTTPS peer, per spec.md §6's "pins a modern cipher suite allow-list".
var modernCipherSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
}

// Client talks to a single CT log's RFC 6962 HTTP API over a persistent
// keep-alive connection.
type Client struct {
	httpClient *http.Client
}

// NewClient builds a Client pinned to a modern TLS 1.2+ cipher suite
// allow-list, reusing one persistent connection the way the original
// tool reused a single HTTPSConnection across requests.
func NewClient() *Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion:   tls.VersionTLS12,
			CipherSuites: modernCipherSuites,
		},
		MaxIdleConnsPerHost: 1,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{httpClient: &http.Client{Transport: transport}}
}

// sthResponse is the wire shape of GET .../ct/v1/get-sth: base64 fields
// as transmitted, decoded explicitly rather than relying on an
// unmarshal-time side effect in a vendored type.
type sthResponse struct {
	TreeSize          uint64 `json:"tree_size"`
	Timestamp         uint64 `json:"timestamp"`
	SHA256RootHash    string `json:"sha256_root_hash"`
	TreeHeadSignature string `json:"tree_head_signature"`
}

// GetSTH issues GET {logURL}/ct/v1/get-sth and returns the parsed STH
// together with the raw response body (persisted verbatim by the
// fetcher) and the raw signature bytes (verified by VerifySTH).
func (c *Client) GetSTH(ctx context.Context, logURL string) (sth *ct.SignedTreeHead, rawSig []byte, rawBody []byte, err error) {
	body, err := c.get(ctx, strings.TrimRight(logURL, "/")+"/ct/v1/get-sth")
	if err != nil {
		return nil, nil, nil, err
	}
	return ParseSTHResponse(body)
}

// ParseSTHResponse decodes a get-sth response body (whether freshly
// fetched or read back from a persisted sth-*.json file) into its
// typed STH, raw signature bytes, and the body itself.
func ParseSTHResponse(body []byte) (sth *ct.SignedTreeHead, rawSig []byte, rawBody []byte, err error) {
	var resp sthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, nil, fmt.Errorf("decoding get-sth response: %w", err)
	}
	root, err := base64.StdEncoding.DecodeString(resp.SHA256RootHash)
	if err != nil || len(root) != 32 {
		return nil, nil, nil, fmt.Errorf("decoding sha256_root_hash: %w", err)
	}
	sig, err := base64.StdEncoding.DecodeString(resp.TreeHeadSignature)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("decoding tree_head_signature: %w", err)
	}

	var rootArr ct.SHA256Hash
	copy(rootArr[:], root)
	sth = &ct.SignedTreeHead{
		Version:        ct.V1,
		TreeSize:       resp.TreeSize,
		Timestamp:      resp.Timestamp,
		SHA256RootHash: rootArr,
	}
	return sth, sig, body, nil
}

// ReadSTHFile reads back a previously persisted sth-*.json file.
func ReadSTHFile(pkgRootDir string, treeSize uint64) (sth *ct.SignedTreeHead, rawSig []byte, rawBody []byte, err error) {
	path := pkgRootDir + "/" + layout.BuildSTHName(treeSize)
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading sth file %q: %w", path, err)
	}
	return ParseSTHResponse(body)
}

// GetEntries issues GET {logURL}/ct/v1/get-entries?start=S&end=E once,
// with no retry; retry policy lives in internal/fetcher.
func (c *Client) GetEntries(ctx context.Context, logURL string, start, end uint64) ([]ct.LeafEntry, error) {
	url := fmt.Sprintf("%s/ct/v1/get-entries?start=%d&end=%d", strings.TrimRight(logURL, "/"), start, end)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	var resp ct.GetEntriesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding get-entries response: %w", err)
	}
	return resp.Entries, nil
}

// DetectStepSize issues one probe get-entries(0, desiredStep-1) and
// rounds the returned count down to a power of two, per §4.2's
// "Effective batch size" rule.
func (c *Client) DetectStepSize(ctx context.Context, logURL string, desiredStep uint64) (uint64, error) {
	entries, err := c.GetEntries(ctx, logURL, 0, desiredStep-1)
	if err != nil {
		return 0, fmt.Errorf("probing effective batch size: %w", err)
	}
	n := uint64(len(entries))
	if n == 0 {
		return 0, fmt.Errorf("log returned zero entries for get-entries probe")
	}
	step := uint64(1) << uint(bits.Len64(n)-1)
	klog.V(1).Infof("detected effective get-entries step size %d (probe returned %d)", step, n)
	return step, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %q: %w", url, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTTPTransient, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrHTTPTransient, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d from %q", ErrHTTPTransient, resp.StatusCode, url)
	}
	return body, nil
}

// ParseLogURL splits a log base URL into the host and path segments
// layout.LogName needs, per §4.1's log_name derivation.
func ParseLogURL(logURL string) (host string, pathSegments []string) {
	rest := strings.TrimPrefix(logURL, "https://")
	rest = strings.TrimPrefix(rest, "http://")
	rest = strings.Trim(rest, "/")
	parts := strings.SplitN(rest, "/", 2)
	host = parts[0]
	if len(parts) == 1 || parts[1] == "" {
		return host, nil
	}
	return host, strings.Split(parts[1], "/")
}
