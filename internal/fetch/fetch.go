// Package fetch implements the Fetcher capability the Source
// Provisioner (C2) consumes: fetch(url) -> local_archive_path (§1, §4.2
// step 2). Two implementations are provided: an HTTP downloader grounded
// on the teacher's internal/actions/download.go retry/backoff pattern and
// internal/httputil's SSRF-hardened client, and a git shallow-clone
// fetcher grounded on google-oss-rebuild's cmd/git_cache use of go-git.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fcanata061/pbuild/internal/httputil"
	"github.com/fcanata061/pbuild/internal/pkgerr"
)

// Fetcher resolves a source_url into a local archive file, placing it
// at destPath.
type Fetcher interface {
	Fetch(ctx context.Context, url, destPath string) error
}

// HTTPFetcher downloads over HTTP(S) with redirect-following and
// retry/backoff (§4.2 step 2). A non-2xx response counts as a failed
// attempt and is retried like any other failure, up to MaxRetries.
type HTTPFetcher struct {
	Client     *http.Client
	MaxRetries int
}

// NewHTTPFetcher returns an HTTPFetcher using a secure, SSRF-hardened
// client with default retry behavior.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client:     httputil.NewSecureClient(httputil.DefaultOptions()),
		MaxRetries: 3,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url, destPath string) error {
	var lastErr error
	for attempt := 1; attempt <= f.MaxRetries; attempt++ {
		if attempt > 1 {
			delay := time.Duration(attempt-1) * 500 * time.Millisecond
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return pkgerr.Wrap(pkgerr.FetchFailed, url, "context canceled", ctx.Err())
			}
		}
		if err := f.doFetch(ctx, url, destPath); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return pkgerr.Wrap(pkgerr.FetchFailed, url, "all retries exhausted", lastErr)
}

func (f *HTTPFetcher) doFetch(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", "pbuild")

	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	tmp := destPath + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, destPath)
}

// IsHTTPURL reports whether url looks like a plain HTTP(S) URL.
func IsHTTPURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}
