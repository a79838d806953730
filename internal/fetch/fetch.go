// SPDX-License-Identifier: MPL-2.0

// Package fetch downloads remote command binaries over HTTP(S) into the
// temp area, enforcing a size ceiling and marking the result executable.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultMaxSize is the default artifact size ceiling (about 30 MB),
	// applied when no explicit ceiling is configured.
	DefaultMaxSize int64 = 30 * 1000 * 1000

	// defaultRetries is how many times a failed GET is retried on transport
	// errors. HTTP status failures are never retried.
	defaultRetries uint64 = 3

	// execBits is OR-ed into the downloaded file's mode, like chmod +x.
	execBits os.FileMode = 0o111
)

var (
	// ErrTooLarge is the sentinel error wrapped by TooLargeError.
	ErrTooLarge = errors.New("download too large")
	// ErrHTTPStatus is the sentinel error wrapped by HTTPStatusError.
	ErrHTTPStatus = errors.New("download failed with HTTP error status")
	// ErrUnsupportedScheme is returned for URLs that are not http or https.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
)

type (
	// Fetcher downloads artifacts into a destination directory.
	Fetcher struct {
		httpClient *http.Client
		destDir    string
		maxSize    int64
		retries    uint64
	}

	// Option configures a Fetcher during construction.
	Option func(*Fetcher)

	// TooLargeError is returned when the response declares a Content-Length
	// above the configured ceiling. It wraps ErrTooLarge.
	TooLargeError struct {
		URL           string
		ContentLength int64
		MaxSize       int64
	}

	// HTTPStatusError is returned on a non-2xx response. It wraps ErrHTTPStatus.
	HTTPStatusError struct {
		URL        string
		StatusCode int
		Status     string
	}
)

// Error formats the declared size against the ceiling.
func (e *TooLargeError) Error() string {
	return fmt.Sprintf("artifact at %s is %d bytes, above the %d byte ceiling", e.URL, e.ContentLength, e.MaxSize)
}

// Unwrap returns ErrTooLarge so callers can use errors.Is.
func (e *TooLargeError) Unwrap() error { return ErrTooLarge }

// Error implements the error interface.
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("GET %s returned %s", e.URL, e.Status)
}

// Unwrap returns ErrHTTPStatus so callers can use errors.Is.
func (e *HTTPStatusError) Unwrap() error { return ErrHTTPStatus }

// WithHTTPClient sets a custom HTTP client, useful for tests or proxies.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.httpClient = c
	}
}

// WithMaxSize sets the artifact size ceiling in bytes.
func WithMaxSize(n int64) Option {
	return func(f *Fetcher) {
		f.maxSize = n
	}
}

// WithRetries sets how many times transport failures are retried.
func WithRetries(n uint64) Option {
	return func(f *Fetcher) {
		f.retries = n
	}
}

// New creates a Fetcher that stores artifacts under destDir.
func New(destDir string, opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient: http.DefaultClient,
		destDir:    destDir,
		maxSize:    DefaultMaxSize,
		retries:    defaultRetries,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads rawURL into <destDir>/<destName>, sets the execute bits,
// and returns the absolute local path. A partial file may remain on failure;
// callers retry with a fresh name.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, destName string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing download URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &HTTPStatusError{URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if resp.ContentLength > 0 && resp.ContentLength > f.maxSize {
		return "", &TooLargeError{URL: rawURL, ContentLength: resp.ContentLength, MaxSize: f.maxSize}
	}

	dest, err := filepath.Abs(filepath.Join(f.destDir, destName))
	if err != nil {
		return "", fmt.Errorf("resolving destination for %s: %w", destName, err)
	}

	if err := f.writeBody(dest, resp.Body); err != nil {
		return "", err
	}

	if err := markExecutable(dest); err != nil {
		return "", err
	}

	slog.Debug("downloaded artifact", "url", rawURL, "path", dest)
	return dest, nil
}

// get issues the GET request, retrying transport errors with exponential
// backoff. Responses, including error statuses, are returned to the caller
// without retrying.
func (f *Fetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	var resp *http.Response

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err = f.httpClient.Do(req)
		if err != nil {
			slog.Debug("transient download failure", "url", rawURL, "error", err)
			return err
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), f.retries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	return resp, nil
}

// writeBody streams the response body to dest.
func (f *Fetcher) writeBody(dest string, body io.Reader) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, body); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	return nil
}

// markExecutable ORs the execute bits into the file's current mode.
func markExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stating downloaded file %s: %w", path, err)
	}
	if err := os.Chmod(path, info.Mode()|execBits); err != nil {
		return fmt.Errorf("marking %s executable: %w", path, err)
	}
	return nil
}
