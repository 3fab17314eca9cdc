// ABOUTME: HTTP GET helper shared by image download, GIF search and health probes
// ABOUTME: Non-2xx responses become StatusError values tagged for the retry layer
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/harper/marcusbot/internal/retry"
)

// DefaultTimeout bounds each request at the transport boundary.
const DefaultTimeout = 30 * time.Second

// maxBodyBytes limits downloads (Discord attachments top out well below this).
const maxBodyBytes = 32 << 20

// StatusError reports a non-success HTTP status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
}

// Fetcher performs GET requests with a per-request timeout.
type Fetcher struct {
	client *http.Client
}

// New creates a Fetcher. A non-positive timeout uses DefaultTimeout.
func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// NewWithClient creates a Fetcher around an existing client.
func NewWithClient(client *http.Client) *Fetcher {
	return &Fetcher{client: client}
}

// Bytes downloads url and returns the body. Errors are classified:
// transport failures are transient, statuses follow retry.FromStatus.
func (f *Fetcher) Bytes(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(url, resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, retry.NewTransient(fmt.Errorf("reading %s: %w", url, err))
	}
	return data, nil
}

// Status issues a GET and returns the status code without treating
// non-2xx as an error. Only transport failures are returned.
func (f *Fetcher) Status(ctx context.Context, url string) (int, error) {
	resp, err := f.get(ctx, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	return resp.StatusCode, nil
}

func (f *Fetcher) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.NewPermanent(fmt.Errorf("building request: %w", err))
	}
	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, retry.NewTransient(fmt.Errorf("GET %s: %w", url, err))
	}
	return resp, nil
}

func checkStatus(url string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	return retry.FromStatus(resp.StatusCode, RetryAfter(resp.Header),
		&StatusError{URL: url, StatusCode: resp.StatusCode})
}

// RetryAfter parses a Retry-After header given in seconds or as an HTTP date.
func RetryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
