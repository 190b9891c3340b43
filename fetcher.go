package cloudflareip

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	// DefaultBaseURL is the origin serving the published range lists.
	DefaultBaseURL = "https://www.cloudflare.com"

	// maxRangeBodySize bounds how much of a range list response is read.
	maxRangeBodySize = 1 << 20

	// maxErrorBodySize bounds the response excerpt kept in ResponseError.
	maxErrorBodySize = 512
)

// AddressFamily selects one of the two published range lists.
type AddressFamily int

const (
	// IPv4 selects the ips-v4 list.
	IPv4 AddressFamily = iota + 1
	// IPv6 selects the ips-v6 list.
	IPv6
)

// String returns the canonical text representation of f, also used as the
// cache key suffix and metrics label.
func (f AddressFamily) String() string {
	switch f {
	case IPv4:
		return "ips_v4"
	case IPv6:
		return "ips_v6"
	default:
		return "unknown"
	}
}

// Path returns the endpoint path serving the family's list.
func (f AddressFamily) Path() string {
	switch f {
	case IPv4:
		return "/ips-v4/"
	case IPv6:
		return "/ips-v6/"
	default:
		return ""
	}
}

func (f AddressFamily) valid() bool {
	return f == IPv4 || f == IPv6
}

// RangeFetcher retrieves one published range list.
//
// Implementations must be safe for concurrent use.
type RangeFetcher interface {
	FetchRanges(ctx context.Context, family AddressFamily) ([]netip.Prefix, error)
}

// HTTPFetcher fetches range lists over HTTPS.
type HTTPFetcher struct {
	client  *retryablehttp.Client
	baseURL string
}

// NewHTTPFetcher creates a fetcher requesting lists from baseURL with client.
// A nil client is replaced by a resilient client with the default timeout.
func NewHTTPFetcher(client *retryablehttp.Client, baseURL string) *HTTPFetcher {
	if client == nil {
		client = newResilientClient(DefaultFetchTimeout, DefaultRetryMax, nil)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &HTTPFetcher{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// FetchRanges implements RangeFetcher.
//
// A non-success status yields a *ResponseError; transport failures and
// timeouts are wrapped in ErrFetchFailed; an unparsable body is reported as
// ErrUnparsableRangeBody.
func (f *HTTPFetcher) FetchRanges(ctx context.Context, family AddressFamily) ([]netip.Prefix, error) {
	if !family.valid() {
		return nil, fmt.Errorf("%w: unknown address family %d", ErrFetchFailed, family)
	}

	url := f.baseURL + family.Path()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailed, url, err)
	}
	req.Header.Set("Accept", "text/plain")

	res, err := f.client.Do(req)
	if err != nil {
		if res != nil {
			_ = res.Body.Close()
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailed, url, err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBodySize))
		return nil, &ResponseError{
			URL:        url,
			StatusCode: res.StatusCode,
			Status:     res.Status,
			Body:       string(excerpt),
		}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxRangeBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrFetchFailed, url, err)
	}

	prefixes, err := ParseRangeList(string(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}

	return prefixes, nil
}

// newResilientClient builds the retrying client used for range fetches.
//
// Each attempt is bounded by timeout. The passthrough error handler returns
// the final response instead of a generic "giving up" error so non-success
// statuses keep their diagnostics.
func newResilientClient(timeout time.Duration, retryMax int, logger retryablehttp.LeveledLogger) *retryablehttp.Client {
	client := &retryablehttp.Client{
		HTTPClient:   &http.Client{Timeout: timeout},
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: time.Second,
		RetryMax:     retryMax,
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		Backoff:      retryablehttp.DefaultBackoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}
	if logger != nil {
		client.Logger = logger
	}
	return client
}
