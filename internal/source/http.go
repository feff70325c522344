package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/wiresync/internal/types"
	"github.com/ppiankov/wiresync/internal/xmldoc"
)

const (
	DefaultTimeout = 13 * time.Second

	userAgent    = "wiresync/1.0 (+https://github.com/ppiankov/wiresync)"
	maxBodyBytes = 32 << 20
)

// HTTPFetcher issues one GET per call against <baseURL>/<endpoint>.
type HTTPFetcher struct {
	baseURL string
	timeout time.Duration
	maxBody int64
	client  *http.Client
}

// NewHTTPFetcher creates a fetcher for baseURL. A zero timeout means
// DefaultTimeout.
func NewHTTPFetcher(baseURL string, timeout time.Duration) (*HTTPFetcher, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("source: base url is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("source: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("source: base url scheme %q is not http(s)", u.Scheme)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &HTTPFetcher{
		baseURL: baseURL,
		timeout: timeout,
		maxBody: maxBodyBytes,
		client: &http.Client{
			Timeout:   timeout,
			Transport: &uaTransport{base: http.DefaultTransport},
		},
	}, nil
}

// URL returns the endpoint url without query parameters.
func (f *HTTPFetcher) URL(endpoint string) string {
	return f.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}

func (f *HTTPFetcher) Fetch(ctx context.Context, endpoint string, params url.Values) (*xmldoc.Document, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	target := f.URL(endpoint)
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &types.TransportError{Endpoint: endpoint, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &types.TransportError{Endpoint: endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, &types.TransportError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > f.maxBody {
		return nil, &types.TransportError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("response exceeds %d bytes", f.maxBody),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &types.TransportError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", snippet(body)),
		}
	}

	doc, err := xmldoc.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &types.ParseError{Endpoint: endpoint, Err: err}
	}
	return doc, nil
}

// uaTransport injects a User-Agent header into every request.
type uaTransport struct {
	base http.RoundTripper
}

func (t *uaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", userAgent)
	return t.base.RoundTrip(req)
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	if s == "" {
		return "empty body"
	}
	return s
}
