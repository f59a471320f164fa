package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/terrasync-labs/terrasync/internal/vpath"
)

// DefaultUserAgent is sent when no other agent is configured.
const DefaultUserAgent = "terrasync"

// HTTPReader reads resources below a base URL.
type HTTPReader struct {
	base       *url.URL
	httpClient *http.Client
	userAgent  string
	logger     *log.Logger
}

// Option configures an HTTPReader.
type Option func(*HTTPReader)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(r *HTTPReader) {
		r.httpClient = c
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(r *HTTPReader) {
		if ua != "" {
			r.userAgent = ua
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(r *HTTPReader) {
		r.logger = l
	}
}

// NewHTTPReader creates a reader for the server rooted at baseURL.
func NewHTTPReader(baseURL string, opts ...Option) (*HTTPReader, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server URL %q: unsupported scheme %q", baseURL, u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""

	r := &HTTPReader{
		base:       u,
		httpClient: http.DefaultClient,
		userAgent:  DefaultUserAgent,
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// URL returns the address of p on the server. Scenery names may contain
// spaces; url.URL escapes them when rendering.
func (r *HTTPReader) URL(p vpath.Path) string {
	u := *r.base
	u.Path = r.base.Path + "/" + p.Relative()
	return u.String()
}

// Open issues a GET for p and returns the response body.
func (r *HTTPReader) Open(ctx context.Context, p vpath.Path) (io.ReadCloser, int64, error) {
	target := r.URL(p)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, &IOError{Path: p, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("User-Agent", r.userAgent)

	r.logger.Debug("GET", "url", target)
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, 0, &IOError{Path: p, Err: err}
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, resp.ContentLength, nil
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, 0, &IOError{Path: p, StatusCode: resp.StatusCode, Err: ErrNotFound}
	default:
		resp.Body.Close()
		return nil, 0, &IOError{Path: p, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
}

// Read fetches p completely.
func (r *HTTPReader) Read(ctx context.Context, p vpath.Path) ([]byte, error) {
	body, _, err := r.Open(ctx, p)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &IOError{Path: p, Err: fmt.Errorf("reading response body: %w", err)}
	}
	return data, nil
}
