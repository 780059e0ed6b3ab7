// Package api implements the typed HTTP client the collection and
// session layers use to talk to the catalog backend, normally through
// the same-origin relay.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Error is a non-2xx backend response. Detail carries the backend's
// "detail" field when present, otherwise the raw body.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%d", e.Status)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Detail)
}

// IsStatus reports whether err is an *Error with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == code
}

// Config controls how request URLs are resolved.
type Config struct {
	// BackendBase is the backend's absolute base URL, used only in
	// direct mode.
	BackendBase string
	// SiteOrigin is the configured deployment origin.
	SiteOrigin string
	// Origin is the current deployment origin when known; it takes
	// precedence over SiteOrigin.
	Origin string
	// Direct addresses the backend at BackendBase instead of the
	// same-origin relay.
	Direct bool
}

// defaultOrigin is where the relay listens during local development.
const defaultOrigin = "http://localhost:3000"

// relayPrefix is the path the relay is mounted under.
const relayPrefix = "/api"

// resolveBase turns Config into an absolute request base. In direct
// mode it is the backend itself; otherwise the relay prefix on the
// best-known origin (current origin, else configured site origin, else
// the local default).
func resolveBase(cfg Config) string {
	if cfg.Direct && cfg.BackendBase != "" {
		return strings.TrimRight(cfg.BackendBase, "/")
	}
	origin := cfg.Origin
	if origin == "" {
		origin = cfg.SiteOrigin
	}
	if origin == "" {
		origin = defaultOrigin
	}
	return strings.TrimRight(origin, "/") + relayPrefix
}

// Client issues JSON requests with bearer credentials and typed
// errors.
type Client struct {
	http *http.Client
	base string
	// relayed is true when base ends in the relay prefix, so caller
	// paths that already carry "/api" are not double-prefixed.
	relayed bool
	log     *zap.Logger
}

// New builds a Client. httpClient may be nil, in which case a client
// with a modest timeout is used. log may be nil for silence.
func New(cfg Config, httpClient *http.Client, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	base := resolveBase(cfg)
	return &Client{
		http:    httpClient,
		base:    base,
		relayed: strings.HasSuffix(base, relayPrefix),
		log:     log,
	}
}

// Options configures a single request.
type Options struct {
	// Method defaults to GET.
	Method string
	// Token, when set, is sent as a bearer credential.
	Token string
	// Body is JSON-encoded unless it is a string or []byte and a
	// non-JSON content type was supplied.
	Body any
	// Headers are merged over the defaults.
	Headers map[string]string
}

// buildURL resolves a caller path against the client base. Absolute
// URLs pass through verbatim; relayed bases tolerate paths that
// already start with the relay prefix.
func (c *Client) buildURL(path string) (string, error) {
	if path == "" {
		return "", errors.New("api: missing path")
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path, nil
	}
	p := path
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if c.relayed {
		if p == relayPrefix || strings.HasPrefix(p, relayPrefix+"/") {
			p = strings.TrimPrefix(p, relayPrefix)
		}
	}
	return c.base + p, nil
}

// Do issues a request and returns the parsed response body: decoded
// JSON when the body is valid JSON, the raw text otherwise, nil for
// bodyless responses. Non-2xx responses return *Error.
func (c *Client) Do(ctx context.Context, path string, opts Options) (any, error) {
	raw, err := c.doRaw(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var parsed any
	if jsonErr := json.Unmarshal(raw, &parsed); jsonErr != nil {
		// Successful response with a malformed JSON body is handed
		// back as text, never as an error.
		return string(raw), nil
	}
	return parsed, nil
}

// DoInto issues a request and decodes the response body into out.
// A bodyless response leaves out untouched.
func (c *Client) DoInto(ctx context.Context, path string, opts Options, out any) error {
	raw, err := c.doRaw(ctx, path, opts)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) doRaw(ctx context.Context, path string, opts Options) ([]byte, error) {
	reqURL, err := c.buildURL(path)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(opts.Method)
	if method == "" {
		method = http.MethodGet
	}

	headers := map[string]string{"Accept": "application/json"}
	for k, v := range opts.Headers {
		headers[http.CanonicalHeaderKey(k)] = v
	}
	if opts.Token != "" {
		headers["Authorization"] = "Bearer " + opts.Token
	}

	hasBody := opts.Body != nil && method != http.MethodGet && method != http.MethodHead
	if hasBody && headers["Content-Type"] == "" {
		headers["Content-Type"] = "application/json"
	}

	var body io.Reader
	if hasBody {
		b, err := encodeBody(opts.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if looksLikeHTML(contentType, raw) {
		// A common symptom of a misconfigured relay is an HTML page
		// where JSON was expected. Observability only.
		c.log.Warn("unexpected HTML payload",
			zap.String("url", reqURL),
			zap.Int("status", resp.StatusCode),
			zap.String("content_type", contentType),
		)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := extractDetail(raw)
		c.log.Warn("api error response",
			zap.String("method", method),
			zap.String("url", reqURL),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", detail),
		)
		return nil, &Error{Status: resp.StatusCode, Detail: detail}
	}

	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusResetContent {
		return nil, nil
	}
	return raw, nil
}

func encodeBody(body any) ([]byte, error) {
	// Strings and byte slices are assumed pre-encoded and pass
	// through as given; everything else is JSON-serialized.
	switch v := body.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return b, nil
}

func looksLikeHTML(contentType string, body []byte) bool {
	if strings.Contains(contentType, "text/html") {
		return true
	}
	trimmed := bytes.TrimSpace(body)
	return bytes.HasPrefix(trimmed, []byte("<!DOCTYPE")) || bytes.HasPrefix(trimmed, []byte("<html"))
}

// extractDetail pulls the most useful error message out of an error
// body: the "detail" field of a JSON object, a bare JSON string, the
// serialized JSON value, or the raw text.
func extractDetail(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	var parsed any
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return string(trimmed)
	}
	switch v := parsed.(type) {
	case map[string]any:
		if d, ok := v["detail"]; ok && d != nil {
			if s, ok := d.(string); ok {
				return s
			}
			b, _ := json.Marshal(d)
			return string(b)
		}
	case string:
		return v
	}
	b, _ := json.Marshal(parsed)
	return string(b)
}

// loginResponse accepts both token field spellings the backend has
// used.
type loginResponse struct {
	AccessToken string `json:"access_token"`
	Token       string `json:"token"`
}

// Login exchanges form-encoded credentials for a bearer token at
// /auth/login.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var out loginResponse
	err := c.DoInto(ctx, "/auth/login", Options{
		Method:  http.MethodPost,
		Body:    form.Encode(),
		Headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
	}, &out)
	if err != nil {
		return "", err
	}

	token := out.AccessToken
	if token == "" {
		token = out.Token
	}
	if token == "" {
		return "", errors.New("login succeeded but no token was returned")
	}
	return token, nil
}
