// Package relay is the same-origin intermediary between the browser
// surface and the catalog backend. The browser never needs the
// backend's real network location: every request under /api is
// forwarded with its method, body and credentials intact, and the
// upstream status, body bytes and content type come back unchanged.
package relay

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Handler forwards inbound requests to the backend.
type Handler struct {
	backend string
	http    *http.Client
	log     *zap.Logger
}

// New builds a Handler forwarding to backendBase. client may be nil;
// log may be nil.
func New(backendBase string, client *http.Client, log *zap.Logger) *Handler {
	if client == nil {
		client = &http.Client{
			Timeout: 60 * time.Second,
			// Redirects pass through to the caller untouched.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		backend: strings.TrimRight(backendBase, "/"),
		http:    client,
		log:     log,
	}
}

// hopHeaders are meaningless or harmful across a re-hop and are never
// forwarded.
var hopHeaders = []string{
	"Host",
	"Connection",
	"Content-Length",
	"Keep-Alive",
	"Proxy-Connection",
	"Transfer-Encoding",
	"Upgrade",
}

// forward relays one request to backend path subpath (with the
// original query string) and writes the upstream response through.
func (h *Handler) forward(w http.ResponseWriter, r *http.Request, subpath string) {
	upstreamURL := h.backend + "/" + strings.TrimLeft(subpath, "/")
	if r.URL.RawQuery != "" {
		upstreamURL += "?" + r.URL.RawQuery
	}

	var body io.Reader
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		body = r.Body
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, upstreamURL, body)
	if err != nil {
		h.fail(w, http.StatusBadGateway, fmt.Sprintf("build upstream request: %v", err))
		return
	}

	req.Header = r.Header.Clone()
	for _, k := range hopHeaders {
		req.Header.Del(k)
	}

	resp, err := h.http.Do(req)
	if err != nil {
		// One dead upstream call must not take other in-flight
		// requests with it.
		h.log.Warn("upstream unreachable",
			zap.String("url", upstreamURL),
			zap.Error(err),
		)
		h.fail(w, http.StatusBadGateway, "upstream unreachable")
		return
	}
	defer resp.Body.Close()

	h.writeUpstream(w, resp)
}

// writeUpstream copies status, content type and body bytes through
// unchanged. Responses are session-specific, so every intermediate
// cache is bypassed.
func (h *Handler) writeUpstream(w http.ResponseWriter, resp *http.Response) {
	w.Header().Set("Cache-Control", "no-store")
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}

	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusResetContent {
		w.WriteHeader(resp.StatusCode)
		return
	}

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		h.fail(w, http.StatusBadGateway, "read upstream response")
		return
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(buf)
}

func (h *Handler) fail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
