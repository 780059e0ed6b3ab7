package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

// roundTripperFunc adapts a function into an http.RoundTripper.
type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(fn roundTripperFunc) *http.Client {
	return &http.Client{Transport: fn, Timeout: time.Second}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestResolveBase(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "default relay on local origin",
			cfg:  Config{},
			want: "http://localhost:3000/api",
		},
		{
			name: "site origin",
			cfg:  Config{SiteOrigin: "https://example.com/"},
			want: "https://example.com/api",
		},
		{
			name: "current origin beats site origin",
			cfg:  Config{Origin: "https://preview.example.com", SiteOrigin: "https://example.com"},
			want: "https://preview.example.com/api",
		},
		{
			name: "direct backend",
			cfg:  Config{Direct: true, BackendBase: "http://127.0.0.1:8000/"},
			want: "http://127.0.0.1:8000",
		},
		{
			name: "direct flag without base falls back to relay",
			cfg:  Config{Direct: true},
			want: "http://localhost:3000/api",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveBase(tt.cfg); got != tt.want {
				t.Errorf("resolveBase = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestBuildURL(t *testing.T) {
	relayed := New(Config{SiteOrigin: "https://example.com"}, newTestClient(nil), nil)
	direct := New(Config{Direct: true, BackendBase: "http://127.0.0.1:8000"}, newTestClient(nil), nil)

	tests := []struct {
		name   string
		client *Client
		path   string
		want   string
	}{
		{"relay plain path", relayed, "/users/me", "https://example.com/api/users/me"},
		{"relay without slash", relayed, "users/me", "https://example.com/api/users/me"},
		{"relay api-prefixed path not doubled", relayed, "/api/users/me", "https://example.com/api/users/me"},
		{"absolute passthrough", relayed, "https://other.test/x", "https://other.test/x"},
		{"direct join", direct, "/sets/bulk", "http://127.0.0.1:8000/sets/bulk"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.client.buildURL(tt.path)
			if err != nil {
				t.Fatalf("buildURL(%q) error: %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("buildURL(%q) = %q; want %q", tt.path, got, tt.want)
			}
		})
	}

	if _, err := relayed.buildURL(""); err == nil {
		t.Error("buildURL(\"\") should fail")
	}
}

func TestDo_Headers(t *testing.T) {
	var got *http.Request
	client := New(Config{}, newTestClient(func(req *http.Request) (*http.Response, error) {
		got = req
		return jsonResponse(200, `{}`), nil
	}), nil)

	_, err := client.Do(context.Background(), "/lists/me", Options{Token: "tok123"})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got.Header.Get("Accept") != "application/json" {
		t.Errorf("Accept = %q", got.Header.Get("Accept"))
	}
	if got.Header.Get("Authorization") != "Bearer tok123" {
		t.Errorf("Authorization = %q", got.Header.Get("Authorization"))
	}
	// No body, so no content type.
	if ct := got.Header.Get("Content-Type"); ct != "" {
		t.Errorf("Content-Type = %q; want empty", ct)
	}
}

func TestDo_JSONBody(t *testing.T) {
	var gotBody string
	var gotCT string
	client := New(Config{}, newTestClient(func(req *http.Request) (*http.Response, error) {
		b, _ := io.ReadAll(req.Body)
		gotBody = string(b)
		gotCT = req.Header.Get("Content-Type")
		return jsonResponse(201, `{"ok":true}`), nil
	}), nil)

	_, err := client.Do(context.Background(), "/lists", Options{
		Method: http.MethodPost,
		Body:   map[string]any{"title": "Space"},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotCT != "application/json" {
		t.Errorf("Content-Type = %q", gotCT)
	}
	if gotBody != `{"title":"Space"}` {
		t.Errorf("body = %q", gotBody)
	}
}

func TestDo_ExplicitContentTypeKept(t *testing.T) {
	var gotCT string
	client := New(Config{}, newTestClient(func(req *http.Request) (*http.Response, error) {
		gotCT = req.Header.Get("Content-Type")
		return jsonResponse(200, `{}`), nil
	}), nil)

	_, err := client.Do(context.Background(), "/auth/login", Options{
		Method:  http.MethodPost,
		Body:    "username=x&password=y",
		Headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotCT != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", gotCT)
	}
}

func TestDo_ErrorDetail(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{"detail field", 404, `{"detail":"List not found"}`, "List not found"},
		{"string body", 400, `"bad input"`, "bad input"},
		{"object without detail", 500, `{"error":"boom"}`, `{"error":"boom"}`},
		{"plain text", 502, "upstream unreachable", "upstream unreachable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := New(Config{}, newTestClient(func(req *http.Request) (*http.Response, error) {
				return jsonResponse(tt.status, tt.body), nil
			}), nil)

			_, err := client.Do(context.Background(), "/x", Options{})
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if apiErr.Status != tt.status {
				t.Errorf("Status = %d; want %d", apiErr.Status, tt.status)
			}
			if apiErr.Detail != tt.wantDetail {
				t.Errorf("Detail = %q; want %q", apiErr.Detail, tt.wantDetail)
			}
			if !IsStatus(err, tt.status) {
				t.Errorf("IsStatus(err, %d) = false", tt.status)
			}
		})
	}
}

func TestDo_MalformedJSONReturnsRawText(t *testing.T) {
	client := New(Config{}, newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, "not-json"), nil
	}), nil)

	got, err := client.Do(context.Background(), "/x", Options{})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got != "not-json" {
		t.Errorf("Do = %v; want raw text", got)
	}
}

func TestDo_NoContent(t *testing.T) {
	client := New(Config{}, newTestClient(func(req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: 204, Body: io.NopCloser(strings.NewReader(""))}, nil
	}), nil)

	got, err := client.Do(context.Background(), "/lists/1/items/21355", Options{Method: http.MethodDelete, Token: "t"})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got != nil {
		t.Errorf("Do = %v; want nil", got)
	}
}

func TestDo_TransportError(t *testing.T) {
	client := New(Config{}, newTestClient(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("network down")
	}), nil)

	_, err := client.Do(context.Background(), "/x", Options{})
	if err == nil || !strings.Contains(err.Error(), "network down") {
		t.Errorf("expected transport error, got %v", err)
	}
	if IsStatus(err, 500) {
		t.Error("transport error must not match a status")
	}
}

func TestDoInto(t *testing.T) {
	client := New(Config{}, newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"id":7,"username":"ethan"}`), nil
	}), nil)

	var out struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	}
	if err := client.DoInto(context.Background(), "/users/me", Options{Token: "t"}, &out); err != nil {
		t.Fatalf("DoInto: %v", err)
	}
	if out.ID != 7 || out.Username != "ethan" {
		t.Errorf("DoInto decoded %+v", out)
	}
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"access_token", `{"access_token":"abc"}`, "abc", false},
		{"token fallback", `{"token":"def"}`, "def", false},
		{"no token", `{}`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody string
			client := New(Config{}, newTestClient(func(req *http.Request) (*http.Response, error) {
				b, _ := io.ReadAll(req.Body)
				gotBody = string(b)
				return jsonResponse(200, tt.body), nil
			}), nil)

			got, err := client.Login(context.Background(), "ethan", "secret")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Login: %v", err)
			}
			if got != tt.want {
				t.Errorf("Login = %q; want %q", got, tt.want)
			}
			if !strings.Contains(gotBody, "username=ethan") || !strings.Contains(gotBody, "password=secret") {
				t.Errorf("form body = %q", gotBody)
			}
		})
	}
}
