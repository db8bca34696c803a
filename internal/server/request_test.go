package server

import (
	"net/http"
	"net/url"
	"testing"
)

func newHTTPRequest(t *testing.T, method, target string) *http.Request {
	t.Helper()
	u, err := url.Parse(target)
	if err != nil {
		t.Fatalf("parsing target: %v", err)
	}
	r := &http.Request{
		Method:     method,
		URL:        u,
		Proto:      "HTTP/1.1",
		Header:     make(http.Header),
		Host:       "example.com:8443",
		RemoteAddr: "203.0.113.7:54321",
	}
	return r
}

func TestRequestHostNameSplitsOnFirstColon(t *testing.T) {
	r := newHTTPRequest(t, "GET", "/")
	req := newRequest(r, true, 8443)

	if req.HostName() != "example.com" {
		t.Errorf("expected example.com, got %q", req.HostName())
	}
	if !req.IsHTTPS() {
		t.Error("expected IsHTTPS true")
	}
}

func TestRequestRemoteAddress(t *testing.T) {
	r := newHTTPRequest(t, "GET", "/")
	req := newRequest(r, false, 80)

	if req.RemoteAddress() != "203.0.113.7" {
		t.Errorf("expected 203.0.113.7, got %q", req.RemoteAddress())
	}
	if req.RemotePort() != 54321 {
		t.Errorf("expected port 54321, got %d", req.RemotePort())
	}
}

func TestRequestContentTypeStripsParameters(t *testing.T) {
	r := newHTTPRequest(t, "POST", "/upload")
	r.Header.Set("Content-Type", "multipart/form-data; boundary=abc123")
	req := newRequest(r, false, 80)

	if req.ContentType() != "multipart/form-data" {
		t.Errorf("expected multipart/form-data, got %q", req.ContentType())
	}
}

func TestRequestBasicAuth(t *testing.T) {
	r := newHTTPRequest(t, "GET", "/secret")
	r.SetBasicAuth("alice", "hunter2")
	req := newRequest(r, false, 80)

	user, pass, ok := req.BasicAuth()
	if !ok {
		t.Fatal("expected BasicAuth to be present")
	}
	if user != "alice" || pass != "hunter2" {
		t.Errorf("expected alice/hunter2, got %s/%s", user, pass)
	}
}

func TestRequestQueryArguments(t *testing.T) {
	r := newHTTPRequest(t, "GET", "/search?q=go&limit=10")
	req := newRequest(r, false, 80)

	if !req.HasArgument("q") {
		t.Fatal("expected HasArgument(q) true")
	}
	v, err := req.GetArgument("q")
	if err != nil {
		t.Fatalf("GetArgument: %v", err)
	}
	if v != "go" {
		t.Errorf("expected go, got %q", v)
	}

	if _, err := req.GetArgument("missing"); err == nil {
		t.Error("expected an error for a missing argument")
	}
}

func TestRequestHeaderLookup(t *testing.T) {
	r := newHTTPRequest(t, "GET", "/")
	r.Header.Set("X-Request-Id", "abc")
	req := newRequest(r, false, 80)

	v, ok := req.Header("x-request-id")
	if !ok || v != "abc" {
		t.Errorf("expected abc, got %q (ok=%v)", v, ok)
	}
}
