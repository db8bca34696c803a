// Package server implements the listener/connection dispatch loop, the
// streaming body protocol, and the per-exchange state machine that sit at
// the core of the httpd adapter.
package server

import (
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-httpd/httpd/pkg/errors"
	"golang.org/x/net/idna"
)

// Request is an immutable snapshot of one exchange's HTTP start-line,
// headers, and connection metadata, constructed once per exchange (spec
// §4.A). Query arguments are the only lazily-populated field.
type Request struct {
	isHTTPS       bool
	httpVersion   string
	method        string
	path          string
	rawQuery      string
	hostName      string
	hostPort      uint16
	remoteAddress string
	remotePort    uint16
	headers       map[string]string
	contentType   string
	username      string
	password      string
	hasBasicAuth  bool

	argMu   sync.Mutex
	args    map[string]string
	argsSet bool
}

// newRequest builds a Request snapshot from the underlying *http.Request.
// hostPort is the socket's bound listen port (not the Host header's
// port, which this adapter never looks at beyond splitting it off).
func newRequest(r *http.Request, isHTTPS bool, hostPort uint16) *Request {
	req := &Request{
		isHTTPS:     isHTTPS,
		httpVersion: r.Proto,
		method:      r.Method,
		path:        r.URL.Path,
		rawQuery:    r.URL.RawQuery,
		hostPort:    hostPort,
		headers:     make(map[string]string, len(r.Header)),
	}

	hostName, _, _ := strings.Cut(r.Host, ":")
	req.hostName = normalizeHostname(hostName)

	for name, values := range r.Header {
		if len(values) == 0 {
			continue
		}
		// last-write-wins across duplicates, matching the engine's
		// header-enumeration callback semantics
		req.headers[name] = values[len(values)-1]
	}

	if ct := r.Header.Get("Content-Type"); ct != "" {
		token, _, _ := strings.Cut(ct, ";")
		if mt, _, err := mime.ParseMediaType(strings.TrimSpace(token)); err == nil {
			req.contentType = mt
		} else {
			req.contentType = strings.TrimSpace(token)
		}
	}

	if user, pass, ok := r.BasicAuth(); ok {
		req.username = user
		req.password = pass
		req.hasBasicAuth = true
	}

	if host, port, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		req.remoteAddress = host
		if p, err := strconv.ParseUint(port, 10, 16); err == nil {
			req.remotePort = uint16(p)
		}
	} else {
		req.remoteAddress = r.RemoteAddr
	}

	return req
}

// normalizeHostname runs an IDNA lookup-form normalization over host,
// falling back to the lowercased input on any failure — Request
// construction never fails, it just won't normalize malformed input.
func normalizeHostname(host string) string {
	if host == "" {
		return host
	}
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		return ascii
	}
	return strings.ToLower(host)
}

// IsHTTPS reports whether this exchange arrived over TLS.
func (r *Request) IsHTTPS() bool { return r.isHTTPS }

// HTTPVersion returns the request's HTTP version string (e.g. "HTTP/1.1").
func (r *Request) HTTPVersion() string { return r.httpVersion }

// Method returns the request method.
func (r *Request) Method() string { return r.method }

// Path returns the request path, excluding any query string.
func (r *Request) Path() string { return r.path }

// HostName returns the Host header, split on its first colon and IDNA
// normalized. IPv6 literal hosts (e.g. "[::1]:8080") mis-split on that
// first colon; this is intentional, preserving the original adapter's
// behavior rather than special-casing bracketed literals.
func (r *Request) HostName() string { return r.hostName }

// HostPort returns the socket's bound listen port.
func (r *Request) HostPort() uint16 { return r.hostPort }

// RemoteAddress returns the client's IP address.
func (r *Request) RemoteAddress() string { return r.remoteAddress }

// RemotePort returns the client's source port.
func (r *Request) RemotePort() uint16 { return r.remotePort }

// ContentType returns the first ";"-delimited token of the Content-Type
// header, parsed as a MIME media type, or "" if absent.
func (r *Request) ContentType() string { return r.contentType }

// BasicAuth returns the credentials presented via the Authorization
// header, if any.
func (r *Request) BasicAuth() (username, password string, ok bool) {
	return r.username, r.password, r.hasBasicAuth
}

// Header returns a request header by name and whether it was present.
// Lookup is case-insensitive the way net/http's canonicalization makes
// it; among duplicate headers, the last value wins.
func (r *Request) Header(name string) (string, bool) {
	v, ok := r.headers[http.CanonicalHeaderKey(name)]
	return v, ok
}

// Headers returns a copy of the full header map.
func (r *Request) Headers() map[string]string {
	out := make(map[string]string, len(r.headers))
	for k, v := range r.headers {
		out[k] = v
	}
	return out
}

// HasArgument reports whether key is present among the query arguments,
// consulting (and memoizing into) the materialized map on first use.
func (r *Request) HasArgument(key string) bool {
	r.argMu.Lock()
	defer r.argMu.Unlock()
	r.ensureArgsLocked()
	_, ok := r.args[key]
	return ok
}

// GetArgument returns the query argument named key, or ArgumentNotFound
// if absent.
func (r *Request) GetArgument(key string) (string, error) {
	r.argMu.Lock()
	defer r.argMu.Unlock()
	r.ensureArgsLocked()
	v, ok := r.args[key]
	if !ok {
		return "", errors.NewArgumentNotFoundError(key)
	}
	return v, nil
}

func (r *Request) ensureArgsLocked() {
	if r.argsSet {
		return
	}
	r.argsSet = true
	r.args = make(map[string]string)
	values, err := parseQuery(r.rawQuery)
	if err != nil {
		return
	}
	for k, vs := range values {
		if len(vs) > 0 {
			r.args[k] = vs[len(vs)-1]
		}
	}
}
