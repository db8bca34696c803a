// Package certs implements the SNI-matched certificate registry consulted
// at TLS handshake time.
package certs

import (
	"crypto/tls"
	"strings"
	"sync"

	"github.com/go-httpd/httpd/pkg/constants"
	"github.com/go-httpd/httpd/pkg/errors"
)

// Pair is one installed certificate/private-key entry.
type Pair struct {
	Certificate tls.Certificate
	Pattern     string
}

// Registry is a pattern-matched hostname → certificate table, installed
// via Add before the owning socket starts listening and consulted,
// read-only, from the TLS handshake callback. It is safe for concurrent
// use; a single mutex guards install and lookup.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Pair // pattern -> pair
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Pair)}
}

// Add installs a certificate/key pair under hostname, which may be an
// exact hostname, a wildcard pattern ("*.example.com"), or "" for the
// catch-all pattern. PEM parsing errors are reported as
// CertificateInvalid or KeyInvalid depending on which half failed to
// parse — crypto/tls.X509KeyPair does not distinguish the two itself, so
// the certificate PEM is parsed separately first to attribute the error
// correctly.
func (r *Registry) Add(hostname string, certPEM, keyPEM []byte) error {
	// tls.X509KeyPair validates cert and key together and attributes any
	// failure to the pairing as a whole; parse the certificate half on
	// its own first so a malformed certificate is reported as
	// CertificateInvalid rather than the less precise KeyInvalid.
	if err := validateCertificatePEM(certPEM); err != nil {
		return errors.NewCertificateInvalidError(hostname, err)
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return errors.NewKeyInvalidError(hostname, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[hostname] = Pair{Certificate: cert, Pattern: hostname}
	return nil
}

// Clear removes every installed entry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]Pair)
}

// Len reports the number of installed entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Resolve applies these matching rules:
//  1. an exact (non-wildcard) entry equal to hostname wins immediately;
//  2. otherwise, among wildcard entries "*SUFFIX" with hostname ending in
//     SUFFIX and at least as long as SUFFIX, the longest pattern wins;
//  3. the empty catch-all pattern matches only if nothing else did.
//
// Resolve never panics; any unexpected condition (e.g. an over-length
// hostname) results in ErrNoMatch rather than a crash, so a TLS handshake
// callback built on Resolve can always safely reject instead of faulting.
func (r *Registry) Resolve(hostname string) (*tls.Certificate, error) {
	if len(hostname) > constants.MaxHostnameLength {
		return nil, ErrNoMatch
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.entries[hostname]; ok {
		cert := p.Certificate
		return &cert, nil
	}

	var (
		best      Pair
		bestFound bool
	)
	for pattern, p := range r.entries {
		suffix, isWildcard := strings.CutPrefix(pattern, "*")
		if !isWildcard || pattern == "" {
			continue
		}
		if len(hostname) < len(suffix) || !strings.HasSuffix(hostname, suffix) {
			continue
		}
		if !bestFound || len(pattern) > len(best.Pattern) {
			best = p
			bestFound = true
		}
	}
	if bestFound {
		cert := best.Certificate
		return &cert, nil
	}

	if p, ok := r.entries[""]; ok {
		cert := p.Certificate
		return &cert, nil
	}

	return nil, ErrNoMatch
}

// GetCertificate adapts Resolve to crypto/tls.Config.GetCertificate.
func (r *Registry) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	return r.Resolve(hello.ServerName)
}

