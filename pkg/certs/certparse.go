package certs

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// ErrNoMatch is returned by Resolve when no installed pattern matches the
// requested hostname; a TLS handshake callback built on Resolve rejects
// the handshake in response.
var ErrNoMatch = errors.New("certs: no matching SNI pattern")

// validateCertificatePEM decodes every PEM block in certPEM and parses it
// as an X.509 certificate, purely to surface a certificate-specific parse
// error ahead of tls.X509KeyPair's combined validation.
func validateCertificatePEM(certPEM []byte) error {
	rest := certPEM
	found := false
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		if _, err := x509.ParseCertificate(block.Bytes); err != nil {
			return fmt.Errorf("parsing certificate: %w", err)
		}
		found = true
	}
	if !found {
		return fmt.Errorf("no CERTIFICATE PEM block found")
	}
	return nil
}
