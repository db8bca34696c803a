// Package tlsprofile provides named TLS version/cipher-suite bundles for
// the socket's HTTPS listener.
package tlsprofile

import "crypto/tls"

// Profile bundles a minimum/maximum TLS version with its recommended
// cipher suite list.
type Profile struct {
	Min          uint16
	Max          uint16
	CipherSuites []uint16 // nil for TLS 1.3-only: the stack picks its own
}

// Named profiles, strongest first. These mirror common deployment
// postures: Modern for TLS 1.3-only peers, Secure (the default) for
// TLS 1.2+, Compatible for legacy clients that still need TLS 1.0/1.1.
var (
	Modern = Profile{
		Min: tls.VersionTLS13,
		Max: tls.VersionTLS13,
	}

	Secure = Profile{
		Min: tls.VersionTLS12,
		Max: tls.VersionTLS13,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
		},
	}

	Compatible = Profile{
		Min: tls.VersionTLS10,
		Max: tls.VersionTLS13,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA,
		},
	}
)

// Named looks up a profile by its settings-key spelling ("modern",
// "secure", "compatible"); "" resolves to Secure, the default posture.
func Named(name string) (Profile, bool) {
	switch name {
	case "", "secure":
		return Secure, true
	case "modern":
		return Modern, true
	case "compatible":
		return Compatible, true
	default:
		return Profile{}, false
	}
}

// Apply writes the profile's version bounds and cipher suites into cfg.
func Apply(cfg *tls.Config, p Profile) {
	cfg.MinVersion = p.Min
	cfg.MaxVersion = p.Max
	cfg.CipherSuites = p.CipherSuites
}
