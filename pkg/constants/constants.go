// Package constants defines magic numbers and default values used throughout httpd.
package constants

import "time"

// Settings defaults
const (
	DefaultNumThreads           = 4
	DefaultConnectionTimeout    = 120 * time.Second
	DefaultConnectionLimit      = 1000
	DefaultPerIPConnectionLimit = 0 // 0 = unlimited
)

// Per-exchange streaming limits
const (
	// MaxSendChunk is the largest chunk pulled from a handler-provided
	// Reader, or pushed into a handler-provided Writer, per call.
	MaxSendChunk = 8 * 1024

	// MaxHostnameLength bounds the SNI hostname accepted during a TLS
	// handshake before the resolver rejects it outright.
	MaxHostnameLength = 255
)

// Buffer limits. DefaultBodyMemLimit is the default spill threshold of
// pkg/bodybuffer; MaxRawBufferSize is not applied by any package here.
const (
	DefaultBodyMemLimit = 4 * 1024 * 1024   // 4MB
	MaxRawBufferSize    = 100 * 1024 * 1024 // 100MB
)

// Default404Body and Default500Body are the built-in pages the socket
// serves when the handler produced no response of its own.
const (
	Default404Body = "<html><head><title>Not Found</title></head><body><h1>404 Not Found</h1></body></html>"
	Default500Body = "<html><head><title>Internal Server Error</title></head><body><h1>500 Internal Server Error</h1></body></html>"
)
