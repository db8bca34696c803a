// Package settings parses the socket's ordered (key, value) configuration
// pairs into a validated Settings struct.
package settings

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-httpd/httpd/pkg/constants"
	"github.com/go-httpd/httpd/pkg/errors"
)

// KV is one ordered settings pair, as presented to Parse.
type KV struct {
	Key   string
	Value string
}

// Settings is the validated, immutable configuration for a Socket.
type Settings struct {
	Port                 uint16
	HTTPS                bool
	NumThreads           uint16
	ConnectionTimeout    time.Duration
	ConnectionLimit      uint32
	PerIPConnectionLimit uint32
	TLSProfile           string
}

const (
	keyPort                 = "port"
	keyHTTPS                = "https"
	keyThreads              = "threads"
	keyConnectionTimeout    = "connection-timeout"
	keyConnectionLimit      = "connection-limit"
	keyPerIPConnectionLimit = "per-ip-connection-limit"
	keyTLSProfile           = "tls-profile"
)

// Parse validates an ordered sequence of (key, value) pairs and produces a
// Settings struct. Each recognized key may appear at most once; unknown
// keys and out-of-range values are rejected; port is required.
func Parse(pairs []KV) (Settings, error) {
	s := Settings{
		NumThreads:           constants.DefaultNumThreads,
		ConnectionTimeout:    constants.DefaultConnectionTimeout,
		ConnectionLimit:      constants.DefaultConnectionLimit,
		PerIPConnectionLimit: constants.DefaultPerIPConnectionLimit,
	}

	seen := make(map[string]bool, len(pairs))
	havePort := false

	for _, kv := range pairs {
		key := strings.ToLower(strings.TrimSpace(kv.Key))
		if seen[key] {
			return Settings{}, errors.NewDuplicateKeyError(key)
		}
		seen[key] = true

		switch key {
		case keyPort:
			v, err := parsePositiveUint(kv.Value, 1, 65535)
			if err != nil {
				return Settings{}, errors.NewInvalidValueError(key, kv.Value, err)
			}
			s.Port = uint16(v)
			havePort = true

		case keyHTTPS:
			v, err := parseBool(kv.Value)
			if err != nil {
				return Settings{}, errors.NewInvalidValueError(key, kv.Value, err)
			}
			s.HTTPS = v

		case keyThreads:
			v, err := parsePositiveUint(kv.Value, 1, 65535)
			if err != nil {
				return Settings{}, errors.NewInvalidValueError(key, kv.Value, err)
			}
			s.NumThreads = uint16(v)

		case keyConnectionTimeout:
			v, err := parsePositiveUint(kv.Value, 1, 1<<32-1)
			if err != nil {
				return Settings{}, errors.NewInvalidValueError(key, kv.Value, err)
			}
			s.ConnectionTimeout = time.Duration(v) * time.Second

		case keyConnectionLimit:
			v, err := parsePositiveUint(kv.Value, 1, 1<<32-1)
			if err != nil {
				return Settings{}, errors.NewInvalidValueError(key, kv.Value, err)
			}
			s.ConnectionLimit = uint32(v)

		case keyPerIPConnectionLimit:
			v, err := parsePositiveUint(kv.Value, 1, 1<<32-1)
			if err != nil {
				return Settings{}, errors.NewInvalidValueError(key, kv.Value, err)
			}
			s.PerIPConnectionLimit = uint32(v)

		case keyTLSProfile:
			s.TLSProfile = strings.ToLower(strings.TrimSpace(kv.Value))

		default:
			return Settings{}, errors.NewUnknownKeyError(key)
		}
	}

	if !havePort {
		return Settings{}, errors.NewMissingRequiredError(keyPort)
	}

	return s, nil
}

func parsePositiveUint(raw string, min, max uint64) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	if v < min || v > max {
		return 0, strconv.ErrRange
	}
	return v, nil
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, strconv.ErrSyntax
	}
}

// Pairs re-serializes s back into its ordered (key, value) form. Parsing
// the result reproduces an equivalent Settings; key order is fixed
// rather than input-preserving, since Settings itself no longer
// remembers the original ordering. A zero PerIPConnectionLimit (the
// unlimited default) is omitted, since Parse accepts only positive
// values for that key.
func Pairs(s Settings) []KV {
	pairs := []KV{
		{keyPort, strconv.FormatUint(uint64(s.Port), 10)},
		{keyHTTPS, strconv.FormatBool(s.HTTPS)},
		{keyThreads, strconv.FormatUint(uint64(s.NumThreads), 10)},
		{keyConnectionTimeout, strconv.FormatInt(int64(s.ConnectionTimeout/time.Second), 10)},
		{keyConnectionLimit, strconv.FormatUint(uint64(s.ConnectionLimit), 10)},
	}
	if s.PerIPConnectionLimit > 0 {
		pairs = append(pairs, KV{keyPerIPConnectionLimit, strconv.FormatUint(uint64(s.PerIPConnectionLimit), 10)})
	}
	if s.TLSProfile != "" {
		pairs = append(pairs, KV{keyTLSProfile, s.TLSProfile})
	}
	return pairs
}
