package server

import "net/url"

// parseQuery wraps net/url.ParseQuery for Request's lazy argument
// materialization.
func parseQuery(rawQuery string) (url.Values, error) {
	return url.ParseQuery(rawQuery)
}
