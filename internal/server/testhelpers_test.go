package server

import (
	"os"
	"testing"
)

// newTempFileWithContent writes content to a new temp file and returns
// its path, registering cleanup with t.
func newTempFileWithContent(t *testing.T, content string) (string, error) {
	t.Helper()
	f, err := os.CreateTemp("", "server-test-*.txt")
	if err != nil {
		return "", err
	}
	t.Cleanup(func() { os.Remove(f.Name()) })
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return f.Name(), nil
}
