package server

import (
	"bytes"
	"io"
	"net/http"
	"testing"

	"github.com/go-httpd/httpd/pkg/stream"
)

// chunkLimitedWriter accepts at most maxPerCall bytes from any single
// Write, recording the size of every call it sees.
type chunkLimitedWriter struct {
	maxPerCall int
	calls      []int
}

func (w *chunkLimitedWriter) Write(chunk []byte) (int, stream.WriteOutcome, error) {
	n := len(chunk)
	if n > w.maxPerCall {
		n = w.maxPerCall
	}
	w.calls = append(w.calls, n)
	return n, stream.Accepted, nil
}

// TestPumpBodyPartialWriterConsumption checks that a 10,000-byte body
// against a writer that only consumes 4,096 bytes per call produces
// exactly three invocations of sizes 4096, 4096, 1808.
func TestPumpBodyPartialWriterConsumption(t *testing.T) {
	body := bytes.Repeat([]byte{'x'}, 10000)
	req := &http.Request{Body: io.NopCloser(bytes.NewReader(body))}

	w := &chunkLimitedWriter{maxPerCall: 4096}
	s := &Socket{}

	if err := s.pumpBody(req, stream.Input{Writer: w}); err != nil {
		t.Fatalf("pumpBody: %v", err)
	}

	want := []int{4096, 4096, 1808}
	if len(w.calls) != len(want) {
		t.Fatalf("expected %d writer calls, got %d: %v", len(want), len(w.calls), w.calls)
	}
	for i, n := range want {
		if w.calls[i] != n {
			t.Errorf("call %d: expected %d bytes, got %d", i, n, w.calls[i])
		}
	}
}

func TestPumpBodyNilBody(t *testing.T) {
	s := &Socket{}
	if err := s.pumpBody(&http.Request{Body: nil}, stream.Input{Writer: &chunkLimitedWriter{maxPerCall: 4096}}); err != nil {
		t.Fatalf("expected no error for nil body, got %v", err)
	}
}

func TestPumpBodyWriterEndOfStreamStopsEarly(t *testing.T) {
	body := bytes.Repeat([]byte{'y'}, 100)
	req := &http.Request{Body: io.NopCloser(bytes.NewReader(body))}

	calls := 0
	w := stream.WriterFunc(func(chunk []byte) (int, stream.WriteOutcome, error) {
		calls++
		return len(chunk), stream.WriteEndOfStream, nil
	})

	s := &Socket{}
	if err := s.pumpBody(req, stream.Input{Writer: w}); err != nil {
		t.Fatalf("pumpBody: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly one writer call before end-of-stream, got %d", calls)
	}
}

func TestPumpBodyWriterError(t *testing.T) {
	body := []byte("payload")
	req := &http.Request{Body: io.NopCloser(bytes.NewReader(body))}

	w := stream.WriterFunc(func(chunk []byte) (int, stream.WriteOutcome, error) {
		return 0, stream.WriteError, nil
	})

	s := &Socket{}
	if err := s.pumpBody(req, stream.Input{Writer: w}); err == nil {
		t.Fatal("expected an error when the writer reports WriteError")
	}
}
