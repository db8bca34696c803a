package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/go-httpd/httpd/internal/testclient"
	"github.com/go-httpd/httpd/pkg/bodybuffer"
	"github.com/go-httpd/httpd/pkg/settings"
	"github.com/go-httpd/httpd/pkg/stream"
)

// TestChunkedUploadOverRealListener drives a paced, chunked-transfer-encoded
// upload over an actual bound socket (rather than httptest's in-process
// listener), so the request body is reconstructed from real
// Transfer-Encoding: chunked wire framing before it ever reaches pumpBody.
func TestChunkedUploadOverRealListener(t *testing.T) {
	uploaded := make(chan *bodybuffer.Buffer, 1)

	h := HandlerFunc(func(ctx *RequestContext) stream.Input {
		if ctx.Request.Method() != http.MethodPut {
			return stream.NoInput
		}
		buf := bodybuffer.New(0)
		ctx.Conn.SendBytes(http.StatusOK, nil, []byte("accepted"))
		return stream.Input{Writer: stream.WriterFunc(func(chunk []byte) (int, stream.WriteOutcome, error) {
			n, outcome, err := buf.WriteChunk(chunk)
			select {
			case uploaded <- buf:
			default:
			}
			return n, outcome, err
		})}
	})

	sock := NewSocket(settings.Settings{Port: 0}, h, nil)
	if err := sock.ListenBackground(); err != nil {
		t.Fatalf("ListenBackground: %v", err)
	}
	defer sock.Release()

	addr := sock.Addr()
	if addr == nil {
		t.Fatalf("Addr() returned nil after ListenBackground")
	}

	resp, err := testclient.Do(addr.String(), testclient.Request{
		Method: http.MethodPut,
		Path:   "/upload",
		Host:   "localhost",
		ChunkedBody: [][]byte{
			[]byte("first-chunk-"),
			[]byte("second-chunk-"),
			[]byte("third-chunk"),
		},
		Pace: 5 * time.Millisecond,
	}, 5*time.Second)
	if err != nil {
		t.Fatalf("testclient.Do: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if string(resp.Body) != "accepted" {
		t.Errorf("expected body %q, got %q", "accepted", resp.Body)
	}

	select {
	case buf := <-uploaded:
		want := "first-chunk-second-chunk-third-chunk"
		if got := string(buf.Bytes()); got != want {
			t.Errorf("expected reassembled body %q, got %q", want, got)
		}
	default:
		t.Fatalf("handler never wrote any chunk")
	}
}
