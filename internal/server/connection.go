package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/go-httpd/httpd/pkg/stream"
)

// sendKind tags the shape of one queued response send.
type sendKind int

const (
	kindBasicAuth sendKind = iota
	kindPlain
	kindFile
	kindCallback
)

// queuedSend is one pending response write, queued by a handler and
// flushed by the dispatch loop once the exchange reaches its flushing
// state.
type queuedSend struct {
	kind sendKind

	statusCode int
	headers    map[string]string

	// kindBasicAuth
	realm string

	// kindPlain
	body []byte

	// kindFile
	file     *os.File
	fileSize int64

	// kindCallback
	reader stream.Reader
}

// Connection owns one exchange's response queue and tracks whether the
// underlying resources (any file opened by SendFile) have been released. A Connection is used by exactly one goroutine at a time, but
// Close is guarded against double-release since both the dispatch loop
// and a deferred handler cleanup may each attempt it.
type Connection struct {
	mu       sync.Mutex
	queue    []queuedSend
	sent     bool
	closeOne sync.Once
	closed   bool
}

func newConnection() *Connection {
	return &Connection{}
}

// SendBasicAuthChallenge queues a 401 response carrying a WWW-Authenticate
// challenge for realm, per RFC 7617. The challenge header is only
// meaningful when paired with statusCode 401; callers queuing any other
// status with a realm get the realm silently ignored at flush time.
func (c *Connection) SendBasicAuthChallenge(realm string, statusCode int, headers map[string]string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, queuedSend{
		kind:       kindBasicAuth,
		statusCode: statusCode,
		headers:    headers,
		realm:      realm,
		body:       body,
	})
}

// SendBytes queues a fixed in-memory response body.
func (c *Connection) SendBytes(statusCode int, headers map[string]string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, queuedSend{
		kind:       kindPlain,
		statusCode: statusCode,
		headers:    headers,
		body:       body,
	})
}

// SendFile opens the file at path and resolves its size immediately,
// queuing a response whose body is streamed from it when the queue is
// flushed. Resolving the file and its size eagerly, rather than at
// flush time, means a later rename or deletion of path can't silently
// change or remove the body this call committed to sending. The opened
// *os.File is owned by the queue entry from this point on and is closed
// exactly once, whether by a later flush or by Connection.Close if the
// exchange never reaches its flushing state.
func (c *Connection) SendFile(statusCode int, headers map[string]string, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("connection: opening %s: %w", path, err)
	}
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return fmt.Errorf("connection: resolving size of %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return fmt.Errorf("connection: rewinding %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, queuedSend{
		kind:       kindFile,
		statusCode: statusCode,
		headers:    headers,
		file:       f,
		fileSize:   size,
	})
	return nil
}

// SendReader queues a response whose body is drained from r, a
// stream.Reader, when the queue is flushed.
func (c *Connection) SendReader(statusCode int, headers map[string]string, r stream.Reader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, queuedSend{
		kind:       kindCallback,
		statusCode: statusCode,
		headers:    headers,
		reader:     r,
	})
}

// IsResponseQueueEmpty reports whether no send has been queued yet.
func (c *Connection) IsResponseQueueEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue) == 0
}

// HasResponseSent reports whether flush has already written a response.
func (c *Connection) HasResponseSent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent
}

// flush drains the queue and writes its first queued send to w; the
// remaining sends are discarded. Only the first one is written because once
// headers are written, net/http's ResponseWriter has committed the status
// line, so subsequent queued sends after the first are a caller bug this
// adapter tolerates by ignoring them rather than panicking.
func (c *Connection) flush(w http.ResponseWriter) error {
	c.mu.Lock()
	queue := c.queue
	c.queue = nil
	c.mu.Unlock()

	// Every queued file was opened eagerly at enqueue time and is this
	// entry's sole owner; close all of them here, not just the one
	// actually written, so an ignored (non-first) queued file doesn't
	// leak its descriptor.
	for _, send := range queue {
		if send.kind == kindFile && send.file != nil {
			defer send.file.Close()
		}
	}

	if len(queue) == 0 {
		return nil
	}

	send := queue[0]
	for k, v := range send.headers {
		w.Header().Set(k, v)
	}

	switch send.kind {
	case kindBasicAuth:
		if send.statusCode == http.StatusUnauthorized {
			w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", send.realm))
		}
		w.WriteHeader(send.statusCode)
		_, err := w.Write(send.body)
		c.markSent()
		return err

	case kindPlain:
		w.WriteHeader(send.statusCode)
		_, err := w.Write(send.body)
		c.markSent()
		return err

	case kindFile:
		if w.Header().Get("Content-Length") == "" {
			w.Header().Set("Content-Length", strconv.FormatInt(send.fileSize, 10))
		}
		w.WriteHeader(send.statusCode)
		_, err := io.Copy(w, send.file)
		c.markSent()
		return err

	case kindCallback:
		w.WriteHeader(send.statusCode)
		buf := make([]byte, 8*1024)
		for {
			n, outcome, err := send.reader.Read(buf)
			if n > 0 {
				if _, werr := w.Write(buf[:n]); werr != nil {
					c.markSent()
					return werr
				}
			}
			if err != nil {
				c.markSent()
				return err
			}
			if outcome == stream.ReadEndOfStream {
				break
			}
		}
		c.markSent()
		return nil

	default:
		return fmt.Errorf("connection: unknown queued send kind %d", send.kind)
	}
}

func (c *Connection) markSent() {
	c.mu.Lock()
	c.sent = true
	c.mu.Unlock()
}

// Close releases resources associated with the connection's response
// queue, including any file opened by SendFile that was never flushed.
// It is safe to call more than once; only the first call has any effect.
func (c *Connection) Close() {
	c.closeOne.Do(func() {
		c.mu.Lock()
		queue := c.queue
		c.closed = true
		c.queue = nil
		c.mu.Unlock()

		for _, send := range queue {
			if send.kind == kindFile && send.file != nil {
				send.file.Close()
			}
		}
	})
}

// IsClosed reports whether Close has run.
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
