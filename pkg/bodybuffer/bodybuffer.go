// Package bodybuffer provides a memory-efficient byte sink with disk
// spilling, usable as a handler's request-body Writer or response-body
// Reader when the handler wants to buffer a whole exchange body rather
// than stream it chunk by chunk.
package bodybuffer

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/go-httpd/httpd/pkg/constants"
	"github.com/go-httpd/httpd/pkg/stream"
)

// Buffer stores data either in memory or spooled to a temporary file once
// it exceeds a configured threshold.
type Buffer struct {
	buf    bytes.Buffer
	file   *os.File
	path   string
	size   int64
	limit  int64
	mu     sync.Mutex
	closed bool

	readFile *os.File // lazily opened by Read once writing is done
}

// New creates a new Buffer with the provided memory limit. A non-positive
// limit falls back to constants.DefaultBodyMemLimit.
func New(limit int64) *Buffer {
	if limit <= 0 {
		limit = constants.DefaultBodyMemLimit
	}
	return &Buffer{limit: limit}
}

// NewWithData creates a buffer pre-populated with existing data, useful to
// hand a fixed in-memory response body to Connection.SendReader via the
// stream.Reader side of Buffer.
func NewWithData(data []byte) *Buffer {
	b := &Buffer{limit: constants.DefaultBodyMemLimit, size: int64(len(data))}
	b.buf.Write(data)
	return b
}

// Write stores p, spilling to disk once the in-memory threshold is
// exceeded. Implements plain io.Writer for callers that just want a sink.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writeLocked(p)
}

func (b *Buffer) writeLocked(p []byte) (int, error) {
	if b.closed {
		return 0, fmt.Errorf("bodybuffer: write to closed buffer")
	}

	b.size += int64(len(p))

	if b.file == nil && int64(b.buf.Len()+len(p)) <= b.limit {
		return b.buf.Write(p)
	}

	if b.file == nil {
		tmp, err := os.CreateTemp("", "httpd-body-*.tmp")
		if err != nil {
			return 0, fmt.Errorf("bodybuffer: creating temp file: %w", err)
		}
		b.file = tmp
		b.path = tmp.Name()

		if b.buf.Len() > 0 {
			if _, err := tmp.Write(b.buf.Bytes()); err != nil {
				b.closeLocked()
				return 0, fmt.Errorf("bodybuffer: writing to temp file: %w", err)
			}
		}
		b.buf.Reset()
	}

	n, err := b.file.Write(p)
	if err != nil {
		return n, fmt.Errorf("bodybuffer: writing to temp file: %w", err)
	}
	return n, nil
}

// WriteChunk implements stream.Writer: it accepts every chunk offered and
// never signals end-of-stream itself (the caller decides when the body is
// complete, usually by observing the engine's last-call).
func (b *Buffer) WriteChunk(chunk []byte) (int, stream.WriteOutcome, error) {
	n, err := b.Write(chunk)
	if err != nil {
		return n, stream.WriteError, err
	}
	return n, stream.Accepted, nil
}

// Bytes returns the in-memory data. If the payload spilled to disk this
// returns nil.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.file != nil {
		return nil
	}
	return b.buf.Bytes()
}

// Path returns the filesystem path backing the spilled payload, or "" if
// the data never spilled.
func (b *Buffer) Path() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.path
}

// Size returns the total number of bytes written.
func (b *Buffer) Size() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// IsSpilled reports whether the buffer has spilled to disk.
func (b *Buffer) IsSpilled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file != nil
}

// Reader returns a fresh io.ReadCloser over the stored data.
func (b *Buffer) Reader() (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("bodybuffer: read from closed buffer")
	}

	if b.file != nil {
		if err := b.file.Sync(); err != nil {
			return nil, fmt.Errorf("bodybuffer: syncing temp file: %w", err)
		}
		f, err := os.Open(b.path)
		if err != nil {
			return nil, fmt.Errorf("bodybuffer: opening temp file for reading: %w", err)
		}
		return f, nil
	}

	return io.NopCloser(bytes.NewReader(b.buf.Bytes())), nil
}

// Read implements stream.Reader, pulling up to len(buf) bytes from the
// stored data so a Buffer can back Connection.SendReader directly. The
// backing reader is opened lazily on first call and closed automatically
// on end-of-stream.
func (b *Buffer) Read(buf []byte) (int, stream.ReadOutcome, error) {
	b.mu.Lock()
	if b.readFile == nil && b.file != nil {
		if err := b.file.Sync(); err != nil {
			b.mu.Unlock()
			return 0, stream.ReadError, fmt.Errorf("bodybuffer: syncing temp file: %w", err)
		}
		f, err := os.Open(b.path)
		if err != nil {
			b.mu.Unlock()
			return 0, stream.ReadError, fmt.Errorf("bodybuffer: opening temp file for reading: %w", err)
		}
		b.readFile = f
	}
	rf := b.readFile
	b.mu.Unlock()

	if rf != nil {
		n, err := rf.Read(buf)
		if err == io.EOF {
			rf.Close()
			return n, stream.ReadEndOfStream, nil
		}
		if err != nil {
			return n, stream.ReadError, err
		}
		return n, stream.DataRead, nil
	}

	// In-memory: Bytes() is only valid once, so track an offset.
	b.mu.Lock()
	defer b.mu.Unlock()
	data := b.buf.Bytes()
	if len(data) == 0 {
		return 0, stream.ReadEndOfStream, nil
	}
	n := copy(buf, data)
	b.buf.Next(n)
	if b.buf.Len() == 0 {
		return n, stream.ReadEndOfStream, nil
	}
	return n, stream.DataRead, nil
}

// Close flushes and removes any spilled temp file. Safe for concurrent and
// repeated calls.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeLocked()
}

func (b *Buffer) closeLocked() error {
	if b.closed {
		return nil
	}
	b.closed = true

	if b.readFile != nil {
		b.readFile.Close()
		b.readFile = nil
	}

	if b.file != nil {
		err := b.file.Close()
		if removeErr := os.Remove(b.path); removeErr != nil && err == nil {
			err = fmt.Errorf("bodybuffer: removing temp file: %w", removeErr)
		}
		b.file = nil
		b.path = ""
		if err != nil {
			return fmt.Errorf("bodybuffer: closing temp file: %w", err)
		}
	}
	return nil
}

// Reset clears the buffer for reuse.
func (b *Buffer) Reset() error {
	if err := b.Close(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
	b.size = 0
	b.closed = false
	return nil
}
