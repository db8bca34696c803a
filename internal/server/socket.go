package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/go-httpd/httpd/pkg/certs"
	"github.com/go-httpd/httpd/pkg/constants"
	httperrors "github.com/go-httpd/httpd/pkg/errors"
	"github.com/go-httpd/httpd/pkg/settings"
	"github.com/go-httpd/httpd/pkg/stream"
	"github.com/go-httpd/httpd/pkg/tlsprofile"
)

// Handler is implemented by callers to receive one exchange's arrival.
// OnArrive returns the stream.Input the dispatch loop will feed request
// body chunks into; a nil Input declines the body, and the request,
// outright, sending the socket straight to its default path. OnArrive
// must not block for longer than the socket's connection timeout; it
// runs on the connection's own goroutine.
type Handler interface {
	OnArrive(ctx *RequestContext) stream.Input
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(ctx *RequestContext) stream.Input

// OnArrive implements Handler.
func (f HandlerFunc) OnArrive(ctx *RequestContext) stream.Input { return f(ctx) }

// Socket is one listening HTTP or HTTPS endpoint: the dispatch loop that
// drives every accepted connection's exchange through arrival, body
// pumping, response flush, and default-response stages, wrapped in a
// listen/release/wait lifecycle.
type Socket struct {
	settings settings.Settings
	handler  Handler
	certs    *certs.Registry
	logger   *zap.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	listener net.Listener
	httpSrv  *http.Server
	running  bool
	stopped  bool
	serveErr error
}

// NewSocket constructs a Socket bound to the given settings and handler.
// A nil logger falls back to zap.NewNop(), matching the rest of this
// package's "logging is never load-bearing" stance.
func NewSocket(s settings.Settings, h Handler, logger *zap.Logger) *Socket {
	if logger == nil {
		logger = zap.NewNop()
	}
	sock := &Socket{
		settings: s,
		handler:  h,
		certs:    certs.NewRegistry(),
		logger:   logger,
	}
	sock.cond = sync.NewCond(&sock.mu)
	return sock
}

// AddTLSHost installs a certificate/key pair under hostname (exact,
// "*.suffix" wildcard, or "" catch-all) for SNI-based resolution. It must
// be called before Listen/ListenBackground for HTTPS sockets; calling it
// on an already-listening socket returns a Busy error instead of silently
// updating a registry the handshake callback may already be consulting.
func (s *Socket) AddTLSHost(hostname string, certPEM, keyPEM []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return httperrors.NewBusyError("add-tls-host")
	}
	return s.certs.Add(hostname, certPEM, keyPEM)
}

// Listen binds the configured port and serves until Release is called or
// a fatal accept error occurs, blocking the calling goroutine throughout.
func (s *Socket) Listen() error {
	if err := s.start(); err != nil {
		return err
	}
	return s.run()
}

// ListenBackground starts the socket on its own goroutine and returns
// once the listener is bound, without waiting for it to finish serving.
// Callers drive the lifecycle with Wait/Release instead.
func (s *Socket) ListenBackground() error {
	if err := s.start(); err != nil {
		return err
	}
	go func() {
		_ = s.run()
	}()
	return nil
}

// Addr returns the bound listener address, or nil if the socket has not
// started listening yet. Useful after binding an ephemeral port (0).
func (s *Socket) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Socket) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return httperrors.NewBusyError("listen")
	}

	base, err := newLimitedListener(
		fmt.Sprintf(":%d", s.settings.Port),
		s.settings.ConnectionLimit,
		s.settings.PerIPConnectionLimit,
	)
	if err != nil {
		return httperrors.NewListenFailedError(s.settings.Port, err)
	}

	var ln net.Listener = base
	if s.settings.HTTPS {
		profile, ok := tlsprofile.Named(s.settings.TLSProfile)
		if !ok {
			base.Close()
			return httperrors.NewConfigError("tls-profile", fmt.Sprintf("unknown profile %q", s.settings.TLSProfile))
		}
		cfg := &tls.Config{GetCertificate: s.certs.GetCertificate}
		tlsprofile.Apply(cfg, profile)
		ln = wrapLimitedListenerTLS(base, cfg)
	}

	s.listener = ln
	stdLog, err := zap.NewStdLogAt(s.logger, zapcore.ErrorLevel)
	if err != nil {
		ln.Close()
		return httperrors.NewConfigError("logger", err.Error())
	}
	s.httpSrv = &http.Server{
		Handler:      s,
		ReadTimeout:  s.settings.ConnectionTimeout,
		WriteTimeout: s.settings.ConnectionTimeout,
		ErrorLog:     stdLog,
	}
	s.running = true
	s.stopped = false
	return nil
}

func (s *Socket) run() error {
	err := s.httpSrv.Serve(s.listener)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.stopped = true
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.serveErr = err
	} else {
		s.serveErr = nil
	}
	s.cond.Broadcast()
	return s.serveErr
}

// Release stops the socket: it closes the listener at once, then waits up
// to the configured connection timeout for in-flight exchanges to finish.
// Exchanges still running when that timeout expires are not force-closed;
// Release then returns the timeout's context error.
func (s *Socket) Release() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	srv := s.httpSrv
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.settings.ConnectionTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Wait blocks until the socket stops listening or ms milliseconds
// elapse, whichever comes first, reporting whether the socket had
// already stopped by the time Wait returned. A ms of 0 waits
// indefinitely.
func (s *Socket) Wait(ms uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return true
	}

	if ms == 0 {
		for !s.stopped {
			s.cond.Wait()
		}
		return true
	}

	done := make(chan struct{})
	timer := time.AfterFunc(time.Duration(ms)*time.Millisecond, func() {
		s.mu.Lock()
		close(done)
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer timer.Stop()

	for !s.stopped {
		select {
		case <-done:
			return s.stopped
		default:
		}
		s.cond.Wait()
	}
	return true
}

// ServeHTTP drives one exchange through arrival, request-body pumping,
// response flush, and default-response stages. Unlike a callback-per-
// chunk engine, net/http already hands the whole request to this method
// synchronously, so body chunking and the deferred-send flush are both
// driven explicitly here rather than by repeated re-entry.
func (s *Socket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := newRequest(r, r.TLS != nil, s.settings.Port)
	conn := newConnection()
	defer conn.Close()
	defer s.recoverHandlerFault(w, conn)

	ctx := newRequestContext(req, conn, stream.NoInput)
	ctx.Input = s.handler.OnArrive(ctx)

	if ctx.Input.IsNil() {
		s.writeDefault(w, conn)
		return
	}

	if err := s.pumpBody(r, ctx.Input); err != nil {
		s.logger.Warn("body pump failed", zap.Error(err), zap.String("path", req.Path()))
		if conn.IsResponseQueueEmpty() {
			s.writeDefault(w, conn)
			return
		}
	}

	if conn.IsResponseQueueEmpty() {
		// The handler explicitly declined to answer after seeing the
		// whole body. Hijack and drop the connection rather than let
		// net/http's implicit 200 OK stand in for "no response".
		s.dropConnection(w)
		return
	}

	if err := conn.flush(w); err != nil {
		s.logger.Warn("response flush failed", zap.Error(err), zap.String("path", req.Path()))
	}
}

// pumpBody reads the request body in MaxSendChunk pieces, feeding each to
// input.Writer until the body is exhausted or the writer signals
// end-of-stream/error. A Writer is free to accept fewer bytes than it
// was offered in a single call, so each read's bytes are re-offered
// until fully consumed.
func (s *Socket) pumpBody(r *http.Request, input stream.Input) error {
	if r.Body == nil {
		return nil
	}
	buf := make([]byte, constants.MaxSendChunk)
	for {
		n, rerr := r.Body.Read(buf)
		if n > 0 {
			offset := 0
			for offset < n {
				written, outcome, werr := input.Writer.Write(buf[offset:n])
				if werr != nil {
					return werr
				}
				if outcome == stream.WriteError {
					return fmt.Errorf("server: body writer reported an error")
				}
				if written <= 0 {
					return fmt.Errorf("server: body writer accepted zero bytes")
				}
				offset += written
				if outcome == stream.WriteEndOfStream {
					return nil
				}
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				return nil
			}
			return rerr
		}
	}
}

// writeDefault implements state S4: no handler claimed the request (or
// the handler's queue was still empty by the time the engine reached its
// default path), so the socket injects its fixed 404 page.
func (s *Socket) writeDefault(w http.ResponseWriter, conn *Connection) {
	conn.SendBytes(http.StatusNotFound, map[string]string{
		"Content-Type": "text/html; charset=utf-8",
	}, []byte(constants.Default404Body))
	if err := conn.flush(w); err != nil {
		s.logger.Warn("default response flush failed", zap.Error(err))
	}
}

// dropConnection implements state S3's "queue still empty" outcome: the
// connection is closed without any response being written. http.Hijacker
// is the only way to suppress net/http's implicit 200 OK; a transport
// that doesn't support hijacking (e.g. HTTP/2) falls back to the 404 page
// rather than leaving the client hanging forever.
func (s *Socket) dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(constants.Default404Body))
		return
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		s.logger.Warn("hijack failed, falling back to 404", zap.Error(err))
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(constants.Default404Body))
		return
	}
	conn.Close()
}

// recoverHandlerFault turns a panicking handler into a HandlerFault error
// logged at Error level with a stack trace, instead of crashing the
// listener goroutine. Unless conn has already marked a response as sent,
// it then flushes the queued response, or the built-in 500 page when
// nothing was queued.
func (s *Socket) recoverHandlerFault(w http.ResponseWriter, conn *Connection) {
	rec := recover()
	if rec == nil {
		return
	}
	err := httperrors.NewHandlerFaultError("recover", fmt.Errorf("%v", rec))
	if c := s.logger.Check(zapcore.ErrorLevel, "handler panicked"); c != nil {
		c.Write(zap.Error(err), zap.Stack("stack"))
	}
	if conn.HasResponseSent() {
		return
	}
	if conn.IsResponseQueueEmpty() {
		conn.SendBytes(http.StatusInternalServerError, map[string]string{
			"Content-Type": "text/html; charset=utf-8",
		}, []byte(constants.Default500Body))
	}
	if ferr := conn.flush(w); ferr != nil {
		s.logger.Warn("fault response flush failed", zap.Error(ferr))
	}
}
