// Package httpd is an embeddable HTTP/1.1 (and HTTPS/SNI) server
// library: bind a Socket to a port, register a Handler to answer
// exchanges as they arrive, and drive its lifecycle with Listen/
// ListenBackground/Wait/Release.
package httpd

import (
	"go.uber.org/zap"

	"github.com/go-httpd/httpd/internal/registry"
	"github.com/go-httpd/httpd/internal/server"
	"github.com/go-httpd/httpd/pkg/settings"
	"github.com/go-httpd/httpd/pkg/stream"
)

// registryName is the factory key this package registers itself under,
// mirroring the adapter's own "httpd/com/http/server/Socket" binding.
const registryName = "httpd/com/http/server/Socket"

func init() {
	registry.Register(registryName, func(s settings.Settings, h server.Handler) *server.Socket {
		return server.NewSocket(s, h, nil)
	})
}

// Socket is one listening HTTP or HTTPS endpoint.
type Socket = server.Socket

// Handler receives each exchange as it arrives; see server.Handler for
// the full state-machine contract.
type Handler = server.Handler

// HandlerFunc adapts a function to a Handler.
type HandlerFunc = server.HandlerFunc

// RequestContext binds a Request, its Connection, and a per-exchange
// scratch space together for the duration of one Handler.OnArrive call.
type RequestContext = server.RequestContext

// Request is an immutable snapshot of one exchange's method, path,
// headers, and connection metadata.
type Request = server.Request

// Connection owns one exchange's deferred response queue.
type Connection = server.Connection

// ObjectContext is a mutex-guarded, per-exchange scratch space.
type ObjectContext = server.ObjectContext

// Settings is the validated configuration for a Socket.
type Settings = settings.Settings

// SettingsKV is one ordered (key, value) settings pair, as accepted by
// ParseSettings.
type SettingsKV = settings.KV

// Writer receives request body chunks, reporting a three-state outcome
// rather than an int-plus-sentinel return.
type Writer = stream.Writer

// WriterFunc adapts a function to a Writer.
type WriterFunc = stream.WriterFunc

// WriteOutcome classifies the result of a Writer.Write call.
type WriteOutcome = stream.WriteOutcome

// Reader supplies response body chunks on demand.
type Reader = stream.Reader

// ReaderFunc adapts a function to a Reader.
type ReaderFunc = stream.ReaderFunc

// ReadOutcome classifies the result of a Reader.Read call.
type ReadOutcome = stream.ReadOutcome

// Input wraps the handler-supplied Writer bound to one exchange's
// request body.
type Input = stream.Input

const (
	Accepted         = stream.Accepted
	WriteEndOfStream = stream.WriteEndOfStream
	WriteError       = stream.WriteError

	DataRead        = stream.DataRead
	ReadEndOfStream = stream.ReadEndOfStream
	ReadError       = stream.ReadError
)

// NoInput is the zero Input, signalling that a handler declines an
// exchange's body outright.
var NoInput = stream.NoInput

// ParseSettings validates an ordered sequence of (key, value) pairs into
// a Settings struct.
func ParseSettings(pairs []SettingsKV) (Settings, error) {
	return settings.Parse(pairs)
}

// SettingsPairs re-serializes s back into its ordered (key, value) form.
func SettingsPairs(s Settings) []SettingsKV {
	return settings.Pairs(s)
}

// NewSocket constructs a Socket bound to s and h. A nil logger disables
// structured logging entirely.
func NewSocket(s Settings, h Handler, logger *zap.Logger) *Socket {
	return server.NewSocket(s, h, logger)
}

// New looks up the registered factory under registryName and constructs
// a Socket from it, mirroring the adapter's own registration-based
// construction path.
func New(s Settings, h Handler) (*Socket, error) {
	return registry.New(registryName, s, h)
}
