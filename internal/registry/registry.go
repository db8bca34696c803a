// Package registry provides a process-wide lookup of named socket
// factories, mirroring the adapter's registration model where a
// component is published under a fixed name ("httpd/com/http/server/Socket")
// and constructed from parsed settings plus a handler.
package registry

import (
	"fmt"
	"sync"

	"github.com/go-httpd/httpd/internal/server"
	"github.com/go-httpd/httpd/pkg/settings"
)

// Factory builds a server.Socket from validated settings and a handler.
type Factory func(settings.Settings, server.Handler) *server.Socket

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register installs factory under name, replacing any prior registration.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
}

// New looks up the factory registered under name and invokes it. It
// returns an error if no factory has been registered under that name.
func New(name string, s settings.Settings, h server.Handler) (*server.Socket, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("registry: no factory registered under %q", name)
	}
	return factory(s, h), nil
}
