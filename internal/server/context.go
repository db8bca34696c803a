package server

import (
	"sync"

	"github.com/go-httpd/httpd/pkg/stream"
)

// ObjectContext is a mutex-guarded, per-exchange scratch space a handler
// can use to pass state between the multiple calls the dispatch loop may
// make into it while a request body streams in.
type ObjectContext struct {
	mu     sync.Mutex
	values map[string]any
}

func newObjectContext() *ObjectContext {
	return &ObjectContext{values: make(map[string]any)}
}

// Get returns the value stored under key and whether it was present.
func (o *ObjectContext) Get(key string) (any, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, ok := o.values[key]
	return v, ok
}

// Set stores value under key, replacing any prior value.
func (o *ObjectContext) Set(key string, value any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.values[key] = value
}

// Delete removes key, if present.
func (o *ObjectContext) Delete(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.values, key)
}

// RequestContext binds together everything a handler needs for one call
// into the dispatch loop: the immutable request snapshot, the response
// queue, the exchange's scratch space, and the Input returned by
// OnArrive, whose Writer the dispatch loop feeds request body chunks
// into via the three-state Writer contract.
type RequestContext struct {
	Request *Request
	Conn    *Connection
	Object  *ObjectContext
	Input   stream.Input
}

func newRequestContext(req *Request, conn *Connection, input stream.Input) *RequestContext {
	return &RequestContext{
		Request: req,
		Conn:    conn,
		Object:  newObjectContext(),
		Input:   input,
	}
}
