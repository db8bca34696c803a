package server

import (
	"crypto/tls"
	"net"
	"sync"
)

// limitedListener wraps a net.Listener to enforce a total connection
// cap and an optional per-source-IP cap, since net/http.Server has no
// native support for either.
type limitedListener struct {
	net.Listener

	total     chan struct{} // buffered semaphore, capacity == limit; nil means "no limit"
	perIP     uint32
	mu        sync.Mutex
	perIPUsed map[string]uint32
}

func newLimitedListener(addr string, totalLimit, perIPLimit uint32) (*limitedListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	ll := &limitedListener{
		Listener:  ln,
		perIP:     perIPLimit,
		perIPUsed: make(map[string]uint32),
	}
	if totalLimit > 0 {
		ll.total = make(chan struct{}, totalLimit)
	}
	return ll, nil
}

// wrapLimitedListenerTLS layers a tls.Listener on top of a
// *limitedListener so SNI certificate resolution runs on handshake while
// the connection/per-IP limits keep enforcing at the TCP accept layer.
func wrapLimitedListenerTLS(ll *limitedListener, cfg *tls.Config) net.Listener {
	return tls.NewListener(ll, cfg)
}

// Accept blocks until a connection arrives that fits within both the
// total and per-IP limits, releasing its slot when the connection
// closes.
func (l *limitedListener) Accept() (net.Conn, error) {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}

		host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())

		if !l.reserve(host) {
			conn.Close()
			continue
		}

		return &limitedConn{Conn: conn, ll: l, host: host}, nil
	}
}

func (l *limitedListener) reserve(host string) bool {
	if l.total != nil {
		select {
		case l.total <- struct{}{}:
		default:
			return false
		}
	}

	if l.perIP > 0 {
		l.mu.Lock()
		if l.perIPUsed[host] >= l.perIP {
			l.mu.Unlock()
			if l.total != nil {
				<-l.total
			}
			return false
		}
		l.perIPUsed[host]++
		l.mu.Unlock()
	}

	return true
}

func (l *limitedListener) release(host string) {
	if l.perIP > 0 {
		l.mu.Lock()
		if n := l.perIPUsed[host]; n > 1 {
			l.perIPUsed[host] = n - 1
		} else {
			delete(l.perIPUsed, host)
		}
		l.mu.Unlock()
	}
	if l.total != nil {
		<-l.total
	}
}

// limitedConn releases its listener's reserved slot exactly once, on
// close, however close is triggered (handler return, idle timeout, or
// client disconnect).
type limitedConn struct {
	net.Conn
	ll       *limitedListener
	host     string
	closeOne sync.Once
}

func (c *limitedConn) Close() error {
	c.closeOne.Do(func() { c.ll.release(c.host) })
	return c.Conn.Close()
}
