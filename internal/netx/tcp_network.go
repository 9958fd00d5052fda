package netx

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"
)

var ErrAlreadyListening = errors.New("netx: already listening")

// DefaultKeepAlive is the TCP keep-alive period for dialled and accepted
// connections.
const DefaultKeepAlive = 30 * time.Second

// TCPNetwork carries sessions over plain TCP. Every Conn it hands out
// honours deadlines, so a stalled handshake can be cut off.
type TCPNetwork struct {
	mu       sync.Mutex
	listener *net.TCPListener
	dialer   net.Dialer
}

func NewTCPNetwork() *TCPNetwork {
	return &TCPNetwork{dialer: net.Dialer{KeepAlive: DefaultKeepAlive}}
}

// Listen binds bindAddr; use port 0 for a random port. A network listens on
// one address at a time.
func (t *TCPNetwork) Listen(bindAddr string) (Addr, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener != nil {
		return "", ErrAlreadyListening
	}

	laddr, err := net.ResolveTCPAddr("tcp", bindAddr)
	if err != nil {
		return "", err
	}
	l, err := net.ListenTCP("tcp", laddr)
	if err != nil {
		return "", err
	}
	t.listener = l
	return Addr(l.Addr().String()), nil
}

func (t *TCPNetwork) Accept() (Conn, error) {
	t.mu.Lock()
	l := t.listener
	t.mu.Unlock()
	if l == nil {
		return nil, net.ErrClosed
	}

	c, err := l.AcceptTCP()
	if err != nil {
		return nil, err
	}
	_ = c.SetKeepAlive(true)
	_ = c.SetKeepAlivePeriod(DefaultKeepAlive)
	return tcpConn{c}, nil
}

// Dial connects to addr; ctx bounds the connect only, use SetDeadline to
// bound later I/O.
func (t *TCPNetwork) Dial(ctx context.Context, addr Addr) (Conn, error) {
	c, err := t.dialer.DialContext(ctx, "tcp", string(addr))
	if err != nil {
		return nil, err
	}
	return tcpConn{c.(*net.TCPConn)}, nil
}

// Close stops listening. Established connections stay open.
func (t *TCPNetwork) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return nil
	}
	err := t.listener.Close()
	t.listener = nil
	return err
}

type tcpConn struct {
	*net.TCPConn
}

func (c tcpConn) RemoteAddr() Addr {
	return Addr(c.TCPConn.RemoteAddr().String())
}
