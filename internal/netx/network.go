package netx

import (
	"context"
	"io"
	"time"
)

type Addr string

// Conn is a stream the session layer can secure. Deadlines bound the
// identity handshake.
type Conn interface {
	io.ReadWriteCloser
	RemoteAddr() Addr
	SetDeadline(t time.Time) error
}

type Network interface {
	Listen(bindAddr string) (listenAddr Addr, err error)
	Accept() (Conn, error)
	Dial(ctx context.Context, addr Addr) (Conn, error)
	Close() error
}
