package noiseconn

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/flynn/noise"
)

// MaxFrame is the largest plaintext one frame can carry.
const MaxFrame = noise.MaxMsgLen - 16

var ErrFrameTooLarge = errors.New("noiseconn: frame too large")

var cipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashBLAKE2s)

// SecureConn wraps an underlying stream with Noise cipher states.
// Each Write is sent as one encrypted frame.
type SecureConn struct {
	underlying io.ReadWriteCloser

	rmu     sync.Mutex
	readCS  *noise.CipherState
	pending []byte

	wmu     sync.Mutex
	writeCS *noise.CipherState
}

// HandshakeResult is what a completed handshake learned about the remote side.
type HandshakeResult struct {
	Conn          *SecureConn
	RemoteStatic  []byte
	RemotePayload []byte
}

// ReadFrame reads and decrypts exactly one frame.
func (c *SecureConn) ReadFrame() ([]byte, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()
	return c.readFrameLocked()
}

func (c *SecureConn) readFrameLocked() ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(c.underlying, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n == 0 || n > noise.MaxMsgLen {
		return nil, fmt.Errorf("noiseconn: invalid frame length %d", n)
	}

	ct := make([]byte, n)
	if _, err := io.ReadFull(c.underlying, ct); err != nil {
		return nil, err
	}
	return c.readCS.Decrypt(nil, nil, ct)
}

// Read serves the current frame, pulling the next one when it is used up.
func (c *SecureConn) Read(p []byte) (int, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()

	if len(c.pending) == 0 {
		pt, err := c.readFrameLocked()
		if err != nil {
			return 0, err
		}
		c.pending = pt
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// WriteFrame encrypts p as a single frame and writes it with a length prefix.
func (c *SecureConn) WriteFrame(p []byte) error {
	if len(p) > MaxFrame {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(p))
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()

	ct, err := c.writeCS.Encrypt(nil, nil, p)
	if err != nil {
		return err
	}
	buf := make([]byte, 4, 4+len(ct))
	binary.BigEndian.PutUint32(buf, uint32(len(ct)))
	_, err = c.underlying.Write(append(buf, ct...))
	return err
}

func (c *SecureConn) Write(p []byte) (int, error) {
	if err := c.WriteFrame(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *SecureConn) Close() error {
	return c.underlying.Close()
}

func newHandshake(initiator bool, staticPriv, staticPub []byte) (*noise.HandshakeState, error) {
	return noise.NewHandshakeState(noise.Config{
		CipherSuite:   cipherSuite,
		Random:        rand.Reader,
		Pattern:       noise.HandshakeXX,
		Initiator:     initiator,
		StaticKeypair: noise.DHKey{Private: staticPriv, Public: staticPub},
	})
}

// NewSecureClient runs a Noise_XX handshake as initiator. payload rides in
// the final handshake message, encrypted to the responder.
func NewSecureClient(underlying io.ReadWriteCloser, staticPriv, staticPub, payload []byte) (*HandshakeResult, error) {
	hs, err := newHandshake(true, staticPriv, staticPub)
	if err != nil {
		return nil, err
	}

	// -> e
	msg, _, _, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, err
	}
	if err := writeHandshakeMsg(underlying, msg); err != nil {
		return nil, err
	}

	// <- e, ee, s, es
	in, err := readHandshakeMsg(underlying)
	if err != nil {
		return nil, err
	}
	remotePayload, _, _, err := hs.ReadMessage(nil, in)
	if err != nil {
		return nil, err
	}

	// -> s, se
	msg, cs1, cs2, err := hs.WriteMessage(nil, payload)
	if err != nil {
		return nil, err
	}
	if err := writeHandshakeMsg(underlying, msg); err != nil {
		return nil, err
	}

	// cs1 carries initiator -> responder traffic
	return &HandshakeResult{
		Conn:          &SecureConn{underlying: underlying, readCS: cs2, writeCS: cs1},
		RemoteStatic:  hs.PeerStatic(),
		RemotePayload: remotePayload,
	}, nil
}

// NewSecureServer runs a Noise_XX handshake as responder. payload rides in
// the second handshake message.
func NewSecureServer(underlying io.ReadWriteCloser, staticPriv, staticPub, payload []byte) (*HandshakeResult, error) {
	hs, err := newHandshake(false, staticPriv, staticPub)
	if err != nil {
		return nil, err
	}

	// <- e
	in, err := readHandshakeMsg(underlying)
	if err != nil {
		return nil, err
	}
	if _, _, _, err := hs.ReadMessage(nil, in); err != nil {
		return nil, err
	}

	// -> e, ee, s, es
	msg, _, _, err := hs.WriteMessage(nil, payload)
	if err != nil {
		return nil, err
	}
	if err := writeHandshakeMsg(underlying, msg); err != nil {
		return nil, err
	}

	// <- s, se
	in, err = readHandshakeMsg(underlying)
	if err != nil {
		return nil, err
	}
	remotePayload, cs1, cs2, err := hs.ReadMessage(nil, in)
	if err != nil {
		return nil, err
	}

	return &HandshakeResult{
		Conn:          &SecureConn{underlying: underlying, readCS: cs1, writeCS: cs2},
		RemoteStatic:  hs.PeerStatic(),
		RemotePayload: remotePayload,
	}, nil
}
