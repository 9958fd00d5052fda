package noiseconn

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var ErrHandshakeTooLong = errors.New("noiseconn: handshake message too long")

// writeHandshakeMsg sends a length-prefixed handshake message.
func writeHandshakeMsg(w io.Writer, msg []byte) error {
	if len(msg) > 0xffff {
		return ErrHandshakeTooLong
	}
	buf := make([]byte, 2, 2+len(msg))
	binary.BigEndian.PutUint16(buf, uint16(len(msg)))
	_, err := w.Write(append(buf, msg...))
	return err
}

// readHandshakeMsg reads a single length-prefixed handshake message.
func readHandshakeMsg(r io.Reader) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	if n == 0 {
		return nil, fmt.Errorf("noiseconn: invalid handshake message length")
	}
	msg := make([]byte, n)
	if _, err := io.ReadFull(r, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
