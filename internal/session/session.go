// Package session secures a stream with Noise and exchanges PutPublicPmid
// announcements during the handshake, so both sides learn each other's
// name before any application frame flows.
package session

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/krishnaIndia/routing/internal/crypto/noiseconn"
	"github.com/krishnaIndia/routing/internal/messages"
	"github.com/krishnaIndia/routing/internal/types"
)

var (
	ErrKeyMismatch = errors.New("session: announced key does not match handshake key")
	ErrSelfDial    = errors.New("session: remote announced our own name")
)

// Conn is the transport a session runs over.
type Conn interface {
	io.ReadWriteCloser
	SetDeadline(t time.Time) error
}

// Session is an authenticated channel to one peer.
type Session struct {
	conn   *noiseconn.SecureConn
	remote types.PublicPmid
	logger *logrus.Entry
}

// Dial runs the handshake as initiator.
func Dial(conn Conn, self *types.Pmid, timeout time.Duration, logger *logrus.Entry) (*Session, error) {
	return establish(conn, self, true, timeout, logger)
}

// Accept runs the handshake as responder.
func Accept(conn Conn, self *types.Pmid, timeout time.Duration, logger *logrus.Entry) (*Session, error) {
	return establish(conn, self, false, timeout, logger)
}

func establish(conn Conn, self *types.Pmid, initiator bool, timeout time.Duration, logger *logrus.Entry) (*Session, error) {
	if err := self.Validate(); err != nil {
		return nil, err
	}
	hello, err := messages.Encode(messages.PutPublicPmid{PublicPmid: self.Public()})
	if err != nil {
		return nil, err
	}

	if timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return nil, err
		}
		defer conn.SetDeadline(time.Time{})
	}

	var hs *noiseconn.HandshakeResult
	if initiator {
		hs, err = noiseconn.NewSecureClient(conn, self.SecretKey, self.PublicKey, hello)
	} else {
		hs, err = noiseconn.NewSecureServer(conn, self.SecretKey, self.PublicKey, hello)
	}
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("session: handshake: %w", err)
	}

	remote, err := verifyAnnouncement(hs, self)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	s := &Session{
		conn:   hs.Conn,
		remote: remote,
		logger: logger.WithField("peer", remote.Name.String()),
	}
	s.logger.WithField("initiator", initiator).Debug("session established")
	return s, nil
}

func verifyAnnouncement(hs *noiseconn.HandshakeResult, self *types.Pmid) (types.PublicPmid, error) {
	put, err := messages.DecodePutPublicPmid(hs.RemotePayload)
	if err != nil {
		return types.PublicPmid{}, fmt.Errorf("session: announcement: %w", err)
	}
	remote := put.PublicPmid
	if err := remote.Validate(); err != nil {
		return types.PublicPmid{}, fmt.Errorf("session: announcement: %w", err)
	}
	if !bytes.Equal(remote.PublicKey, hs.RemoteStatic) {
		return types.PublicPmid{}, ErrKeyMismatch
	}
	if remote.Name == self.Name {
		return types.PublicPmid{}, ErrSelfDial
	}
	return remote, nil
}

// Remote is the identity the peer announced and proved during the handshake.
func (s *Session) Remote() types.PublicPmid { return s.remote }

// Send writes m as one encrypted frame.
func (s *Session) Send(m messages.Message) error {
	b, err := messages.Encode(m)
	if err != nil {
		return err
	}
	if err := s.conn.WriteFrame(b); err != nil {
		return err
	}
	s.logger.WithField("tag", m.Tag()).Debug("sent")
	return nil
}

// Receive reads the next frame and decodes it by tag.
func (s *Session) Receive() (messages.Message, error) {
	b, err := s.conn.ReadFrame()
	if err != nil {
		return nil, err
	}
	m, err := messages.Decode(b)
	if err != nil {
		s.logger.WithError(err).Warn("dropping undecodable frame")
		return nil, err
	}
	return m, nil
}

func (s *Session) Close() error { return s.conn.Close() }
