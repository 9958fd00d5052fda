package p2p

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/krishnaIndia/routing/internal/netx"
	"github.com/krishnaIndia/routing/internal/session"
	"github.com/krishnaIndia/routing/internal/types"
)

// ConnectTo dials addr and completes the identity handshake before
// returning the identity the remote announced.
func (n *Node) ConnectTo(ctx context.Context, addr netx.Addr) (types.PublicPmid, error) {
	ctx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	conn, err := n.cfg.Network.Dial(ctx, addr)
	if err != nil {
		return types.PublicPmid{}, fmt.Errorf("dial %s: %w", addr, err)
	}
	sess, err := session.Dial(conn, n.cfg.Self, n.cfg.Timeout, n.cfg.Logger)
	if err != nil {
		return types.PublicPmid{}, err
	}

	p := &peer{sess: sess, addr: addr, dialable: addr}
	if !n.addPeer(p) {
		_ = sess.Close()
		return sess.Remote(), nil
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.runPeer(p)
	}()
	return sess.Remote(), nil
}

func (n *Node) handleConn(conn netx.Conn) {
	sess, err := session.Accept(conn, n.cfg.Self, n.cfg.Timeout, n.cfg.Logger)
	if err != nil {
		n.cfg.Logger.WithError(err).WithField("addr", conn.RemoteAddr()).Warn("handshake failed")
		return
	}
	remote := sess.Remote()

	// computed before the joining node enters the table
	if candidate, err := n.RelocationCandidate(remote.Name); err == nil {
		n.cfg.Logger.WithFields(logrus.Fields{
			"peer":      remote.Name.String(),
			"candidate": candidate.String(),
		}).Info("relocation candidate")
	} else {
		n.cfg.Logger.WithError(err).Debug("no relocation candidate")
	}

	p := &peer{sess: sess, addr: conn.RemoteAddr()}
	if !n.addPeer(p) {
		_ = sess.Close()
		return
	}
	n.runPeer(p)
}
