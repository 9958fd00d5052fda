package p2p

import (
	"errors"

	"github.com/krishnaIndia/routing/internal/codec"
	"github.com/krishnaIndia/routing/internal/messages"
	"github.com/krishnaIndia/routing/internal/types"
)

var ErrKeysConflict = errors.New("p2p: announced keys conflict with the proven identity")

// runPeer reads messages until the session fails. Frames that do not
// decode are dropped; the stream stays in sync because each message is
// one frame.
func (n *Node) runPeer(p *peer) {
	defer n.removePeer(p)

	for {
		m, err := p.sess.Receive()
		switch {
		case err == nil:
			n.handleMessage(p, m)
		case errors.Is(err, codec.ErrTruncatedInput), errors.Is(err, codec.ErrMalformedInput):
			continue
		default:
			select {
			case <-n.ctx.Done():
			default:
				n.cfg.Logger.WithError(err).WithField("peer", p.sess.Remote().Name.String()).Debug("read loop ended")
			}
			return
		}
	}
}

func (n *Node) handleMessage(from *peer, m messages.Message) {
	switch m := m.(type) {
	case messages.PutPublicPmid:
		n.handlePutPublicPmid(from, m)
	default:
		n.cfg.Logger.WithField("tag", m.Tag()).Warn("unhandled message")
	}
}

func (n *Node) handlePutPublicPmid(from *peer, m messages.PutPublicPmid) {
	pub := m.PublicPmid
	logger := n.cfg.Logger.WithField("from", from.sess.Remote().Name.String()).WithField("announced", pub.Name.String())
	if err := pub.Validate(); err != nil {
		logger.WithError(err).Warn("rejecting announcement")
		return
	}
	if pub.Name == n.cfg.Self.Name {
		return
	}

	direct := pub.Name == from.sess.Remote().Name
	if known, ok := n.provenKeys(pub.Name); ok && !known.SameKeys(pub) {
		// a name's keys only change through its own handshake
		logger.WithError(ErrKeysConflict).Warn("rejecting announcement")
		return
	}
	n.learn(pub, string(from.dialable), direct)
	n.emit(Event{Type: EventPeerAnnounced, PeerName: pub.Name, PeerAddr: from.addr})
	logger.Debug("learned identity")
}

// Announce sends pub to every connected peer.
func (n *Node) Announce(pub types.PublicPmid) int {
	sent := 0
	for _, p := range n.snapshotPeers() {
		if p.sess.Remote().Name == pub.Name {
			continue
		}
		if err := p.sess.Send(messages.PutPublicPmid{PublicPmid: pub}); err != nil {
			n.cfg.Logger.WithError(err).WithField("peer", p.sess.Remote().Name.String()).Warn("announce failed")
			continue
		}
		sent++
	}
	return sent
}
