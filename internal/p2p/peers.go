package p2p

import (
	"github.com/krishnaIndia/routing/internal/name"
	"github.com/krishnaIndia/routing/internal/routing"
	"github.com/krishnaIndia/routing/internal/types"
)

func (n *Node) addPeer(p *peer) bool {
	remote := p.sess.Remote()

	n.mu.Lock()
	if _, exists := n.peers[remote.Name]; exists || n.ctx.Err() != nil {
		n.mu.Unlock()
		return false
	}
	n.peers[remote.Name] = p
	n.mu.Unlock()

	n.learn(remote, string(p.dialable), true)
	n.emit(Event{Type: EventPeerConnected, PeerName: remote.Name, PeerAddr: p.addr})
	n.cfg.Logger.WithField("peer", remote.Name.String()).WithField("addr", p.addr).Info("connected")
	return true
}

func (n *Node) removePeer(p *peer) {
	remote := p.sess.Remote()

	n.mu.Lock()
	if cur := n.peers[remote.Name]; cur == p {
		delete(n.peers, remote.Name)
	}
	n.mu.Unlock()

	// Make removal idempotent
	p.once.Do(func() {
		_ = p.sess.Close()
		n.emit(Event{Type: EventPeerDisconnected, PeerName: remote.Name, PeerAddr: p.addr})
	})
}

// learn records an identity in the store. Directly connected peers also
// enter the routing table, with an empty address when they cannot be dialled.
func (n *Node) learn(pub types.PublicPmid, addr string, direct bool) {
	if n.cfg.Store != nil {
		if _, err := n.cfg.Store.PutPeer(pub); err != nil {
			n.cfg.Logger.WithError(err).Warn("persist peer failed")
		}
	}
	if direct {
		n.table.UpsertWithEviction(pub.Name, addr, n.isConnected)
	}
}

// provenKeys returns the keys already bound to nm, first from a live
// session (proved in its handshake), then from the store.
func (n *Node) provenKeys(nm name.NameType) (types.PublicPmid, bool) {
	n.mu.RLock()
	p, ok := n.peers[nm]
	n.mu.RUnlock()
	if ok {
		return p.sess.Remote(), true
	}
	if n.cfg.Store != nil {
		if known, found, err := n.cfg.Store.Peer(nm); err == nil && found {
			return known, true
		}
	}
	return types.PublicPmid{}, false
}

func (n *Node) isConnected(ni routing.NodeInfo) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.peers[ni.Name]
	return ok
}

// PeerCount returns the current number of connected peers.
func (n *Node) PeerCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.peers)
}

// PeerNames returns a snapshot of connected peer names.
func (n *Node) PeerNames() []name.NameType {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]name.NameType, 0, len(n.peers))
	for nm := range n.peers {
		out = append(out, nm)
	}
	return out
}

func (n *Node) snapshotPeers() []*peer {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*peer, 0, len(n.peers))
	for _, p := range n.peers {
		out = append(out, p)
	}
	return out
}
