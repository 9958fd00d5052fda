package p2p

import (
	"github.com/krishnaIndia/routing/internal/name"
	"github.com/krishnaIndia/routing/internal/netx"
)

type EventType string

const (
	EventPeerConnected    EventType = "peer_connected"
	EventPeerDisconnected EventType = "peer_disconnected"
	EventPeerAnnounced    EventType = "peer_announced"
)

type Event struct {
	Type     EventType
	PeerName name.NameType
	PeerAddr netx.Addr
}
