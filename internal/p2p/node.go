package p2p

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/krishnaIndia/routing/internal/name"
	"github.com/krishnaIndia/routing/internal/netx"
	"github.com/krishnaIndia/routing/internal/relocation"
	"github.com/krishnaIndia/routing/internal/routing"
	"github.com/krishnaIndia/routing/internal/session"
	"github.com/krishnaIndia/routing/internal/storage/pmidbolt"
	"github.com/krishnaIndia/routing/internal/types"
)

type NodeConfig struct {
	Self       *types.Pmid     // identity announced on every session
	Network    netx.Network    // transport implementation
	BindAddr   string          // e.g. "127.0.0.1:0" to choose a random port
	Store      *pmidbolt.Store // optional; announced peers are persisted here
	BucketSize int             // routing table k
	GroupSize  int             // close group size for relocation
	Timeout    time.Duration   // dial and handshake bound
	Logger     *logrus.Entry   // system logger
}

type peer struct {
	sess *session.Session
	addr netx.Addr // observed remote address
	// dialable is where the peer can be reached again; empty for inbound
	// sessions, whose source port is ephemeral.
	dialable netx.Addr
	once     sync.Once
}

// Node accepts and dials authenticated sessions, learns announced
// identities and keeps them in its routing table.
type Node struct {
	cfg   NodeConfig
	addr  netx.Addr
	table *routing.Table

	mu    sync.RWMutex
	peers map[name.NameType]*peer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	events chan Event
}

func NewNode(cfg NodeConfig) (*Node, error) {
	if cfg.Self == nil {
		return nil, errors.New("p2p: missing identity")
	}
	if err := cfg.Self.Validate(); err != nil {
		return nil, err
	}
	if cfg.Network == nil {
		cfg.Network = netx.NewTCPNetwork()
	}
	if cfg.GroupSize < relocation.Anchors {
		cfg.GroupSize = relocation.Anchors
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	cfg.Logger = cfg.Logger.WithField("node", cfg.Self.Name.String())

	ctx, cancel := context.WithCancel(context.Background())
	return &Node{
		cfg:    cfg,
		table:  routing.New(cfg.Self.Name, cfg.BucketSize),
		peers:  make(map[name.NameType]*peer),
		ctx:    ctx,
		cancel: cancel,
		events: make(chan Event, 128),
	}, nil
}

// Name returns this node's current name.
func (n *Node) Name() name.NameType { return n.cfg.Self.Name }

// ListenAddr returns where this node is listening.
func (n *Node) ListenAddr() netx.Addr { return n.addr }

// Table exposes the routing table, which also serves as the close group
// for relocation.
func (n *Node) Table() *routing.Table { return n.table }

// Events return a channel of peer events.
func (n *Node) Events() <-chan Event { return n.events }

// Start brings the node online.
func (n *Node) Start() error {
	addr, err := n.cfg.Network.Listen(n.cfg.BindAddr)
	if err != nil {
		return err
	}
	n.addr = addr
	n.cfg.Logger.WithField("addr", addr).Info("listening")

	n.wg.Add(1)
	go n.acceptLoop()
	return nil
}

// Stop shuts down the node and waits for its peers to drain.
func (n *Node) Stop() error {
	n.cancel()
	err := n.cfg.Network.Close()

	for _, p := range n.snapshotPeers() {
		n.removePeer(p)
	}

	n.wg.Wait()
	return err
}

// RelocationCandidate derives the network name a joining node with the
// proposed name would take, from this node's close group around it.
func (n *Node) RelocationCandidate(proposed name.NameType) (name.NameType, error) {
	return relocation.RelocateWith(n.table, proposed, n.cfg.GroupSize)
}

func (n *Node) emit(e Event) {
	select {
	case n.events <- e:
	default:
		// drop to avoid deadlock
	}
}
