package p2p

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/krishnaIndia/routing/internal/crypto/noiseconn"
	"github.com/krishnaIndia/routing/internal/messages"
	"github.com/krishnaIndia/routing/internal/name"
	"github.com/krishnaIndia/routing/internal/netx"
	"github.com/krishnaIndia/routing/internal/relocation"
	"github.com/krishnaIndia/routing/internal/storage/pmidbolt"
	"github.com/krishnaIndia/routing/internal/telemetry"
	"github.com/krishnaIndia/routing/internal/types"
)

func newTestNode(t *testing.T, label string) (*Node, *pmidbolt.Store) {
	t.Helper()
	self, err := types.NewPmid()
	if err != nil {
		t.Fatalf("NewPmid: %v", err)
	}
	store, err := pmidbolt.Open(filepath.Join(t.TempDir(), "pmid.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	n, err := NewNode(NodeConfig{
		Self:      self,
		Network:   netx.NewTCPNetwork(),
		BindAddr:  "127.0.0.1:0",
		Store:     store,
		GroupSize: 4,
		Timeout:   2 * time.Second,
		Logger:    telemetry.NewTestLogger(t, label),
	})
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	if err := n.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = n.Stop() })
	return n, store
}

func waitEvent(t *testing.T, n *Node, typ EventType, peer name.NameType) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case e := <-n.Events():
			if e.Type == typ && e.PeerName == peer {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s from %s", typ, peer)
		}
	}
}

func TestNewNode_RejectsMissingIdentity(t *testing.T) {
	if _, err := NewNode(NodeConfig{}); err == nil {
		t.Fatalf("expected error without identity")
	}
}

func TestConnectTo_LearnsBothWays(t *testing.T) {
	a, aStore := newTestNode(t, "a")
	b, bStore := newTestNode(t, "b")

	remote, err := b.ConnectTo(context.Background(), a.ListenAddr())
	if err != nil {
		t.Fatalf("ConnectTo: %v", err)
	}
	if remote.Name != a.Name() {
		t.Fatalf("dialer learned %s, want %s", remote.Name, a.Name())
	}
	waitEvent(t, a, EventPeerConnected, b.Name())

	if got := a.Table().Closest(b.Name(), 1); len(got) != 1 || got[0] != b.Name() {
		t.Fatalf("acceptor table missing dialer: %v", got)
	}
	if got := b.Table().Closest(a.Name(), 1); len(got) != 1 || got[0] != a.Name() {
		t.Fatalf("dialer table missing acceptor: %v", got)
	}
	if _, ok, err := aStore.Peer(b.Name()); !ok || err != nil {
		t.Fatalf("acceptor did not persist dialer: ok=%v err=%v", ok, err)
	}
	if _, ok, err := bStore.Peer(a.Name()); !ok || err != nil {
		t.Fatalf("dialer did not persist acceptor: ok=%v err=%v", ok, err)
	}
	if a.PeerCount() != 1 || b.PeerCount() != 1 {
		t.Fatalf("unexpected peer counts %d %d", a.PeerCount(), b.PeerCount())
	}

	// inbound source ports are ephemeral, dialled addresses are kept
	if got := a.Table().ClosestNodes(b.Name(), 1); got[0].Addr != "" {
		t.Fatalf("acceptor stored undialable address %q", got[0].Addr)
	}
	if got := b.Table().ClosestNodes(a.Name(), 1); got[0].Addr != string(a.ListenAddr()) {
		t.Fatalf("dialer stored %q, want %q", got[0].Addr, a.ListenAddr())
	}
}

func TestAnnounce_ReachesPeer(t *testing.T) {
	a, aStore := newTestNode(t, "a")
	b, _ := newTestNode(t, "b")

	if _, err := b.ConnectTo(context.Background(), a.ListenAddr()); err != nil {
		t.Fatalf("ConnectTo: %v", err)
	}
	waitEvent(t, a, EventPeerConnected, b.Name())

	carol, err := types.NewPmid()
	if err != nil {
		t.Fatalf("NewPmid: %v", err)
	}
	if sent := b.Announce(carol.Public()); sent != 1 {
		t.Fatalf("expected one recipient, got %d", sent)
	}
	waitEvent(t, a, EventPeerAnnounced, carol.Name)

	got, ok, err := aStore.Peer(carol.Name)
	if err != nil || !ok || !got.Equal(carol.Public()) {
		t.Fatalf("announced identity not stored: ok=%v err=%v", ok, err)
	}
	// only directly connected peers enter the table
	if a.Table().Size() != 1 {
		t.Fatalf("expected 1 table entry, got %d", a.Table().Size())
	}
}

func TestRelocationCandidate(t *testing.T) {
	a, _ := newTestNode(t, "a")
	proposed := name.Random()

	if _, err := a.RelocationCandidate(proposed); err == nil {
		t.Fatalf("expected error with an empty table")
	}

	var names []name.NameType
	for i := 0; i < 6; i++ {
		nm := name.Random()
		a.Table().Upsert(nm, fmt.Sprintf("10.0.%d.1:5483", i))
		names = append(names, nm)
	}
	got, err := a.RelocationCandidate(proposed)
	if err != nil {
		t.Fatalf("RelocationCandidate: %v", err)
	}
	want, _ := relocation.Relocate(proposed, names)
	if got != want {
		t.Fatalf("candidate %s, want %s", got, want)
	}
}

func TestConnectTo_Duplicate(t *testing.T) {
	a, _ := newTestNode(t, "a")
	b, _ := newTestNode(t, "b")

	for i := 0; i < 2; i++ {
		if _, err := b.ConnectTo(context.Background(), a.ListenAddr()); err != nil {
			t.Fatalf("ConnectTo #%d: %v", i, err)
		}
	}
	if b.PeerCount() != 1 {
		t.Fatalf("duplicate session kept: %d peers", b.PeerCount())
	}
}

func newPmid(t *testing.T) *types.Pmid {
	t.Helper()
	p, err := types.NewPmid()
	if err != nil {
		t.Fatalf("NewPmid: %v", err)
	}
	return p
}

func TestAnnounce_CannotRebindProvenName(t *testing.T) {
	a, aStore := newTestNode(t, "a")
	b, _ := newTestNode(t, "b")
	c, _ := newTestNode(t, "c")
	bPub := b.cfg.Self.Public()

	if _, err := b.ConnectTo(context.Background(), a.ListenAddr()); err != nil {
		t.Fatalf("ConnectTo b: %v", err)
	}
	waitEvent(t, a, EventPeerConnected, b.Name())
	if _, err := c.ConnectTo(context.Background(), a.ListenAddr()); err != nil {
		t.Fatalf("ConnectTo c: %v", err)
	}
	waitEvent(t, a, EventPeerConnected, c.Name())

	// c's token is valid for c's keys, but the name belongs to b
	forged := c.cfg.Self.Public()
	forged.Name = b.Name()

	assertKept := func(stage string) {
		t.Helper()
		if sent := c.Announce(forged); sent != 1 {
			t.Fatalf("%s: expected one recipient, got %d", stage, sent)
		}
		marker := newPmid(t)
		c.Announce(marker.Public())
		waitEvent(t, a, EventPeerAnnounced, marker.Name)

		got, ok, err := aStore.Peer(b.Name())
		if err != nil || !ok {
			t.Fatalf("%s: stored record missing: ok=%v err=%v", stage, ok, err)
		}
		if !got.Equal(bPub) {
			t.Fatalf("%s: a third party replaced the proven identity", stage)
		}
	}

	assertKept("while connected")

	if err := b.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitEvent(t, a, EventPeerDisconnected, b.Name())
	assertKept("from the store")
}

func TestRunPeer_DropsUndecodableFrame(t *testing.T) {
	a, aStore := newTestNode(t, "a")

	raw, err := net.Dial("tcp", string(a.ListenAddr()))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer raw.Close()

	self := newPmid(t)
	hello, err := messages.Encode(messages.PutPublicPmid{PublicPmid: self.Public()})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	hs, err := noiseconn.NewSecureClient(raw, self.SecretKey, self.PublicKey, hello)
	if err != nil {
		t.Fatalf("NewSecureClient: %v", err)
	}
	waitEvent(t, a, EventPeerConnected, self.Name)

	if err := hs.Conn.WriteFrame([]byte{0xff, 0x00}); err != nil {
		t.Fatalf("WriteFrame garbage: %v", err)
	}
	carol := newPmid(t)
	msg, err := messages.Encode(messages.PutPublicPmid{PublicPmid: carol.Public()})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := hs.Conn.WriteFrame(msg); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	waitEvent(t, a, EventPeerAnnounced, carol.Name)
	if a.PeerCount() != 1 {
		t.Fatalf("session must survive a bad frame, peers=%d", a.PeerCount())
	}
	if _, ok, err := aStore.Peer(carol.Name); !ok || err != nil {
		t.Fatalf("announcement after bad frame not stored: ok=%v err=%v", ok, err)
	}
}
