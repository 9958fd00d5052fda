package routing

import (
	"fmt"
	"net"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/krishnaIndia/routing/internal/name"
)

// DefaultBucketSize is k, the number of live contacts each bucket holds.
const DefaultBucketSize = 20

const replacementMax = 10

type NodeInfo struct {
	Name     name.NameType
	Addr     string
	LastSeen time.Time
}

type bucket struct {
	nodes []NodeInfo // index 0 = most recently seen
	repl  []NodeInfo
}

// Table keeps known peers in XOR-distance buckets around self.
// It is the close-group provider for relocation.
type Table struct {
	self name.NameType
	k    int

	mu      sync.RWMutex
	buckets [name.Bits]bucket

	maxPerSubnet int
}

type Option func(*Table)

// WithMaxPerSubnet caps how many contacts of one subnet a bucket accepts.
// Zero disables the cap.
func WithMaxPerSubnet(n int) Option {
	return func(t *Table) { t.maxPerSubnet = n }
}

func New(self name.NameType, k int, opts ...Option) *Table {
	if k <= 0 {
		k = DefaultBucketSize
	}
	t := &Table{self: self, k: k, maxPerSubnet: 2}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Table) Self() name.NameType { return t.self }

// PingFunc returns true if the node is alive.
type PingFunc func(NodeInfo) bool

// Upsert records a contact. A full bucket drops the newcomer.
func (t *Table) Upsert(n name.NameType, addr string) {
	t.upsert(n, addr, time.Now(), nil)
}

// UpsertWithEviction pings the least recently seen contact of a full bucket
// and replaces it if it is dead; otherwise the newcomer goes to the
// replacement cache.
func (t *Table) UpsertWithEviction(n name.NameType, addr string, ping PingFunc) {
	t.upsert(n, addr, time.Now(), ping)
}

func (t *Table) upsert(n name.NameType, addr string, now time.Time, ping PingFunc) {
	bi := name.BucketIndex(t.self, n)
	if bi < 0 {
		return
	}

	t.mu.Lock()
	b := &t.buckets[bi]

	if i := indexOf(b.nodes, n); i >= 0 {
		ni := b.nodes[i]
		if addr != "" {
			ni.Addr = addr
		}
		ni.LastSeen = now
		b.nodes = slices.Delete(b.nodes, i, i+1)
		b.nodes = slices.Insert(b.nodes, 0, ni)
		t.mu.Unlock()
		return
	}

	ni := NodeInfo{Name: n, Addr: addr, LastSeen: now}

	if t.subnetFull(b, addr) {
		t.mu.Unlock()
		return
	}
	if len(b.nodes) < t.k {
		b.nodes = slices.Insert(b.nodes, 0, ni)
		t.mu.Unlock()
		return
	}
	if ping == nil {
		t.mu.Unlock()
		return
	}

	tail := b.nodes[len(b.nodes)-1]
	t.mu.Unlock()

	// ping outside the lock
	alive := ping(tail)

	t.mu.Lock()
	defer t.mu.Unlock()
	b = &t.buckets[bi]

	if len(b.nodes) < t.k {
		b.nodes = slices.Insert(b.nodes, 0, ni)
		return
	}
	if alive && b.nodes[len(b.nodes)-1].Name == tail.Name {
		addReplacement(b, ni)
		return
	}
	b.nodes = b.nodes[:len(b.nodes)-1]
	b.nodes = slices.Insert(b.nodes, 0, ni)
}

// Remove drops a contact and promotes the freshest replacement, if any.
func (t *Table) Remove(n name.NameType) bool {
	bi := name.BucketIndex(t.self, n)
	if bi < 0 {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	b := &t.buckets[bi]

	i := indexOf(b.nodes, n)
	if i < 0 {
		return false
	}
	b.nodes = slices.Delete(b.nodes, i, i+1)
	if len(b.repl) > 0 {
		b.nodes = append(b.nodes, b.repl[0])
		b.repl = b.repl[1:]
	}
	return true
}

func addReplacement(b *bucket, ni NodeInfo) {
	if indexOf(b.repl, ni.Name) >= 0 {
		return
	}
	b.repl = slices.Insert(b.repl, 0, ni)
	if len(b.repl) > replacementMax {
		b.repl = b.repl[:replacementMax]
	}
}

func indexOf(nodes []NodeInfo, n name.NameType) int {
	return slices.IndexFunc(nodes, func(ni NodeInfo) bool { return ni.Name == n })
}

// ClosestNodes returns up to n contacts ordered by XOR distance to target.
func (t *Table) ClosestNodes(target name.NameType, n int) []NodeInfo {
	if n <= 0 {
		n = t.k
	}

	t.mu.RLock()
	all := make([]NodeInfo, 0, t.sizeLocked())
	for i := range t.buckets {
		all = append(all, t.buckets[i].nodes...)
	}
	t.mu.RUnlock()

	slices.SortStableFunc(all, func(a, b NodeInfo) int {
		return name.Compare(a.Name, b.Name, target)
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// Closest returns the names of up to n contacts closest to target.
func (t *Table) Closest(target name.NameType, n int) []name.NameType {
	nodes := t.ClosestNodes(target, n)
	out := make([]name.NameType, len(nodes))
	for i := range nodes {
		out[i] = nodes[i].Name
	}
	return out
}

// Size returns total number of contacts.
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sizeLocked()
}

func (t *Table) sizeLocked() int {
	n := 0
	for i := range t.buckets {
		n += len(t.buckets[i].nodes)
	}
	return n
}

func (t *Table) BucketSize(bucket int) int {
	if bucket < 0 || bucket >= name.Bits {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.buckets[bucket].nodes)
}

// subnetFull reports whether b already holds the per-subnet maximum for addr.
func (t *Table) subnetFull(b *bucket, addr string) bool {
	if t.maxPerSubnet <= 0 || addr == "" {
		return false
	}
	sk := subnetKey(addr)
	cnt := 0
	for i := range b.nodes {
		if subnetKey(b.nodes[i].Addr) == sk {
			cnt++
		}
	}
	return cnt >= t.maxPerSubnet
}

func subnetKey(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host, port = addr, ""
	}

	ip := net.ParseIP(host)
	switch {
	case ip == nil:
		return "dns:" + strings.ToLower(host)
	case ip.IsLoopback():
		// local test nets share one host; tell them apart by port
		return "loopback:" + net.JoinHostPort(host, port)
	}

	if v4 := ip.To4(); v4 != nil {
		return fmt.Sprintf("v4:%d.%d.%d.0/24", v4[0], v4[1], v4[2])
	}
	return "v6:" + ip.Mask(net.CIDRMask(64, 128)).String() + "/64"
}
