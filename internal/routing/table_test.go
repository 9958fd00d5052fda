package routing

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/krishnaIndia/routing/internal/name"
	"github.com/krishnaIndia/routing/internal/relocation"
)

func testAddr(i int) string {
	return fmt.Sprintf("10.%d.%d.1:5483", i/250, i%250)
}

func TestTable_ClosestSortedByDistance(t *testing.T) {
	rt := New(name.Random(), 8)
	target := name.Random()

	for i := 0; i < 50; i++ {
		rt.Upsert(name.Random(), testAddr(i))
	}

	got := rt.ClosestNodes(target, 10)
	if len(got) == 0 {
		t.Fatalf("expected some closest nodes")
	}
	if len(got) > 10 {
		t.Fatalf("expected <=10, got %d", len(got))
	}

	for i := 1; i < len(got); i++ {
		prev := name.Xor(got[i-1].Name, target)
		cur := name.Xor(got[i].Name, target)
		if bytes.Compare(prev[:], cur[:]) > 0 {
			t.Fatalf("closest not sorted at i=%d", i)
		}
	}
}

func TestTable_IgnoresSelf(t *testing.T) {
	self := name.Random()
	rt := New(self, 8)
	rt.Upsert(self, "10.0.0.1:1")
	if rt.Size() != 0 {
		t.Fatalf("self must never be stored")
	}
}

func TestTable_UpsertMovesToFront(t *testing.T) {
	var self name.NameType
	rt := New(self, 8, WithMaxPerSubnet(0))

	var a, b name.NameType
	a[0], b[0] = 0x80, 0x81 // same bucket 0
	rt.Upsert(a, "10.0.0.1:1")
	rt.Upsert(b, "10.0.0.2:1")
	rt.Upsert(a, "10.0.0.3:1")

	if rt.BucketSize(0) != 2 {
		t.Fatalf("expected 2 contacts in bucket 0, got %d", rt.BucketSize(0))
	}
	front := rt.buckets[0].nodes[0]
	if front.Name != a || front.Addr != "10.0.0.3:1" {
		t.Fatalf("re-seen contact must move to the front with its new addr")
	}
}

func TestTable_FullBucketEviction(t *testing.T) {
	var self name.NameType
	rt := New(self, 2, WithMaxPerSubnet(0))

	var a, b, c name.NameType
	a[0], b[0], c[0] = 0x80, 0x81, 0x82
	rt.Upsert(a, "10.0.0.1:1")
	rt.Upsert(b, "10.0.0.2:1")

	rt.Upsert(c, "10.0.0.3:1")
	if rt.Size() != 2 {
		t.Fatalf("full bucket without ping must drop the newcomer")
	}

	rt.UpsertWithEviction(c, "10.0.0.3:1", func(NodeInfo) bool { return true })
	if rt.Size() != 2 || len(rt.buckets[0].repl) != 1 {
		t.Fatalf("live tail keeps its place, newcomer goes to replacements")
	}

	rt.UpsertWithEviction(c, "10.0.0.3:1", func(ni NodeInfo) bool { return ni.Name != a })
	if indexOf(rt.buckets[0].nodes, a) >= 0 {
		t.Fatalf("dead tail must be evicted")
	}
	if indexOf(rt.buckets[0].nodes, c) != 0 {
		t.Fatalf("newcomer must take the front")
	}
}

func TestTable_RemovePromotesReplacement(t *testing.T) {
	var self name.NameType
	rt := New(self, 1, WithMaxPerSubnet(0))

	var a, b name.NameType
	a[0], b[0] = 0x80, 0x81
	rt.Upsert(a, "10.0.0.1:1")
	rt.UpsertWithEviction(b, "10.0.0.2:1", func(NodeInfo) bool { return true })

	if !rt.Remove(a) {
		t.Fatalf("Remove returned false for a known contact")
	}
	got := rt.Closest(b, 1)
	if len(got) != 1 || got[0] != b {
		t.Fatalf("replacement must be promoted after removal")
	}
	if rt.Remove(a) {
		t.Fatalf("second Remove must report false")
	}
}

func TestTable_SubnetCap(t *testing.T) {
	var self name.NameType
	rt := New(self, 8, WithMaxPerSubnet(2))

	for i := 0; i < 5; i++ {
		var n name.NameType
		n[0] = 0x80 | byte(i)
		rt.Upsert(n, fmt.Sprintf("192.168.1.%d:1", i+1))
	}
	if got := rt.BucketSize(0); got != 2 {
		t.Fatalf("expected subnet cap of 2, got %d", got)
	}
}

func TestTable_IsCloseGroup(t *testing.T) {
	rt := New(name.Random(), 8)
	for i := 0; i < 30; i++ {
		rt.Upsert(name.Random(), testAddr(i))
	}

	var group relocation.CloseGroup = rt
	proposed := name.Random()

	got, err := relocation.RelocateWith(group, proposed, 23)
	if err != nil {
		t.Fatalf("RelocateWith: %v", err)
	}
	closest := rt.Closest(proposed, 2)
	want, _ := relocation.Relocate(proposed, closest)
	if got != want {
		t.Fatalf("relocation through the table must use its two closest contacts")
	}
}

func TestSubnetKey(t *testing.T) {
	cases := map[string]string{
		"10.1.2.3:80":     "v4:10.1.2.0/24",
		"127.0.0.1:9000":  "loopback:127.0.0.1:9000",
		"example.org:1":   "dns:example.org",
		"[2001:db8::1]:1": "v6:2001:db8::/64",
	}
	for in, want := range cases {
		if got := subnetKey(in); got != want {
			t.Fatalf("subnetKey(%q) = %q, want %q", in, got, want)
		}
	}
}
