package name

import (
	"bytes"
	"crypto/sha512"
	"errors"
	"strings"
	"testing"
)

func TestXorSymmetry(t *testing.T) {
	a := Random()
	b := Random()
	if Xor(a, b) != Xor(b, a) {
		t.Fatalf("xor not symmetric")
	}
	if !Xor(a, a).IsZero() {
		t.Fatalf("xor with self must be zero")
	}
}

func TestBucketIndex_MSB(t *testing.T) {
	var self NameType
	var peer NameType
	peer[0] = 0x80
	if got := BucketIndex(self, peer); got != 0 {
		t.Fatalf("expected bucket index 0, got %d", got)
	}
	var last NameType
	last[Bytes-1] = 0x01
	if got := BucketIndex(self, last); got != Bits-1 {
		t.Fatalf("expected bucket index %d, got %d", Bits-1, got)
	}
}

func TestBucketIndex_Identical(t *testing.T) {
	id := Random()
	if got := BucketIndex(id, id); got != -1 {
		t.Fatalf("expected -1 for identical names, got %d", got)
	}
}

func TestParseHex(t *testing.T) {
	n := Random()
	got, err := ParseHex(n.Hex())
	if err != nil {
		t.Fatalf("ParseHex: %v", err)
	}
	if got != n {
		t.Fatalf("hex round trip mismatch")
	}

	if _, err := ParseHex(strings.Repeat("ab", 32)); !errors.Is(err, ErrBadLength) {
		t.Fatalf("expected ErrBadLength for 32-byte input, got %v", err)
	}
	if _, err := ParseHex("zz"); err == nil {
		t.Fatalf("expected error for non-hex input")
	}
}

func TestFromPublicSignKey(t *testing.T) {
	pub := bytes.Repeat([]byte{7}, 32)
	want := sha512.Sum512(pub)
	if got := FromPublicSignKey(pub); !bytes.Equal(got[:], want[:]) {
		t.Fatalf("client name must be sha512 of the public sign key")
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	n := Random()
	b, err := n.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if len(b) != Bytes {
		t.Fatalf("expected %d raw bytes, got %d", Bytes, len(b))
	}
	var got NameType
	if err := got.UnmarshalBinary(b); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if got != n {
		t.Fatalf("binary round trip mismatch")
	}
	if err := got.UnmarshalBinary(b[:10]); !errors.Is(err, ErrBadLength) {
		t.Fatalf("expected ErrBadLength, got %v", err)
	}
}
