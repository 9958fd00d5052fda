package name

import (
	"bytes"
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
)

// Bytes is the width of a name: the output size of SHA-512.
const Bytes = sha512.Size

// Bits is the number of buckets a routing table keeps for one name.
const Bits = Bytes * 8

var ErrBadLength = errors.New("name: bad length")

// NameType addresses a node or a piece of content on the network.
type NameType [Bytes]byte

func ParseHex(s string) (NameType, error) {
	var n NameType
	b, err := hex.DecodeString(s)
	if err != nil {
		return n, err
	}
	if len(b) != Bytes {
		return n, fmt.Errorf("%w: name must be %d bytes, got %d", ErrBadLength, Bytes, len(b))
	}
	copy(n[:], b)
	return n, nil
}

func MustParseHex(s string) NameType {
	n, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return n
}

// FromBytes copies b into a name. b must be exactly Bytes long.
func FromBytes(b []byte) (NameType, error) {
	var n NameType
	if len(b) != Bytes {
		return n, fmt.Errorf("%w: got %d bytes", ErrBadLength, len(b))
	}
	copy(n[:], b)
	return n, nil
}

// FromPublicSignKey derives a client name: the SHA-512 of the public signing key.
func FromPublicSignKey(pub []byte) NameType {
	return NameType(sha512.Sum512(pub))
}

// Random returns a uniformly random name.
func Random() NameType {
	var n NameType
	if _, err := rand.Read(n[:]); err != nil {
		panic(err)
	}
	return n
}

func (n NameType) Hex() string { return hex.EncodeToString(n[:]) }

// String prints the first few bytes only, enough to tell names apart in logs.
func (n NameType) String() string {
	return fmt.Sprintf("%x..", n[:4])
}

func (n NameType) IsZero() bool { return n == NameType{} }

// MarshalBinary emits the raw fixed-width bytes, with no length prefix.
func (n NameType) MarshalBinary() ([]byte, error) {
	out := make([]byte, Bytes)
	copy(out, n[:])
	return out, nil
}

func (n *NameType) UnmarshalBinary(b []byte) error {
	v, err := FromBytes(b)
	if err != nil {
		return err
	}
	*n = v
	return nil
}

// XOR distance: d = a ^ b
func Xor(a, b NameType) (out NameType) {
	for i := 0; i < Bytes; i++ {
		out[i] = a[i] ^ b[i]
	}
	return
}

// BucketIndex returns [0..511]: the index of the first differing bit (MSB-first).
// If identical, returns -1.
func BucketIndex(self, other NameType) int {
	d := Xor(self, other)
	for byteIdx := 0; byteIdx < Bytes; byteIdx++ {
		x := d[byteIdx]
		if x == 0 {
			continue
		}
		for bit := 0; bit < 8; bit++ {
			if x&(1<<(7-bit)) != 0 {
				return byteIdx*8 + bit
			}
		}
	}
	return -1
}

// Equal is structural; it is not a distance comparison.
func Equal(a, b NameType) bool { return bytes.Equal(a[:], b[:]) }
