// Package relocation derives the network name a joining node ends up with.
//
// A node may not pick its own address. Its proposed name is hashed together
// with the names of the nodes currently closest to that proposal, which the
// proposer does not control. Every node that sees the same proposal and the
// same close nodes computes the same result.
package relocation

import (
	"crypto/sha512"
	"errors"

	"github.com/krishnaIndia/routing/internal/name"
)

// Anchors is how many of the closest reference names feed the hash.
const Anchors = 2

var ErrEmptyReferenceSet = errors.New("relocation: empty reference set")

// Relocate returns SHA-512(proposed || closest [|| second closest]), where
// the reference names are ordered by XOR distance to proposed.
// refs is not modified.
func Relocate(proposed name.NameType, refs []name.NameType) (name.NameType, error) {
	if len(refs) == 0 {
		return name.NameType{}, ErrEmptyReferenceSet
	}

	anchors := name.Closest(refs, proposed, Anchors)

	combined := make([]byte, 0, (1+len(anchors))*name.Bytes)
	combined = append(combined, proposed[:]...)
	for _, a := range anchors {
		combined = append(combined, a[:]...)
	}
	return name.NameType(sha512.Sum512(combined)), nil
}

// CloseGroup supplies the names a node currently believes are closest to target.
type CloseGroup interface {
	Closest(target name.NameType, n int) []name.NameType
}

// RelocateWith asks group for up to n names close to proposed and relocates against them.
func RelocateWith(group CloseGroup, proposed name.NameType, n int) (name.NameType, error) {
	if n < Anchors {
		n = Anchors
	}
	return Relocate(proposed, group.Closest(proposed, n))
}
