// Package messages holds the network message kinds. Each kind reserves a tag
// constant and wraps one payload; all of them share the tagged framing of
// package codec.
package messages

import (
	"fmt"

	"github.com/krishnaIndia/routing/internal/codec"
)

const (
	TagPutPublicPmid codec.Tag = 5483001
)

var ErrUnknownTag = fmt.Errorf("%w: unknown message tag", codec.ErrMalformedInput)

// Message is the closed set of kinds this node can put on the wire.
type Message interface {
	Tag() codec.Tag
	payload() any
}

// Encode frames m behind its tag.
func Encode(m Message) ([]byte, error) {
	return codec.EncodeTagged(m.Tag(), m.payload())
}

// Decode reads the tag first and hands the body to the decoder of that kind.
func Decode(b []byte) (Message, error) {
	tag, _, err := codec.PeekTag(b)
	if err != nil {
		return nil, err
	}
	switch tag {
	case TagPutPublicPmid:
		return DecodePutPublicPmid(b)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, tag)
	}
}
