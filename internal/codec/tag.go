package codec

import (
	"bytes"
	"errors"
	"fmt"
)

// Tag identifies a message kind. Each kind reserves its own constant;
// a payload shape never changes under an existing tag.
type Tag uint64

var ErrUnexpectedTag = fmt.Errorf("%w: unexpected tag", ErrMalformedInput)

// EncodeTagged frames v behind the tag header of its message kind.
func EncodeTagged(tag Tag, v any) ([]byte, error) {
	body, err := Encode(v)
	if err != nil {
		return nil, err
	}
	out := appendHead(make([]byte, 0, 9+len(body)), majorTag, uint64(tag))
	return append(out, body...), nil
}

// PeekTag reads the tag header without touching the payload. It returns the
// tag and the number of header bytes.
func PeekTag(b []byte) (Tag, int, error) {
	if len(b) == 0 {
		return 0, 0, ErrTruncatedInput
	}
	if b[0]>>5 != majorTag {
		return 0, 0, fmt.Errorf("%w: missing tag header", ErrMalformedInput)
	}
	_, info, arg, next, err := readHead(b, 0)
	if err != nil {
		return 0, 0, err
	}
	if info == infoIndefinite {
		return 0, 0, fmt.Errorf("%w: indefinite tag header", ErrMalformedInput)
	}
	return Tag(arg), next, nil
}

// DecodeTagged checks b opens with the canonical header of want and decodes
// the payload behind it. Input that stops inside that header is truncated;
// any other header is ErrUnexpectedTag.
func DecodeTagged[T any](b []byte, want Tag) (T, error) {
	var zero T
	head := appendHead(nil, majorTag, uint64(want))
	if len(b) < len(head) && bytes.Equal(b, head[:len(b)]) {
		return zero, ErrTruncatedInput
	}
	if !bytes.HasPrefix(b, head) {
		tag, _, err := PeekTag(b)
		switch {
		case err == nil:
			return zero, fmt.Errorf("%w: got %d, want %d", ErrUnexpectedTag, tag, want)
		case errors.Is(err, ErrMalformedInput):
			return zero, err
		default:
			return zero, fmt.Errorf("%w: header % x does not match %d", ErrUnexpectedTag, b, want)
		}
	}
	return Decode[T](b[len(head):])
}
