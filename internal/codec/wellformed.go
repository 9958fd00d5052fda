package codec

import (
	"encoding/binary"
	"fmt"
)

// CBOR major types.
const (
	majorUint   = 0
	majorNegInt = 1
	majorBytes  = 2
	majorText   = 3
	majorArray  = 4
	majorMap    = 5
	majorTag    = 6
	majorSimple = 7
)

const (
	infoIndefinite = 31
	breakCode      = 0xff

	maxDepth = 64
)

// readHead parses the initial byte and argument of the item at off.
// It returns the major type, the additional info, the argument and the
// offset just past the head.
func readHead(b []byte, off int) (major, info byte, arg uint64, next int, err error) {
	if off >= len(b) {
		return 0, 0, 0, off, ErrTruncatedInput
	}
	major = b[off] >> 5
	info = b[off] & 0x1f
	off++

	var width int
	switch {
	case info < 24:
		return major, info, uint64(info), off, nil
	case info == 24:
		width = 1
	case info == 25:
		width = 2
	case info == 26:
		width = 4
	case info == 27:
		width = 8
	case info == infoIndefinite:
		return major, info, 0, off, nil
	default:
		return 0, 0, 0, off, fmt.Errorf("%w: reserved additional info %d", ErrMalformedInput, info)
	}

	if len(b)-off < width {
		return 0, 0, 0, off, ErrTruncatedInput
	}
	switch width {
	case 1:
		arg = uint64(b[off])
	case 2:
		arg = uint64(binary.BigEndian.Uint16(b[off:]))
	case 4:
		arg = uint64(binary.BigEndian.Uint32(b[off:]))
	case 8:
		arg = binary.BigEndian.Uint64(b[off:])
	}
	return major, info, arg, off + width, nil
}

// appendHead writes the shortest head for major type and argument.
func appendHead(dst []byte, major byte, arg uint64) []byte {
	m := major << 5
	switch {
	case arg < 24:
		return append(dst, m|byte(arg))
	case arg <= 0xff:
		return append(dst, m|24, byte(arg))
	case arg <= 0xffff:
		return binary.BigEndian.AppendUint16(append(dst, m|25), uint16(arg))
	case arg <= 0xffffffff:
		return binary.BigEndian.AppendUint32(append(dst, m|26), uint32(arg))
	default:
		return binary.BigEndian.AppendUint64(append(dst, m|27), arg)
	}
}

// skipItem walks the item starting at off and returns the offset just past it.
// A buffer that ends early yields ErrTruncatedInput; anything that cannot be
// CBOR yields ErrMalformedInput.
func skipItem(b []byte, off, depth int) (int, error) {
	if depth > maxDepth {
		return off, fmt.Errorf("%w: nesting deeper than %d", ErrMalformedInput, maxDepth)
	}
	major, info, arg, off, err := readHead(b, off)
	if err != nil {
		return off, err
	}

	if info == infoIndefinite {
		return skipIndefinite(b, off, major, depth)
	}

	remaining := uint64(len(b) - off)
	switch major {
	case majorUint, majorNegInt, majorSimple:
		return off, nil
	case majorBytes, majorText:
		if arg > remaining {
			return off, ErrTruncatedInput
		}
		return off + int(arg), nil
	case majorArray, majorMap:
		n := arg
		if major == majorMap {
			if n > remaining {
				return off, ErrTruncatedInput
			}
			n *= 2
		}
		// every item takes at least one byte
		if n > remaining {
			return off, ErrTruncatedInput
		}
		for i := uint64(0); i < n; i++ {
			if off, err = skipItem(b, off, depth+1); err != nil {
				return off, err
			}
		}
		return off, nil
	case majorTag:
		return skipItem(b, off, depth+1)
	}
	return off, fmt.Errorf("%w: unknown major type %d", ErrMalformedInput, major)
}

func skipIndefinite(b []byte, off int, major byte, depth int) (int, error) {
	var err error
	switch major {
	case majorBytes, majorText:
		for {
			if off >= len(b) {
				return off, ErrTruncatedInput
			}
			if b[off] == breakCode {
				return off + 1, nil
			}
			if b[off]>>5 != major || b[off]&0x1f == infoIndefinite {
				return off, fmt.Errorf("%w: bad chunk in indefinite string", ErrMalformedInput)
			}
			if off, err = skipItem(b, off, depth+1); err != nil {
				return off, err
			}
		}
	case majorArray, majorMap:
		perEntry := 1
		if major == majorMap {
			perEntry = 2
		}
		for {
			if off >= len(b) {
				return off, ErrTruncatedInput
			}
			if b[off] == breakCode {
				return off + 1, nil
			}
			for i := 0; i < perEntry; i++ {
				if i > 0 && off < len(b) && b[off] == breakCode {
					return off, fmt.Errorf("%w: map key without value", ErrMalformedInput)
				}
				if off, err = skipItem(b, off, depth+1); err != nil {
					return off, err
				}
			}
		}
	}
	return off, fmt.Errorf("%w: indefinite length on major type %d", ErrMalformedInput, major)
}
