package codec

import (
	"bytes"
	"errors"
	"testing"
)

const testTag Tag = 5483001

func TestEncodeTagged_Header(t *testing.T) {
	b, err := EncodeTagged(testTag, "payload")
	if err != nil {
		t.Fatalf("EncodeTagged: %v", err)
	}
	want := []byte{0xda, 0x00, 0x53, 0xa9, 0xf9}
	if !bytes.HasPrefix(b, want) {
		t.Fatalf("expected header % x, got % x", want, b[:5])
	}
	if !bytes.Equal(b[5:], MustEncode("payload")) {
		t.Fatalf("payload must follow the header unchanged")
	}

	small, err := EncodeTagged(1, uint64(0))
	if err != nil {
		t.Fatalf("EncodeTagged: %v", err)
	}
	if !bytes.Equal(small, []byte{0xc1, 0x00}) {
		t.Fatalf("unexpected small tag encoding % x", small)
	}
}

func TestTaggedRoundTrip(t *testing.T) {
	b, err := EncodeTagged(testTag, []string{"a", "b"})
	if err != nil {
		t.Fatalf("EncodeTagged: %v", err)
	}
	tag, n, err := PeekTag(b)
	if err != nil {
		t.Fatalf("PeekTag: %v", err)
	}
	if tag != testTag || n != 5 {
		t.Fatalf("PeekTag = %d, %d", tag, n)
	}
	got, err := DecodeTagged[[]string](b, testTag)
	if err != nil {
		t.Fatalf("DecodeTagged: %v", err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected payload %v", got)
	}
}

func TestDecodeTagged_WrongTag(t *testing.T) {
	b, _ := EncodeTagged(testTag, "x")
	_, err := DecodeTagged[string](b, testTag+1)
	if !errors.Is(err, ErrUnexpectedTag) || !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("expected ErrUnexpectedTag, got %v", err)
	}
}

func TestDecodeTagged_CorruptHeader(t *testing.T) {
	orig, _ := EncodeTagged(testTag, "x")
	for i := 0; i < 5; i++ {
		b := append([]byte(nil), orig...)
		b[i] ^= 0xff
		if _, err := DecodeTagged[string](b, testTag); !errors.Is(err, ErrMalformedInput) {
			t.Fatalf("byte %d: expected ErrMalformedInput, got %v", i, err)
		}
	}
}

func TestDecodeTagged_Untagged(t *testing.T) {
	if _, err := DecodeTagged[string](MustEncode("x"), testTag); !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}
}

func TestDecodeTagged_Truncated(t *testing.T) {
	b, _ := EncodeTagged(testTag, "payload")
	for cut := 0; cut < len(b); cut++ {
		if _, err := DecodeTagged[string](b[:cut], testTag); !errors.Is(err, ErrTruncatedInput) {
			t.Fatalf("cut=%d: expected ErrTruncatedInput, got %v", cut, err)
		}
	}
}

func TestDecodeTagged_WidenedHeaderShortBody(t *testing.T) {
	orig, _ := EncodeTagged(testTag, "x")
	b := append([]byte(nil), orig...)
	b[0] = 0xdb // claims an 8-byte tag argument
	if _, err := DecodeTagged[string](b, testTag); !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}

	wide := append([]byte{0xdb, 0, 0, 0, 0, 0x00, 0x53, 0xa9, 0xf9}, MustEncode("x")...)
	if _, err := DecodeTagged[string](wide, testTag); !errors.Is(err, ErrUnexpectedTag) {
		t.Fatalf("non-canonical header must be rejected, got %v", err)
	}
}
