// Package codec serializes values and tagged messages for the wire.
//
// Values are CBOR items written with a canonical handle, so the same value
// produces the same bytes on every node. A tagged message is a CBOR semantic
// tag header carrying the message kind, followed by the payload item.
package codec

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"

	"github.com/ugorji/go/codec"
)

var (
	ErrTruncatedInput   = errors.New("codec: truncated input")
	ErrMalformedInput   = errors.New("codec: malformed input")
	ErrUnsupportedValue = errors.New("codec: unsupported value")
)

var handle = newHandle()

func newHandle() *codec.CborHandle {
	h := new(codec.CborHandle)
	h.Canonical = true
	return h
}

// Encode serializes a single value. Values with no wire form (channels,
// functions, complex numbers, unsafe pointers, or a BinaryMarshaler that
// fails) are rejected with ErrUnsupportedValue, wherever they are nested.
// Fixed-size byte arrays such as name.NameType go out as byte strings.
func Encode(v any) ([]byte, error) {
	if err := checkEncodable(reflect.ValueOf(v), 0); err != nil {
		return nil, err
	}
	var out []byte
	if err := codec.NewEncoderBytes(&out, handle).Encode(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
	}
	return out, nil
}

// MustEncode is Encode for values whose shape is known to be supported.
func MustEncode(v any) []byte {
	b, err := Encode(v)
	if err != nil {
		panic(err)
	}
	return b
}

// Decode deserializes exactly one value produced by Encode.
func Decode[T any](b []byte) (T, error) {
	var v T
	if err := decodeItem(b, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// decodeItem checks b holds exactly one well-formed item before decoding it into ptr.
func decodeItem(b []byte, ptr any) error {
	end, err := skipItem(b, 0, 0)
	if err != nil {
		return err
	}
	if end != len(b) {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformedInput, len(b)-end)
	}
	if err := codec.NewDecoderBytes(b, handle).Decode(ptr); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return nil
}

var binaryMarshalerType = reflect.TypeOf((*encoding.BinaryMarshaler)(nil)).Elem()

// checkEncodable walks v the way the encoder would and reports the first
// part that has no wire form.
func checkEncodable(v reflect.Value, depth int) error {
	if !v.IsValid() {
		return nil
	}
	if depth > maxDepth {
		return fmt.Errorf("%w: nested deeper than %d", ErrUnsupportedValue, maxDepth)
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
	}
	if v.Type().Implements(binaryMarshalerType) && v.CanInterface() {
		if _, err := v.Interface().(encoding.BinaryMarshaler).MarshalBinary(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUnsupportedValue, v.Type(), err)
		}
	}

	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return fmt.Errorf("%w: %s", ErrUnsupportedValue, v.Type())
	case reflect.Pointer, reflect.Interface:
		return checkEncodable(v.Elem(), depth+1)
	case reflect.Array, reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return nil
		}
		for i := 0; i < v.Len(); i++ {
			if err := checkEncodable(v.Index(i), depth+1); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := checkEncodable(iter.Key(), depth+1); err != nil {
				return err
			}
			if err := checkEncodable(iter.Value(), depth+1); err != nil {
				return err
			}
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() || f.Tag.Get("codec") == "-" {
				continue
			}
			if err := checkEncodable(v.Field(i), depth+1); err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
		}
	}
	return nil
}
