// Package wire implements the self-describing binary encoding used on the
// message bus: tagged unions and structs in network byte order, fixed-width
// integers, length-prefixed byte strings, and map-of-field encoding for
// struct bodies (field values are keyed by their UTF-8 field name). This
// lets a consumer built against a newer or older schema skip fields it does
// not recognize instead of misreading the rest of the message.
//
// There is no third-party library for this exact self-describing shape (it
// mirrors the producer-side plugin's own ad hoc framing, not a standard
// wire format like protobuf or msgpack), so the codec is hand-rolled on top
// of encoding/binary and bytes, the same way the teacher builds small
// single-purpose primitives (TokenBucket, atomic file writes) directly on
// the standard library rather than reaching for a framework.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Encoder builds a self-describing binary message into an internal buffer.
type Encoder struct {
	buf bytes.Buffer
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Bytes returns the encoded message.
func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

// PutUint8 writes a single byte.
func (e *Encoder) PutUint8(v uint8) {
	e.buf.WriteByte(v)
}

// PutBool writes a boolean as a single byte.
func (e *Encoder) PutBool(v bool) {
	if v {
		e.buf.WriteByte(1)
	} else {
		e.buf.WriteByte(0)
	}
}

// PutUint32 writes a 32-bit unsigned integer in network byte order.
func (e *Encoder) PutUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

// PutUint64 writes a 64-bit unsigned integer in network byte order.
func (e *Encoder) PutUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

// PutInt64 writes a 64-bit signed integer in network byte order. Used for
// Unix timestamps, which are signed seconds since the epoch.
func (e *Encoder) PutInt64(v int64) {
	e.PutUint64(uint64(v))
}

// PutRaw writes a raw fixed-size field with no length prefix, for values
// whose size is already fixed by the schema (32-byte addresses).
func (e *Encoder) PutRaw(b []byte) {
	e.buf.Write(b)
}

// PutBytes writes a length-prefixed byte string.
func (e *Encoder) PutBytes(b []byte) {
	e.PutUint32(uint32(len(b)))
	e.buf.Write(b)
}

// PutString writes a length-prefixed UTF-8 string.
func (e *Encoder) PutString(s string) {
	e.PutBytes([]byte(s))
}

// StructField is one named field of a map-of-fields struct encoding.
type StructField struct {
	Name  string
	Value []byte
}

// Field builds one named struct field: encode is run against a fresh
// Encoder so its output can be length-prefixed and keyed by name.
func Field(name string, encode func(*Encoder)) StructField {
	fe := NewEncoder()
	encode(fe)
	return StructField{Name: name, Value: fe.Bytes()}
}

// PutStruct writes a map-of-fields struct body: a field count followed by
// (name, length-prefixed value) pairs in the given order.
func (e *Encoder) PutStruct(fields ...StructField) {
	e.PutUint32(uint32(len(fields)))
	for _, f := range fields {
		e.PutString(f.Name)
		e.PutBytes(f.Value)
	}
}

// PutVariant writes a tagged-union discriminant (a 1-byte tag) followed by
// the variant's own encoding.
func (e *Encoder) PutVariant(tag uint8, encode func(*Encoder)) {
	e.PutUint8(tag)
	encode(e)
}

// Decoder reads a self-describing binary message produced by Encoder.
type Decoder struct {
	r *bytes.Reader
}

// NewDecoder wraps raw message bytes for decoding.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{r: bytes.NewReader(data)}
}

func (d *Decoder) readN(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := readFull(d.r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func readFull(r *bytes.Reader, b []byte) (int, error) {
	n := 0
	for n < len(b) {
		m, err := r.Read(b[n:])
		n += m
		if err != nil {
			return n, fmt.Errorf("wire: short read: need %d more bytes: %w", len(b)-n, err)
		}
	}
	return n, nil
}

// Uint8 reads a single byte.
func (d *Decoder) Uint8() (uint8, error) {
	b, err := d.readN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Bool reads a single-byte boolean.
func (d *Decoder) Bool() (bool, error) {
	v, err := d.Uint8()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// Uint32 reads a 32-bit unsigned integer in network byte order.
func (d *Decoder) Uint32() (uint32, error) {
	b, err := d.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// Uint64 reads a 64-bit unsigned integer in network byte order.
func (d *Decoder) Uint64() (uint64, error) {
	b, err := d.readN(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// Int64 reads a 64-bit signed integer in network byte order.
func (d *Decoder) Int64() (int64, error) {
	v, err := d.Uint64()
	return int64(v), err
}

// Raw reads exactly n raw bytes with no length prefix.
func (d *Decoder) Raw(n int) ([]byte, error) {
	return d.readN(n)
}

// Bytes reads a length-prefixed byte string.
func (d *Decoder) Bytes() ([]byte, error) {
	n, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	const maxFieldBytes = 64 << 20 // 64 MiB — guards against a corrupt length prefix
	if n > maxFieldBytes {
		return nil, fmt.Errorf("wire: field length %d exceeds sanity limit", n)
	}
	return d.readN(int(n))
}

// String reads a length-prefixed UTF-8 string.
func (d *Decoder) String() (string, error) {
	b, err := d.Bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Fields reads a map-of-fields struct body into a name-keyed map of raw
// (still-encoded) values, so callers can decode only the fields they
// recognize and silently ignore the rest.
func (d *Decoder) Fields() (map[string][]byte, error) {
	count, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	const maxFields = 1 << 16
	if count > maxFields {
		return nil, fmt.Errorf("wire: field count %d exceeds sanity limit", count)
	}
	out := make(map[string][]byte, count)
	for i := uint32(0); i < count; i++ {
		name, err := d.String()
		if err != nil {
			return nil, fmt.Errorf("wire: field %d name: %w", i, err)
		}
		value, err := d.Bytes()
		if err != nil {
			return nil, fmt.Errorf("wire: field %q value: %w", name, err)
		}
		out[name] = value
	}
	return out, nil
}

// RequireField looks up a required field by name, returning a decode error
// that identifies the missing field rather than panicking downstream.
func RequireField(fields map[string][]byte, name string) ([]byte, error) {
	v, ok := fields[name]
	if !ok {
		return nil, fmt.Errorf("wire: missing required field %q", name)
	}
	return v, nil
}
