// Package bcs implements the writer side of the Binary Canonical
// Serialization format used by the ledger for transaction data and
// signatures. Only the subset needed by the gateway is implemented:
// fixed-width little-endian integers, ULEB128 lengths, byte vectors,
// strings and enum variant tags.
package bcs

import (
	"bytes"
	"encoding/binary"
)

// Writer accumulates BCS-encoded data.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the serialized output.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// WriteULEB128 writes an unsigned integer in ULEB128 form. It is used for
// vector lengths and enum variant tags.
func (w *Writer) WriteULEB128(v uint64) {
	for v >= 0x80 {
		w.buf.WriteByte(byte(v&0x7f) | 0x80)
		v >>= 7
	}
	w.buf.WriteByte(byte(v))
}

// WriteU8 writes a single byte.
func (w *Writer) WriteU8(v uint8) {
	w.buf.WriteByte(v)
}

// WriteU16 writes a little-endian u16.
func (w *Writer) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

// WriteU64 writes a little-endian u64.
func (w *Writer) WriteU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

// WriteBool writes a bool as a single 0 or 1 byte.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

// WriteFixedBytes writes raw bytes without a length prefix. Used for
// fixed-size fields such as addresses.
func (w *Writer) WriteFixedBytes(b []byte) {
	w.buf.Write(b)
}

// WriteBytes writes a vector<u8>: ULEB128 length followed by the bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteULEB128(uint64(len(b)))
	w.buf.Write(b)
}

// WriteString writes a string as a ULEB128-prefixed UTF-8 byte vector.
func (w *Writer) WriteString(s string) {
	w.WriteBytes([]byte(s))
}

// WriteStringSlice writes a vector<string>.
func (w *Writer) WriteStringSlice(ss []string) {
	w.WriteULEB128(uint64(len(ss)))
	for _, s := range ss {
		w.WriteString(s)
	}
}

// WriteVariant writes an enum variant tag.
func (w *Writer) WriteVariant(idx uint64) {
	w.WriteULEB128(idx)
}
