package chain

import (
	"bytes"
	"encoding/binary"

	"github.com/holaplex-labs/indexer-core/pkg/chainaddr"
)

// borshWriter is a minimal test-only encoder mirroring borshReader's
// decisions, used to build synthetic account/instruction payloads without
// depending on a real Solana program's binary or this package's own
// decoder (which would make the tests tautological).
type borshWriter struct {
	buf bytes.Buffer
}

func (w *borshWriter) u8(v uint8)  { w.buf.WriteByte(v) }
func (w *borshWriter) boolean(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}
func (w *borshWriter) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}
func (w *borshWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}
func (w *borshWriter) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}
func (w *borshWriter) pubkey(a chainaddr.Address) { w.buf.Write(a[:]) }
func (w *borshWriter) str(s string) {
	w.u32(uint32(len(s)))
	w.buf.WriteString(s)
}
func (w *borshWriter) optU8(v *uint8) {
	if v == nil {
		w.boolean(false)
		return
	}
	w.boolean(true)
	w.u8(*v)
}
func (w *borshWriter) optU64(v *uint64) {
	if v == nil {
		w.boolean(false)
		return
	}
	w.boolean(true)
	w.u64(*v)
}
func (w *borshWriter) coption32(present bool, a chainaddr.Address) {
	if present {
		w.u32(1)
	} else {
		w.u32(0)
	}
	w.buf.Write(a[:])
}
func (w *borshWriter) coptionU64(present bool, v uint64) {
	if present {
		w.u32(1)
	} else {
		w.u32(0)
	}
	w.u64(v)
}
func (w *borshWriter) bytes() []byte { return w.buf.Bytes() }

func testAddr(b byte) chainaddr.Address {
	var a chainaddr.Address
	for i := range a {
		a[i] = b
	}
	return a
}
