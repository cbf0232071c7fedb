package chain

import (
	"testing"

	"github.com/holaplex-labs/indexer-core/pkg/chainaddr"
)

func TestRegistryResolve(t *testing.T) {
	t.Parallel()
	metaAddr := testAddr(0x01)
	tokenAddr := testAddr(0x02)
	r := NewRegistry(map[ProgramKind]chainaddr.Address{
		ProgramTokenMetadata: metaAddr,
		ProgramToken:         tokenAddr,
	})

	if kind := r.Resolve(metaAddr); kind != ProgramTokenMetadata {
		t.Fatalf("resolve(metaAddr) = %v, want ProgramTokenMetadata", kind)
	}
	if kind := r.Resolve(tokenAddr); kind != ProgramToken {
		t.Fatalf("resolve(tokenAddr) = %v, want ProgramToken", kind)
	}
	if kind := r.Resolve(testAddr(0x03)); kind != ProgramUnknown {
		t.Fatalf("resolve(unregistered) = %v, want ProgramUnknown", kind)
	}
}
