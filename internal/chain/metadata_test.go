package chain

import "testing"

func buildMetadataV1(t *testing.T, name, symbol, uri string, creators []Creator) []byte {
	t.Helper()
	w := &borshWriter{}
	w.u8(uint8(MetadataKeyMetadataV1))
	w.pubkey(testAddr(0x01)) // update_authority
	w.pubkey(testAddr(0x02)) // mint
	w.str(name)
	w.str(symbol)
	w.str(uri)
	w.u16(500) // seller_fee_basis_points

	if creators == nil {
		w.boolean(false)
	} else {
		w.boolean(true)
		w.u32(uint32(len(creators)))
		for _, c := range creators {
			w.pubkey(c.Address)
			w.boolean(c.Verified)
			w.u8(c.Share)
		}
	}

	w.boolean(false) // primary_sale_happened
	w.boolean(true)  // is_mutable
	nonce := uint8(253)
	w.optU8(&nonce)
	return w.bytes()
}

func TestDecodeMetadataAccountS1(t *testing.T) {
	t.Parallel()
	creator := testAddr(0xC1)
	data := buildMetadataV1(t, "Alpha", "ALPHA", "https://x/1.json", []Creator{
		{Address: creator, Verified: true, Share: 100},
	})

	decoded, err := DecodeMetadataAccount(data, testAddr(0xAA))
	if err != nil {
		t.Fatalf("DecodeMetadataAccount() error = %v", err)
	}
	if decoded.Kind != AccountMetadataKind {
		t.Fatalf("Kind = %v, want AccountMetadataKind", decoded.Kind)
	}
	m := decoded.Metadata
	if m.Name != "Alpha" {
		t.Errorf("Name = %q, want %q", m.Name, "Alpha")
	}
	if m.URI != "https://x/1.json" {
		t.Errorf("URI = %q, want %q", m.URI, "https://x/1.json")
	}
	if len(m.Creators) != 1 || m.Creators[0].Address != creator || !m.Creators[0].Verified || m.Creators[0].Share != 100 {
		t.Errorf("Creators = %+v, want one verified 100%% creator %x", m.Creators, creator)
	}
	if m.SellerFeeBasisPoints != 500 {
		t.Errorf("SellerFeeBasisPoints = %d, want 500", m.SellerFeeBasisPoints)
	}
	if m.EditionNonce == nil || *m.EditionNonce != 253 {
		t.Errorf("EditionNonce = %v, want 253", m.EditionNonce)
	}
}

func TestDecodeMetadataAccountNoCreators(t *testing.T) {
	t.Parallel()
	data := buildMetadataV1(t, "NoCreators", "NC", "https://x/2.json", nil)
	decoded, err := DecodeMetadataAccount(data, testAddr(0xAA))
	if err != nil {
		t.Fatalf("DecodeMetadataAccount() error = %v", err)
	}
	if decoded.Metadata.Creators != nil {
		t.Errorf("Creators = %+v, want nil", decoded.Metadata.Creators)
	}
}

func TestDecodeMetadataAccountUnknownKeyIsDroppedNotError(t *testing.T) {
	t.Parallel()
	data := []byte{0x7F, 0x00, 0x00}
	decoded, err := DecodeMetadataAccount(data, testAddr(0xAA))
	if err != nil {
		t.Fatalf("DecodeMetadataAccount() error = %v, want nil (policy drop)", err)
	}
	if decoded.Kind != AccountUnknownKind {
		t.Errorf("Kind = %v, want AccountUnknownKind", decoded.Kind)
	}
}

func TestDecodeMetadataAccountShortReadIsHardDecodeError(t *testing.T) {
	t.Parallel()
	data := []byte{uint8(MetadataKeyMetadataV1), 0x01, 0x02}
	_, err := DecodeMetadataAccount(data, testAddr(0xAA))
	if err == nil {
		t.Fatal("DecodeMetadataAccount() error = nil, want a HardDecodeError for truncated data")
	}
	var decErr *DecodeError
	if !asDecodeError(err, &decErr) {
		t.Fatalf("error = %v, want *DecodeError", err)
	}
}

func TestDecodeMasterEditionV2(t *testing.T) {
	t.Parallel()
	w := &borshWriter{}
	w.u8(uint8(MetadataKeyMasterEditionV2))
	w.u64(42)
	max := uint64(1000)
	w.optU64(&max)

	decoded, err := DecodeMetadataAccount(w.bytes(), testAddr(0xAA))
	if err != nil {
		t.Fatalf("DecodeMetadataAccount() error = %v", err)
	}
	if decoded.Kind != AccountMasterEditionKind {
		t.Fatalf("Kind = %v, want AccountMasterEditionKind", decoded.Kind)
	}
	if decoded.MasterEdition.Supply != 42 {
		t.Errorf("Supply = %d, want 42", decoded.MasterEdition.Supply)
	}
	if decoded.MasterEdition.MaxSupply == nil || *decoded.MasterEdition.MaxSupply != 1000 {
		t.Errorf("MaxSupply = %v, want 1000", decoded.MasterEdition.MaxSupply)
	}
}

func asDecodeError(err error, target **DecodeError) bool {
	de, ok := err.(*DecodeError)
	if !ok {
		return false
	}
	*target = de
	return true
}
