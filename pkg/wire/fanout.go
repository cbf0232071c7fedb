package wire

import (
	"encoding/json"
	"fmt"

	"github.com/holaplex-labs/indexer-core/pkg/chainaddr"
)

// Marshal encodes a top-level message whose Encode writes a single
// map-of-fields struct body (no tagged-union wrapper needed, since each of
// these lives on its own dedicated queue).
func Marshal(body func(*Encoder)) []byte {
	e := NewEncoder()
	body(e)
	return e.Bytes()
}

func unmarshalFields(data []byte) (map[string][]byte, error) {
	return NewDecoder(data).Fields()
}

// Marshal encodes the message for publishing onto the HTTP metadata-json
// fetch queue.
func (m MetadataJsonFetch) Marshal() []byte {
	return Marshal(m.Encode)
}

// UnmarshalMetadataJsonFetch decodes a message off the HTTP metadata-json
// fetch queue.
func UnmarshalMetadataJsonFetch(data []byte) (MetadataJsonFetch, error) {
	fields, err := unmarshalFields(data)
	if err != nil {
		return MetadataJsonFetch{}, err
	}
	return DecodeMetadataJsonFetch(fields)
}

// Marshal encodes the message for publishing onto the HTTP store-config
// fetch queue.
func (s StoreConfigFetch) Marshal() []byte {
	return Marshal(s.Encode)
}

// UnmarshalStoreConfigFetch decodes a message off the HTTP store-config
// fetch queue.
func UnmarshalStoreConfigFetch(data []byte) (StoreConfigFetch, error) {
	fields, err := unmarshalFields(data)
	if err != nil {
		return StoreConfigFetch{}, err
	}
	return DecodeStoreConfigFetch(fields)
}

// Marshal encodes the message for publishing onto the search queue.
func (s SearchUpsert) Marshal() []byte {
	return Marshal(s.Encode)
}

// UnmarshalSearchUpsert decodes a message off the search queue.
func UnmarshalSearchUpsert(data []byte) (SearchUpsert, error) {
	fields, err := unmarshalFields(data)
	if err != nil {
		return SearchUpsert{}, err
	}
	return DecodeSearchUpsert(fields)
}

// Marshal encodes the tagged-union JobMessage for publishing onto the job
// queue.
func (j JobMessage) Marshal() []byte {
	e := NewEncoder()
	j.Encode(e)
	return e.Bytes()
}

// MetadataJsonFetch asks the (external) off-chain JSON fetcher to resolve a
// Metadata account's `uri` and cache the result. See spec §4.4.6 and §4.5.
type MetadataJsonFetch struct {
	MetadataAddress      chainaddr.Address
	URI                  string
	FirstVerifiedCreator *chainaddr.Address // nil if no creator is verified
}

// Encode writes the map-of-fields body for a MetadataJsonFetch message.
func (m MetadataJsonFetch) Encode(e *Encoder) {
	e.PutStruct(
		Field("meta_address", func(e *Encoder) { e.PutRaw(m.MetadataAddress[:]) }),
		Field("uri", func(e *Encoder) { e.PutString(m.URI) }),
		Field("first_verified_creator", func(e *Encoder) {
			if m.FirstVerifiedCreator == nil {
				e.PutBool(false)
				return
			}
			e.PutBool(true)
			e.PutRaw(m.FirstVerifiedCreator[:])
		}),
	)
}

// DecodeMetadataJsonFetch reads a MetadataJsonFetch body from a field map.
func DecodeMetadataJsonFetch(fields map[string][]byte) (MetadataJsonFetch, error) {
	var m MetadataJsonFetch
	addr, err := RequireField(fields, "meta_address")
	if err != nil {
		return m, err
	}
	if m.MetadataAddress, err = chainaddr.FromBytes(addr); err != nil {
		return m, err
	}
	if m.URI, err = decodeStringField(fields, "uri"); err != nil {
		return m, err
	}
	creatorRaw, err := RequireField(fields, "first_verified_creator")
	if err != nil {
		return m, err
	}
	cd := NewDecoder(creatorRaw)
	present, err := cd.Bool()
	if err != nil {
		return m, fmt.Errorf("wire: first_verified_creator presence: %w", err)
	}
	if present {
		b, err := cd.Raw(chainaddr.Len)
		if err != nil {
			return m, fmt.Errorf("wire: first_verified_creator address: %w", err)
		}
		addr, err := chainaddr.FromBytes(b)
		if err != nil {
			return m, err
		}
		m.FirstVerifiedCreator = &addr
	}
	return m, nil
}

// StoreConfigFetch asks the off-chain fetcher to resolve a storefront
// config account's `uri`.
type StoreConfigFetch struct {
	ConfigAddress chainaddr.Address
	URI           string
}

// Encode writes the map-of-fields body for a StoreConfigFetch message.
func (s StoreConfigFetch) Encode(e *Encoder) {
	e.PutStruct(
		Field("config_address", func(e *Encoder) { e.PutRaw(s.ConfigAddress[:]) }),
		Field("uri", func(e *Encoder) { e.PutString(s.URI) }),
	)
}

// DecodeStoreConfigFetch reads a StoreConfigFetch body from a field map.
func DecodeStoreConfigFetch(fields map[string][]byte) (StoreConfigFetch, error) {
	var s StoreConfigFetch
	addr, err := RequireField(fields, "config_address")
	if err != nil {
		return s, err
	}
	if s.ConfigAddress, err = chainaddr.FromBytes(addr); err != nil {
		return s, err
	}
	if s.URI, err = decodeStringField(fields, "uri"); err != nil {
		return s, err
	}
	return s, nil
}

// SearchDocument is the body handed to the search index. Body is kept as
// raw JSON so callers (listing/offer/purchase handlers) can build whatever
// shape the search schema expects without this package knowing it.
type SearchDocument struct {
	ID   string          `json:"id"`
	Body json.RawMessage `json:"body"`
}

// SearchUpsert carries one document to be upserted into a named search
// index. See spec §4.5 and original_source/crates/core/src/meilisearch.rs.
type SearchUpsert struct {
	Index    string
	Document SearchDocument
}

// Encode writes the map-of-fields body for a SearchUpsert message.
func (s SearchUpsert) Encode(e *Encoder) {
	e.PutStruct(
		Field("index", func(e *Encoder) { e.PutString(s.Index) }),
		Field("document_id", func(e *Encoder) { e.PutString(s.Document.ID) }),
		Field("document_body", func(e *Encoder) { e.PutBytes(s.Document.Body) }),
	)
}

// DecodeSearchUpsert reads a SearchUpsert body from a field map.
func DecodeSearchUpsert(fields map[string][]byte) (SearchUpsert, error) {
	var s SearchUpsert
	var err error
	if s.Index, err = decodeStringField(fields, "index"); err != nil {
		return s, err
	}
	if s.Document.ID, err = decodeStringField(fields, "document_id"); err != nil {
		return s, err
	}
	bodyRaw, err := RequireField(fields, "document_body")
	if err != nil {
		return s, err
	}
	body, err := NewDecoder(bodyRaw).Bytes()
	if err != nil {
		return s, fmt.Errorf("wire: document_body: %w", err)
	}
	s.Document.Body = body
	return s, nil
}

// JobKind discriminates the JobMessage tagged union.
type JobKind uint8

const (
	JobRefreshTable JobKind = iota + 1
	JobReindexSlot
)

// JobMessage is one entry on the job queue: either a named materialized-view
// refresh or a specific slot to reindex. See spec §4.4.7 and §4.5.
type JobMessage struct {
	Kind         JobKind
	RefreshTable string
	ReindexSlot  uint64
}

// Encode writes the tagged-union encoding for a JobMessage.
func (j JobMessage) Encode(e *Encoder) {
	switch j.Kind {
	case JobRefreshTable:
		e.PutVariant(uint8(JobRefreshTable), func(e *Encoder) {
			e.PutStruct(Field("name", func(e *Encoder) { e.PutString(j.RefreshTable) }))
		})
	case JobReindexSlot:
		e.PutVariant(uint8(JobReindexSlot), func(e *Encoder) {
			e.PutStruct(Field("slot", func(e *Encoder) { e.PutUint64(j.ReindexSlot) }))
		})
	}
}

// DecodeJobMessage reads a tagged-union JobMessage off the wire.
func DecodeJobMessage(data []byte) (JobMessage, error) {
	d := NewDecoder(data)
	tag, err := d.Uint8()
	if err != nil {
		return JobMessage{}, fmt.Errorf("wire: job tag: %w", err)
	}
	fields, err := d.Fields()
	if err != nil {
		return JobMessage{}, fmt.Errorf("wire: job body: %w", err)
	}
	j := JobMessage{Kind: JobKind(tag)}
	switch j.Kind {
	case JobRefreshTable:
		j.RefreshTable, err = decodeStringField(fields, "name")
	case JobReindexSlot:
		j.ReindexSlot, err = decodeU64Field(fields, "slot")
	default:
		return JobMessage{}, fmt.Errorf("wire: unknown job tag %d", tag)
	}
	return j, err
}
