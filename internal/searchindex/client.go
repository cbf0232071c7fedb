// Package searchindex wraps github.com/meilisearch/meilisearch-go for the
// one place this indexer talks to the search service directly: the
// search-index worker in cmd/indexer (spec §1: "auxiliary workers ...
// populate a full-text search service") drains the search queue and
// upserts each SearchUpsert through this package. A SearchUpsert lost to a
// DispatchError never reaches the queue, so it is not replayed from here.
// The search engine's schema and query surface are otherwise
// out of scope (spec §1 Non-goals) — this package only upserts documents,
// it never queries them.
package searchindex

import (
	"context"
	"fmt"

	"github.com/meilisearch/meilisearch-go"

	"github.com/holaplex-labs/indexer-core/pkg/wire"
)

// Client upserts SearchUpsert documents into a Meilisearch index.
type Client struct {
	sm meilisearch.ServiceManager
}

// New connects to a Meilisearch instance at host with apiKey.
func New(host, apiKey string) *Client {
	sm := meilisearch.New(host, meilisearch.WithAPIKey(apiKey))
	return &Client{sm: sm}
}

// Upsert pushes one document into msg.Index, keyed by the document's "id"
// field; cmd/indexer's search-index worker calls it for each message it
// drains from the search queue.
func (c *Client) Upsert(ctx context.Context, msg wire.SearchUpsert) error {
	doc := map[string]any{"id": msg.Document.ID}
	if len(msg.Document.Body) > 0 {
		doc["body"] = string(msg.Document.Body)
	}
	_, err := c.sm.Index(msg.Index).AddDocuments([]map[string]any{doc}, "id")
	if err != nil {
		return fmt.Errorf("searchindex: upsert into %s: %w", msg.Index, err)
	}
	return nil
}
