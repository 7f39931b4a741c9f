package qdrant

import (
	"context"
	"fmt"

	"github.com/lexhelp/precedent-search/internal/core/domain"
	"github.com/lexhelp/precedent-search/internal/core/ports"
)

// Retriever embeds the query text and runs the vector search, returning
// chunks in engine rank order.
type Retriever struct {
	embedder ports.QueryEmbedder
	client   *Client
}

func NewRetriever(embedder ports.QueryEmbedder, client *Client) *Retriever {
	return &Retriever{embedder: embedder, client: client}
}

func (r *Retriever) Search(ctx context.Context, query string, limit int) ([]domain.RetrievedChunk, error) {
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return r.client.Search(ctx, vector, limit)
}
