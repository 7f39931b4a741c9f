package ports

import (
	"context"

	"github.com/lexhelp/precedent-search/internal/core/domain"
)

// FeedbackEventStore appends and sums raw feedback events. Events are the
// source of truth; aggregates can be rebuilt from them at any time.
type FeedbackEventStore interface {
	Append(ctx context.Context, event *domain.FeedbackEvent) error
	SumForDocument(ctx context.Context, documentID string) (likes, dislikes int, avgScore *float64, err error)
}

// AggregateStore persists derived feedback aggregates.
type AggregateStore interface {
	ExclusionLister
	Upsert(ctx context.Context, agg *domain.FeedbackAggregate) error
	GetByDocumentID(ctx context.Context, documentID string) (*domain.FeedbackAggregate, error)
}

// ExclusionLister is the narrow read the exclusion cache refresh needs.
type ExclusionLister interface {
	ListExcludedDocumentIDs(ctx context.Context) ([]string, error)
}

// ExclusionProvider serves the current excluded-document snapshot.
type ExclusionProvider interface {
	ExcludedIDs(ctx context.Context) (*domain.ExclusionSnapshot, error)
	Invalidate()
}

// ChunkRetriever is the opaque retrieval engine: ranked chunks for a query,
// each tagged with its source document id. Relevance is its business.
type ChunkRetriever interface {
	Search(ctx context.Context, query string, limit int) ([]domain.RetrievedChunk, error)
}

// QueryEmbedder builds the query vector the retrieval engine searches with.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// MessageQueue publishes/consumes feedback-recorded events.
type MessageQueue interface {
	PublishFeedbackRecorded(ctx context.Context, documentID string) error
	SubscribeFeedbackRecorded(ctx context.Context, handler func(context.Context, string) error) error
}
