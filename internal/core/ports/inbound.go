package ports

import (
	"context"

	"github.com/lexhelp/precedent-search/internal/core/domain"
)

// PrecedentSearcher is the inbound contract for filtered precedent retrieval.
type PrecedentSearcher interface {
	Search(ctx context.Context, query string, topK int, excludeIDs []string) (*domain.SearchResultSet, error)
}

// FeedbackRecorder is the inbound contract for recording user feedback.
type FeedbackRecorder interface {
	Record(ctx context.Context, event *domain.FeedbackEvent) (*domain.FeedbackEvent, error)
}

// AggregateReader is the inbound read model for per-document feedback state.
type AggregateReader interface {
	GetByDocumentID(ctx context.Context, documentID string) (*domain.FeedbackAggregate, error)
}

// AggregateRecomputer is the inbound contract for asynchronous aggregate
// recomputation, driven by the feedback worker.
type AggregateRecomputer interface {
	RecomputeByDocumentID(ctx context.Context, documentID string) (*domain.FeedbackAggregate, error)
}
