package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lexhelp/precedent-search/internal/core/domain"
	"github.com/lexhelp/precedent-search/internal/core/ports"
)

// AggregateUpdater recomputes a document's feedback aggregate from raw event
// counts and persists it. It runs off the read path, triggered by recorded
// feedback events.
type AggregateUpdater struct {
	events ports.FeedbackEventStore
	store  ports.AggregateStore
	policy domain.ExclusionPolicy
	now    func() time.Time
}

func NewAggregateUpdater(
	events ports.FeedbackEventStore,
	store ports.AggregateStore,
	policy domain.ExclusionPolicy,
) *AggregateUpdater {
	return &AggregateUpdater{
		events: events,
		store:  store,
		policy: policy,
		now:    time.Now,
	}
}

// RecomputeByDocumentID sums the full event population for the document and
// rebuilds its aggregate. Safe to run repeatedly for the same document.
func (uc *AggregateUpdater) RecomputeByDocumentID(ctx context.Context, documentID string) (*domain.FeedbackAggregate, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "recompute aggregate", errors.New("document id is required"))
	}

	likes, dislikes, avgScore, err := uc.events.SumForDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("sum feedback events: %w", err)
	}
	return uc.Update(ctx, documentID, likes, dislikes, avgScore)
}

// Update recomputes and persists the aggregate for the given counts. A nil
// avgScore keeps the stored average. A per-document threshold override on the
// stored aggregate survives the recompute; documents without one follow the
// configured policy, so a policy change applies on their next recompute.
func (uc *AggregateUpdater) Update(
	ctx context.Context,
	documentID string,
	likes, dislikes int,
	avgScore *float64,
) (*domain.FeedbackAggregate, error) {
	prev, err := uc.store.GetByDocumentID(ctx, documentID)
	if err != nil && !domain.IsKind(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("load previous aggregate: %w", err)
	}

	policy := uc.policy
	var prevAvg, override *float64
	if prev != nil {
		prevAvg = prev.AvgRelevanceScore
		if prev.ThresholdOverride != nil && *prev.ThresholdOverride > 0 {
			override = prev.ThresholdOverride
			policy.Threshold = *override
		}
	}

	agg := domain.RecomputeAggregate(documentID, likes, dislikes, avgScore, prevAvg, policy, uc.now().UTC())
	agg.ThresholdOverride = override
	if err := uc.store.Upsert(ctx, &agg); err != nil {
		return nil, fmt.Errorf("upsert aggregate: %w", err)
	}
	return &agg, nil
}
