package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/lexhelp/precedent-search/internal/core/domain"
)

type eventStoreFake struct {
	likes    int
	dislikes int
	avgScore *float64
	sumErr   error

	appended []*domain.FeedbackEvent
}

func (f *eventStoreFake) Append(_ context.Context, event *domain.FeedbackEvent) error {
	f.appended = append(f.appended, event)
	return nil
}

func (f *eventStoreFake) SumForDocument(context.Context, string) (int, int, *float64, error) {
	if f.sumErr != nil {
		return 0, 0, nil, f.sumErr
	}
	return f.likes, f.dislikes, f.avgScore, nil
}

type aggregateStoreFake struct {
	existing *domain.FeedbackAggregate
	getErr   error

	upserted  []*domain.FeedbackAggregate
	upsertErr error

	excludedIDs []string
	listErr     error
	listCalls   int
}

func (f *aggregateStoreFake) Upsert(_ context.Context, agg *domain.FeedbackAggregate) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, agg)
	return nil
}

func (f *aggregateStoreFake) GetByDocumentID(_ context.Context, id string) (*domain.FeedbackAggregate, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.existing == nil {
		return nil, domain.WrapError(domain.ErrNotFound, "get aggregate", errors.New(id))
	}
	return f.existing, nil
}

func (f *aggregateStoreFake) ListExcludedDocumentIDs(context.Context) ([]string, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.excludedIDs, nil
}

func TestAggregateUpdaterCreatesAggregateOnFirstFeedback(t *testing.T) {
	events := &eventStoreFake{likes: 1, dislikes: 0}
	store := &aggregateStoreFake{}
	uc := NewAggregateUpdater(events, store, domain.DefaultExclusionPolicy())

	agg, err := uc.RecomputeByDocumentID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("RecomputeByDocumentID() error = %v", err)
	}
	if len(store.upserted) != 1 {
		t.Fatalf("expected one upsert, got %d", len(store.upserted))
	}
	if agg.ShouldExclude {
		t.Fatalf("single like must not exclude: %+v", agg)
	}
	if agg.LikeRatio != 1.0 {
		t.Fatalf("expected like ratio 1.0, got %v", agg.LikeRatio)
	}
}

func TestAggregateUpdaterExcludesAfterEnoughDislikes(t *testing.T) {
	events := &eventStoreFake{likes: 2, dislikes: 8}
	store := &aggregateStoreFake{}
	uc := NewAggregateUpdater(events, store, domain.DefaultExclusionPolicy())

	agg, err := uc.RecomputeByDocumentID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("RecomputeByDocumentID() error = %v", err)
	}
	if !agg.ShouldExclude {
		t.Fatalf("likes=2 dislikes=8 must exclude, got %+v", agg)
	}
}

func TestAggregateUpdaterPreservesStoredAverageWhenEventsHaveNoScores(t *testing.T) {
	prevAvg := 4.0
	events := &eventStoreFake{likes: 3, dislikes: 1, avgScore: nil}
	store := &aggregateStoreFake{existing: &domain.FeedbackAggregate{
		DocumentID:         "doc-1",
		AvgRelevanceScore:  &prevAvg,
		ExclusionThreshold: domain.DefaultExclusionThreshold,
	}}
	uc := NewAggregateUpdater(events, store, domain.DefaultExclusionPolicy())

	agg, err := uc.RecomputeByDocumentID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("RecomputeByDocumentID() error = %v", err)
	}
	if agg.AvgRelevanceScore == nil || *agg.AvgRelevanceScore != 4.0 {
		t.Fatalf("expected stored average preserved, got %v", agg.AvgRelevanceScore)
	}
}

func TestAggregateUpdaterHonorsPerDocumentThresholdOverride(t *testing.T) {
	override := 0.5
	events := &eventStoreFake{likes: 4, dislikes: 6}
	store := &aggregateStoreFake{existing: &domain.FeedbackAggregate{
		DocumentID:         "doc-1",
		ExclusionThreshold: 0.5,
		ThresholdOverride:  &override,
	}}
	uc := NewAggregateUpdater(events, store, domain.DefaultExclusionPolicy())

	agg, err := uc.RecomputeByDocumentID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("RecomputeByDocumentID() error = %v", err)
	}
	if !agg.ShouldExclude {
		t.Fatalf("ratio 0.4 with override 0.5 must exclude, got %+v", agg)
	}
	if agg.ThresholdOverride == nil || *agg.ThresholdOverride != 0.5 {
		t.Fatalf("override must survive the recompute, got %v", agg.ThresholdOverride)
	}
}

func TestAggregateUpdaterAppliesPolicyChangeToExistingAggregates(t *testing.T) {
	events := &eventStoreFake{likes: 4, dislikes: 6}
	// Stored under the old configured threshold, no per-document override.
	store := &aggregateStoreFake{existing: &domain.FeedbackAggregate{
		DocumentID:         "doc-1",
		ExclusionThreshold: 0.3,
	}}
	uc := NewAggregateUpdater(events, store, domain.ExclusionPolicy{
		MinFeedbackCount: 5,
		Threshold:        0.5,
	})

	agg, err := uc.RecomputeByDocumentID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("RecomputeByDocumentID() error = %v", err)
	}
	if !agg.ShouldExclude {
		t.Fatalf("raised threshold 0.5 must apply to ratio 0.4, got %+v", agg)
	}
	if agg.ExclusionThreshold != 0.5 {
		t.Fatalf("got applied threshold %v, want 0.5", agg.ExclusionThreshold)
	}
	if agg.ThresholdOverride != nil {
		t.Fatalf("recompute must not invent an override, got %v", *agg.ThresholdOverride)
	}
}

func TestAggregateUpdaterRejectsEmptyDocumentID(t *testing.T) {
	uc := NewAggregateUpdater(&eventStoreFake{}, &aggregateStoreFake{}, domain.DefaultExclusionPolicy())

	_, err := uc.RecomputeByDocumentID(context.Background(), "  ")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAggregateUpdaterPropagatesStoreErrors(t *testing.T) {
	events := &eventStoreFake{sumErr: errors.New("db down")}
	uc := NewAggregateUpdater(events, &aggregateStoreFake{}, domain.DefaultExclusionPolicy())
	if _, err := uc.RecomputeByDocumentID(context.Background(), "doc-1"); err == nil {
		t.Fatalf("expected error from event sum")
	}

	store := &aggregateStoreFake{upsertErr: errors.New("write failed")}
	uc = NewAggregateUpdater(&eventStoreFake{likes: 1}, store, domain.DefaultExclusionPolicy())
	if _, err := uc.RecomputeByDocumentID(context.Background(), "doc-1"); err == nil {
		t.Fatalf("expected error from upsert")
	}
}
