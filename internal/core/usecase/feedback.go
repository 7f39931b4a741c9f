package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lexhelp/precedent-search/internal/core/domain"
	"github.com/lexhelp/precedent-search/internal/core/ports"
)

// RecordFeedbackUseCase appends one immutable feedback event and notifies the
// recompute worker. The aggregate is updated asynchronously.
type RecordFeedbackUseCase struct {
	events ports.FeedbackEventStore
	queue  ports.MessageQueue
	now    func() time.Time
}

func NewRecordFeedbackUseCase(
	events ports.FeedbackEventStore,
	queue ports.MessageQueue,
) *RecordFeedbackUseCase {
	return &RecordFeedbackUseCase{
		events: events,
		queue:  queue,
		now:    time.Now,
	}
}

func (uc *RecordFeedbackUseCase) Record(ctx context.Context, event *domain.FeedbackEvent) (*domain.FeedbackEvent, error) {
	if event == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "record feedback", errors.New("event is required"))
	}
	if strings.TrimSpace(event.DocumentID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "record feedback", errors.New("document id is required"))
	}
	if event.RelevanceScore != nil && (*event.RelevanceScore < 1 || *event.RelevanceScore > 5) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "record feedback",
			fmt.Errorf("relevance score %d out of range 1..5", *event.RelevanceScore))
	}

	stored := *event
	stored.ID = uuid.NewString()
	stored.CreatedAt = uc.now().UTC()

	if err := uc.events.Append(ctx, &stored); err != nil {
		return nil, fmt.Errorf("append feedback event: %w", err)
	}
	if err := uc.queue.PublishFeedbackRecorded(ctx, stored.DocumentID); err != nil {
		return nil, fmt.Errorf("publish feedback event: %w", err)
	}
	return &stored, nil
}
