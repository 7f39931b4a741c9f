package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lexhelp/precedent-search/internal/core/domain"
)

// FeedbackEventRepository is the append-only store of raw feedback signals.
type FeedbackEventRepository struct {
	db *sql.DB
}

func NewFeedbackEventRepository(db *sql.DB) *FeedbackEventRepository {
	return &FeedbackEventRepository{db: db}
}

func (r *FeedbackEventRepository) Append(ctx context.Context, event *domain.FeedbackEvent) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO feedback_events (
	id, document_id, user_id, session_id, query, is_helpful, relevance_score, comment, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		event.ID, event.DocumentID, nullIfEmpty(event.UserID), nullIfEmpty(event.SessionID),
		event.Query, event.IsHelpful, event.RelevanceScore, nullIfEmpty(event.Comment), event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert feedback event: %w", err)
	}
	return nil
}

// SumForDocument aggregates the full event population for one document. The
// returned average is nil when no event carries a relevance score.
func (r *FeedbackEventRepository) SumForDocument(ctx context.Context, documentID string) (int, int, *float64, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT
	COUNT(*) FILTER (WHERE is_helpful),
	COUNT(*) FILTER (WHERE NOT is_helpful),
	AVG(relevance_score)
FROM feedback_events
WHERE document_id = $1
`, documentID)

	var likes, dislikes int64
	var avg sql.NullFloat64
	if err := row.Scan(&likes, &dislikes, &avg); err != nil {
		return 0, 0, nil, fmt.Errorf("sum feedback events: %w", err)
	}

	var avgScore *float64
	if avg.Valid {
		avgScore = &avg.Float64
	}
	return int(likes), int(dislikes), avgScore, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
