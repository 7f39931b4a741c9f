package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lexhelp/precedent-search/internal/core/domain"
)

// AggregateRepository persists derived feedback aggregates. The transactional
// upsert serializes concurrent writes for the same document at the storage
// layer; last write wins, consistent with full recomputation.
type AggregateRepository struct {
	db *sql.DB
}

func NewAggregateRepository(db *sql.DB) *AggregateRepository {
	return &AggregateRepository{db: db}
}

func (r *AggregateRepository) Upsert(ctx context.Context, agg *domain.FeedbackAggregate) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO feedback_aggregates (
	document_id, total_likes, total_dislikes, total_feedback_count,
	like_ratio, avg_relevance_score, should_exclude, exclusion_threshold,
	threshold_override, last_updated
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (document_id) DO UPDATE SET
	total_likes = EXCLUDED.total_likes,
	total_dislikes = EXCLUDED.total_dislikes,
	total_feedback_count = EXCLUDED.total_feedback_count,
	like_ratio = EXCLUDED.like_ratio,
	avg_relevance_score = EXCLUDED.avg_relevance_score,
	should_exclude = EXCLUDED.should_exclude,
	exclusion_threshold = EXCLUDED.exclusion_threshold,
	threshold_override = EXCLUDED.threshold_override,
	last_updated = EXCLUDED.last_updated
`,
		agg.DocumentID, agg.TotalLikes, agg.TotalDislikes, agg.TotalFeedbackCount,
		agg.LikeRatio, agg.AvgRelevanceScore, agg.ShouldExclude, agg.ExclusionThreshold,
		agg.ThresholdOverride, agg.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("upsert feedback aggregate: %w", err)
	}
	return nil
}

func (r *AggregateRepository) GetByDocumentID(ctx context.Context, documentID string) (*domain.FeedbackAggregate, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT document_id, total_likes, total_dislikes, total_feedback_count,
	like_ratio, avg_relevance_score, should_exclude, exclusion_threshold,
	threshold_override, last_updated
FROM feedback_aggregates
WHERE document_id = $1
`, documentID)

	var agg domain.FeedbackAggregate
	var avg, override sql.NullFloat64
	err := row.Scan(
		&agg.DocumentID, &agg.TotalLikes, &agg.TotalDislikes, &agg.TotalFeedbackCount,
		&agg.LikeRatio, &avg, &agg.ShouldExclude, &agg.ExclusionThreshold,
		&override, &agg.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get feedback aggregate", fmt.Errorf("document %s", documentID))
		}
		return nil, fmt.Errorf("scan feedback aggregate: %w", err)
	}

	if avg.Valid {
		agg.AvgRelevanceScore = &avg.Float64
	}
	if override.Valid {
		agg.ThresholdOverride = &override.Float64
	}
	return &agg, nil
}

func (r *AggregateRepository) ListExcludedDocumentIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT document_id
FROM feedback_aggregates
WHERE should_exclude
ORDER BY document_id
`)
	if err != nil {
		return nil, fmt.Errorf("list excluded documents: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan excluded document id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate excluded documents: %w", err)
	}
	return ids, nil
}
