package domain

import "time"

// FeedbackEvent is one user signal about one retrieved precedent.
// Events are append-only and never mutated; aggregates are derived from them.
type FeedbackEvent struct {
	ID             string    `json:"id"`
	DocumentID     string    `json:"document_id"`
	UserID         string    `json:"user_id,omitempty"`
	SessionID      string    `json:"session_id,omitempty"`
	Query          string    `json:"query"`
	IsHelpful      bool      `json:"is_helpful"`
	RelevanceScore *int      `json:"relevance_score,omitempty"`
	Comment        string    `json:"comment,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// FeedbackAggregate is derived state keyed by document id. It is always
// recomputed in full from the event population, never patched incrementally.
//
// ExclusionThreshold records the like-ratio threshold applied on the last
// recompute. ThresholdOverride pins the document to its own threshold; nil
// means the configured policy applies, including future policy changes.
type FeedbackAggregate struct {
	DocumentID         string    `json:"document_id"`
	TotalLikes         int       `json:"total_likes"`
	TotalDislikes      int       `json:"total_dislikes"`
	TotalFeedbackCount int       `json:"total_feedback_count"`
	LikeRatio          float64   `json:"like_ratio"`
	AvgRelevanceScore  *float64  `json:"avg_relevance_score,omitempty"`
	ShouldExclude      bool      `json:"should_exclude"`
	ExclusionThreshold float64   `json:"exclusion_threshold"`
	ThresholdOverride  *float64  `json:"threshold_override,omitempty"`
	LastUpdated        time.Time `json:"last_updated"`
}

// ExclusionPolicy decides when accumulated feedback turns into exclusion.
type ExclusionPolicy struct {
	// MinFeedbackCount is the minimum number of signals before a document can
	// be excluded at all. Documents with less feedback are never excluded.
	MinFeedbackCount int
	// Threshold is the like ratio at or below which the document is excluded.
	Threshold float64
}

const (
	DefaultMinFeedbackCount   = 5
	DefaultExclusionThreshold = 0.3
)

func DefaultExclusionPolicy() ExclusionPolicy {
	return ExclusionPolicy{
		MinFeedbackCount: DefaultMinFeedbackCount,
		Threshold:        DefaultExclusionThreshold,
	}
}

func (p ExclusionPolicy) normalize() ExclusionPolicy {
	out := p
	if out.MinFeedbackCount <= 0 {
		out.MinFeedbackCount = DefaultMinFeedbackCount
	}
	if out.Threshold <= 0 || out.Threshold > 1 {
		out.Threshold = DefaultExclusionThreshold
	}
	return out
}

// RecomputeAggregate derives a full aggregate from raw counts. Negative
// counts are clamped to zero. A nil avgScore preserves prevAvgScore; the
// average is replaced only when a fresh value is supplied. Given identical
// inputs the result is identical except for the timestamp.
func RecomputeAggregate(
	documentID string,
	likes, dislikes int,
	avgScore, prevAvgScore *float64,
	policy ExclusionPolicy,
	now time.Time,
) FeedbackAggregate {
	if likes < 0 {
		likes = 0
	}
	if dislikes < 0 {
		dislikes = 0
	}
	policy = policy.normalize()

	total := likes + dislikes
	ratio := 0.0
	if total > 0 {
		ratio = float64(likes) / float64(total)
	}

	avg := prevAvgScore
	if avgScore != nil {
		avg = avgScore
	}

	return FeedbackAggregate{
		DocumentID:         documentID,
		TotalLikes:         likes,
		TotalDislikes:      dislikes,
		TotalFeedbackCount: total,
		LikeRatio:          ratio,
		AvgRelevanceScore:  avg,
		ShouldExclude:      total >= policy.MinFeedbackCount && ratio <= policy.Threshold,
		ExclusionThreshold: policy.Threshold,
		LastUpdated:        now,
	}
}
