package domain

import "time"

// RetrievedChunk is one ranked unit returned by the retrieval engine. Several
// chunks may belong to the same source precedent.
type RetrievedChunk struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Court      string  `json:"court,omitempty"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// SearchResultSet is the compacted outcome of one search request.
type SearchResultSet struct {
	Results          []RetrievedChunk `json:"results"`
	Requested        int              `json:"requested"`
	RawFetched       int              `json:"raw_fetched"`
	DroppedExcluded  int              `json:"dropped_excluded"`
	DroppedDuplicate int              `json:"dropped_duplicate"`
	// FilterDegraded is set when the exclusion set could not be loaded and
	// results were returned unfiltered.
	FilterDegraded bool `json:"filter_degraded,omitempty"`
}

// ExclusionSnapshot is an immutable capture of the excluded-document set.
// It is shared read-only across requests; a refresh installs a new snapshot
// instead of mutating this one.
type ExclusionSnapshot struct {
	IDs        map[string]struct{}
	CapturedAt time.Time
}

func NewExclusionSnapshot(ids []string, capturedAt time.Time) *ExclusionSnapshot {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	return &ExclusionSnapshot{IDs: set, CapturedAt: capturedAt}
}

func (s *ExclusionSnapshot) Contains(documentID string) bool {
	if s == nil {
		return false
	}
	_, ok := s.IDs[documentID]
	return ok
}

func (s *ExclusionSnapshot) Size() int {
	if s == nil {
		return 0
	}
	return len(s.IDs)
}

func (s *ExclusionSnapshot) Age(now time.Time) time.Duration {
	if s == nil {
		return 0
	}
	return now.Sub(s.CapturedAt)
}
