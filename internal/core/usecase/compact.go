package usecase

import (
	"github.com/lexhelp/precedent-search/internal/core/domain"
)

// CompactionStats describes what happened to the raw ranked sequence while
// compacting. Counting stops once the target is reached, so the drop counts
// cover only the scanned prefix.
type CompactionStats struct {
	Scanned          int
	Emitted          int
	DroppedExcluded  int
	DroppedDuplicate int
}

// CompactResults walks the ranked sequence in order, skips chunks of excluded
// documents, emits the first chunk seen per document, and stops at
// targetUnique unique documents. Rank order of first occurrence is preserved;
// when several chunks share a document, earliest rank wins regardless of
// score. Output length is min(targetUnique, unique non-excluded documents in
// the input); a non-positive target yields an empty result.
func CompactResults(
	ranked []domain.RetrievedChunk,
	excluded map[string]struct{},
	targetUnique int,
) ([]domain.RetrievedChunk, CompactionStats) {
	var stats CompactionStats
	if targetUnique <= 0 {
		return []domain.RetrievedChunk{}, stats
	}

	seen := make(map[string]struct{}, targetUnique)
	out := make([]domain.RetrievedChunk, 0, targetUnique)
	for _, chunk := range ranked {
		stats.Scanned++
		if _, ok := excluded[chunk.DocumentID]; ok {
			stats.DroppedExcluded++
			continue
		}
		if _, ok := seen[chunk.DocumentID]; ok {
			stats.DroppedDuplicate++
			continue
		}
		seen[chunk.DocumentID] = struct{}{}
		out = append(out, chunk)
		if len(out) == targetUnique {
			break
		}
	}
	stats.Emitted = len(out)
	return out, stats
}
