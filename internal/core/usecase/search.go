package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lexhelp/precedent-search/internal/core/domain"
	"github.com/lexhelp/precedent-search/internal/core/ports"
)

// SearchUseCase composes the filtered retrieval flow: load the exclusion
// snapshot, size the over-fetch, query the retrieval engine once, compact.
// Exactly topK results are best effort, not a guarantee.
type SearchUseCase struct {
	exclusions  ports.ExclusionProvider
	retriever   ports.ChunkRetriever
	planner     OverfetchPlanner
	defaultTopK int
}

const defaultSearchTopK = 5

func NewSearchUseCase(
	exclusions ports.ExclusionProvider,
	retriever ports.ChunkRetriever,
	planner OverfetchPlanner,
	defaultTopK int,
) *SearchUseCase {
	if defaultTopK <= 0 {
		defaultTopK = defaultSearchTopK
	}
	return &SearchUseCase{
		exclusions:  exclusions,
		retriever:   retriever,
		planner:     planner,
		defaultTopK: defaultTopK,
	}
}

func (uc *SearchUseCase) Search(
	ctx context.Context,
	query string,
	topK int,
	excludeIDs []string,
) (*domain.SearchResultSet, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search precedents", errors.New("query is required"))
	}
	if topK <= 0 {
		topK = uc.defaultTopK
	}

	excluded := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		if id != "" {
			excluded[id] = struct{}{}
		}
	}

	degraded := false
	snapshot, err := uc.exclusions.ExcludedIDs(ctx)
	switch {
	case err == nil:
		for id := range snapshot.IDs {
			excluded[id] = struct{}{}
		}
	case domain.IsKind(err, domain.ErrExclusionUnavailable):
		// No snapshot exists and none could be built. Proceed unfiltered
		// rather than failing the whole request.
		degraded = true
	default:
		return nil, fmt.Errorf("load exclusion set: %w", err)
	}

	fetchCount := uc.planner.Plan(topK, len(excluded))
	chunks, err := uc.retriever.Search(ctx, query, fetchCount)
	if err != nil {
		return nil, fmt.Errorf("retrieve chunks: %w", err)
	}

	results, stats := CompactResults(chunks, excluded, topK)
	return &domain.SearchResultSet{
		Results:          results,
		Requested:        topK,
		RawFetched:       len(chunks),
		DroppedExcluded:  stats.DroppedExcluded,
		DroppedDuplicate: stats.DroppedDuplicate,
		FilterDegraded:   degraded,
	}, nil
}
