package usecase

// OverfetchPlanner sizes the raw retrieval request so that, after dropping
// excluded documents and duplicate chunks, enough unique results remain. The
// multiplier absorbs expected chunk-level duplication; the excluded count
// absorbs documents the filter will drop outright. Single-shot: if real
// duplication or exclusion rates exceed the assumption, the compacted result
// comes up short and no re-query is issued.
type OverfetchPlanner struct {
	multiplier int
}

const DefaultOverfetchMultiplier = 2

func NewOverfetchPlanner(multiplier int) OverfetchPlanner {
	if multiplier <= 0 {
		multiplier = DefaultOverfetchMultiplier
	}
	return OverfetchPlanner{multiplier: multiplier}
}

func (p OverfetchPlanner) Plan(requestedUnique, excludedCount int) int {
	if requestedUnique <= 0 {
		return 0
	}
	if excludedCount < 0 {
		excludedCount = 0
	}
	return requestedUnique*p.multiplier + excludedCount
}
