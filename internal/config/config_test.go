package config

import "testing"

func TestLoadIncludesFilterDefaults(t *testing.T) {
	t.Setenv("SEARCH_TOP_K", "")
	t.Setenv("SEARCH_OVERFETCH_MULTIPLIER", "")
	t.Setenv("FEEDBACK_MIN_COUNT", "")
	t.Setenv("FEEDBACK_EXCLUSION_THRESHOLD", "")
	t.Setenv("EXCLUSION_CACHE_TTL_SECONDS", "")

	cfg := Load()
	if cfg.SearchTopK != 5 {
		t.Fatalf("expected default top k 5, got %d", cfg.SearchTopK)
	}
	if cfg.SearchOverfetchMultiplier != 2 {
		t.Fatalf("expected default overfetch multiplier 2, got %d", cfg.SearchOverfetchMultiplier)
	}
	if cfg.FeedbackMinCount != 5 {
		t.Fatalf("expected default min feedback count 5, got %d", cfg.FeedbackMinCount)
	}
	if cfg.FeedbackExclusionThreshold != 0.3 {
		t.Fatalf("expected default exclusion threshold 0.3, got %v", cfg.FeedbackExclusionThreshold)
	}
	if cfg.ExclusionCacheTTLSeconds != 300 {
		t.Fatalf("expected default cache ttl 300s, got %d", cfg.ExclusionCacheTTLSeconds)
	}
}

func TestLoadParsesFilterOverrides(t *testing.T) {
	t.Setenv("SEARCH_TOP_K", "8")
	t.Setenv("SEARCH_OVERFETCH_MULTIPLIER", "3")
	t.Setenv("FEEDBACK_MIN_COUNT", "10")
	t.Setenv("FEEDBACK_EXCLUSION_THRESHOLD", "0.25")
	t.Setenv("EXCLUSION_CACHE_TTL_SECONDS", "60")

	cfg := Load()
	if cfg.SearchTopK != 8 {
		t.Fatalf("expected top k override 8, got %d", cfg.SearchTopK)
	}
	if cfg.SearchOverfetchMultiplier != 3 {
		t.Fatalf("expected overfetch multiplier override 3, got %d", cfg.SearchOverfetchMultiplier)
	}
	if cfg.FeedbackMinCount != 10 {
		t.Fatalf("expected min feedback count override 10, got %d", cfg.FeedbackMinCount)
	}
	if cfg.FeedbackExclusionThreshold != 0.25 {
		t.Fatalf("expected threshold override 0.25, got %v", cfg.FeedbackExclusionThreshold)
	}
	if cfg.ExclusionCacheTTLSeconds != 60 {
		t.Fatalf("expected cache ttl override 60s, got %d", cfg.ExclusionCacheTTLSeconds)
	}
}

func TestLoadFallsBackOnUnparsableValues(t *testing.T) {
	t.Setenv("FEEDBACK_EXCLUSION_THRESHOLD", "not-a-number")
	t.Setenv("SEARCH_TOP_K", "five")

	cfg := Load()
	if cfg.FeedbackExclusionThreshold != 0.3 {
		t.Fatalf("expected fallback threshold 0.3, got %v", cfg.FeedbackExclusionThreshold)
	}
	if cfg.SearchTopK != 5 {
		t.Fatalf("expected fallback top k 5, got %d", cfg.SearchTopK)
	}
}
