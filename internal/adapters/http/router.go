package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/lexhelp/precedent-search/internal/core/domain"
	"github.com/lexhelp/precedent-search/internal/core/ports"
)

// ExclusionInvalidator drops the cached exclusion snapshot so the next
// search picks up aggregate changes immediately.
type ExclusionInvalidator interface {
	Invalidate()
}

// SearchObserver receives per-request search outcomes for metrics.
type SearchObserver interface {
	RecordSearchObservation(degraded bool, requested, emitted, droppedExcluded, droppedDuplicate int, duration time.Duration)
	RecordFeedback(isHelpful bool)
}

type Router struct {
	searcher   ports.PrecedentSearcher
	recorder   ports.FeedbackRecorder
	aggregates ports.AggregateReader
	cache      ExclusionInvalidator
	observer   SearchObserver
}

func NewRouter(
	searcher ports.PrecedentSearcher,
	recorder ports.FeedbackRecorder,
	aggregates ports.AggregateReader,
	cache ExclusionInvalidator,
	observer SearchObserver,
) *Router {
	return &Router{
		searcher:   searcher,
		recorder:   recorder,
		aggregates: aggregates,
		cache:      cache,
		observer:   observer,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/search", rt.search)
	mux.HandleFunc("/v1/feedback", rt.recordFeedback)
	mux.HandleFunc("/v1/feedback/", rt.getFeedbackAggregate)
	mux.HandleFunc("/v1/admin/exclusions/invalidate", rt.invalidateExclusions)
	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchRequest struct {
	Query      string   `json:"query"`
	TopK       int      `json:"top_k"`
	ExcludeIDs []string `json:"exclude_ids"`
}

type searchResultPayload struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title,omitempty"`
	Court      string  `json:"court,omitempty"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

type searchResponse struct {
	Results          []searchResultPayload `json:"results"`
	Requested        int                   `json:"requested"`
	Returned         int                   `json:"returned"`
	RawFetched       int                   `json:"raw_fetched"`
	DroppedExcluded  int                   `json:"dropped_excluded"`
	DroppedDuplicate int                   `json:"dropped_duplicate"`
	FilterDegraded   bool                  `json:"filter_degraded"`
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	start := time.Now()
	resultSet, err := rt.searcher.Search(r.Context(), req.Query, req.TopK, req.ExcludeIDs)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if rt.observer != nil {
		rt.observer.RecordSearchObservation(
			resultSet.FilterDegraded,
			resultSet.Requested,
			len(resultSet.Results),
			resultSet.DroppedExcluded,
			resultSet.DroppedDuplicate,
			time.Since(start),
		)
	}

	results := make([]searchResultPayload, 0, len(resultSet.Results))
	for _, chunk := range resultSet.Results {
		results = append(results, searchResultPayload{
			DocumentID: chunk.DocumentID,
			Title:      chunk.Title,
			Court:      chunk.Court,
			Text:       chunk.Text,
			Score:      chunk.Score,
		})
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Results:          results,
		Requested:        resultSet.Requested,
		Returned:         len(results),
		RawFetched:       resultSet.RawFetched,
		DroppedExcluded:  resultSet.DroppedExcluded,
		DroppedDuplicate: resultSet.DroppedDuplicate,
		FilterDegraded:   resultSet.FilterDegraded,
	})
}

type feedbackRequest struct {
	DocumentID     string `json:"document_id"`
	UserID         string `json:"user_id"`
	SessionID      string `json:"session_id"`
	Query          string `json:"query"`
	IsHelpful      bool   `json:"is_helpful"`
	RelevanceScore *int   `json:"relevance_score"`
	Comment        string `json:"comment"`
}

func (rt *Router) recordFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	event, err := rt.recorder.Record(r.Context(), &domain.FeedbackEvent{
		DocumentID:     req.DocumentID,
		UserID:         req.UserID,
		SessionID:      req.SessionID,
		Query:          req.Query,
		IsHelpful:      req.IsHelpful,
		RelevanceScore: req.RelevanceScore,
		Comment:        req.Comment,
	})
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if rt.observer != nil {
		rt.observer.RecordFeedback(event.IsHelpful)
	}
	writeJSON(w, http.StatusAccepted, event)
}

func (rt *Router) getFeedbackAggregate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/feedback/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	agg, err := rt.aggregates.GetByDocumentID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func (rt *Router) invalidateExclusions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rt.cache.Invalidate()
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
