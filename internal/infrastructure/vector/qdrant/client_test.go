package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSearchMapsPayloadToChunks(t *testing.T) {
	var capturedLimit float64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/points/search") {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		capturedLimit, _ = payload["limit"].(float64)
		_, _ = w.Write([]byte(`{"result":[
			{"score":0.91,"payload":{"doc_id":"doc-1","title":"Smith v Jones","court":"Court of Appeal","text":"clause text"}},
			{"score":0.85,"payload":{"doc_id":"doc-2","title":"Re Brown","court":"High Court","text":"other text"}}
		]}`))
	}))
	defer server.Close()

	client := New(server.URL, "precedents")
	chunks, err := client.Search(context.Background(), []float32{0.1, 0.2}, 13)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if capturedLimit != 13 {
		t.Fatalf("expected limit 13 in request, got %v", capturedLimit)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].DocumentID != "doc-1" || chunks[0].Title != "Smith v Jones" || chunks[0].Court != "Court of Appeal" {
		t.Fatalf("unexpected first chunk: %+v", chunks[0])
	}
	if chunks[1].Score != 0.85 {
		t.Fatalf("expected engine score preserved, got %v", chunks[1].Score)
	}
}

func TestSearchIncludesStatusBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collection not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, "precedents")
	_, err := client.Search(context.Background(), []float32{0.1}, 5)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "collection not found") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

type embedderStub struct {
	vector []float32
	err    error
	called int
}

func (s *embedderStub) EmbedQuery(context.Context, string) ([]float32, error) {
	s.called++
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func TestRetrieverEmbedsThenSearches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":[{"score":0.9,"payload":{"doc_id":"doc-1","text":"t"}}]}`))
	}))
	defer server.Close()

	stub := &embedderStub{vector: []float32{0.5, 0.5}}
	retriever := NewRetriever(stub, New(server.URL, "precedents"))

	chunks, err := retriever.Search(context.Background(), "adverse possession", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if stub.called != 1 {
		t.Fatalf("expected one embed call, got %d", stub.called)
	}
	if len(chunks) != 1 || chunks[0].DocumentID != "doc-1" {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}
}
