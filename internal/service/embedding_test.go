package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/replyt/replyt/internal/domain"
)

func newEmbeddingStub(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *EmbeddingService) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc := NewEmbeddingService(&EmbeddingConfig{
		Model:      "test-embedding",
		APIKey:     "test-key",
		BaseURL:    server.URL,
		BatchSize:  2,
		BatchDelay: time.Millisecond,
	})
	return server, svc
}

func writeEmbeddings(w http.ResponseWriter, count, reverse int) {
	type item struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	}
	items := make([]item, 0, count)
	for i := 0; i < count; i++ {
		idx := i
		if reverse > 0 {
			idx = count - 1 - i
		}
		items = append(items, item{Embedding: []float32{float32(idx)}, Index: idx})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"data": items})
}

func TestEmbedBatchSplitsAndPreservesOrder(t *testing.T) {
	var batches [][]string
	_, svc := newEmbeddingStub(t, func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		batches = append(batches, req.Input)
		// Return items in reverse order; the client must reorder by index.
		writeEmbeddings(w, len(req.Input), 1)
	})

	texts := []string{"a", "b", "c", "d", "e"}
	got, err := svc.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}

	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(batches))
	}
	if len(batches[0]) != 2 || len(batches[2]) != 1 {
		t.Errorf("batch sizes = %d/%d/%d, want 2/2/1", len(batches[0]), len(batches[1]), len(batches[2]))
	}
	if len(got) != len(texts) {
		t.Fatalf("got %d embeddings, want %d", len(got), len(texts))
	}
	// Each batch was reversed by the stub; index-based reordering restores
	// per-batch positions 0..n-1.
	for i, vec := range got {
		want := float32(i % 2)
		if len(vec) != 1 || vec[0] != want {
			t.Errorf("embedding[%d] = %v, want [%v]", i, vec, want)
		}
	}
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	_, svc := newEmbeddingStub(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty input")
	})

	got, err := svc.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d embeddings, want 0", len(got))
	}
}

func TestEmbedBatchCountMismatch(t *testing.T) {
	_, svc := newEmbeddingStub(t, func(w http.ResponseWriter, r *http.Request) {
		writeEmbeddings(w, 1, 0)
	})

	_, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatal("expected error on count mismatch")
	}
	if !domain.IsUpstream(err) {
		t.Errorf("error should be an upstream error, got %T", err)
	}
}

func TestEmbedBatchFailureAbortsWholeCall(t *testing.T) {
	calls := 0
	_, svc := newEmbeddingStub(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]string{"message": "rate limited"},
			})
			return
		}
		var req embeddingRequest
		json.NewDecoder(r.Body).Decode(&req)
		writeEmbeddings(w, len(req.Input), 0)
	})

	got, err := svc.EmbedBatch(context.Background(), []string{"a", "b", "c", "d"})
	if err == nil {
		t.Fatal("expected error when a later batch fails")
	}
	if got != nil {
		t.Error("no partial output should be returned")
	}
}

func TestEmbedBatchCancelledContext(t *testing.T) {
	_, svc := newEmbeddingStub(t, func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		json.NewDecoder(r.Body).Decode(&req)
		writeEmbeddings(w, len(req.Input), 0)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.EmbedBatch(ctx, []string{"a", "b", "c"})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
