package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/replyt/replyt/internal/domain"
	"github.com/replyt/replyt/internal/logger"
)

const (
	defaultEmbeddingBaseURL = "https://api.openai.com/v1"
	defaultBatchSize        = 100
	defaultBatchDelay       = 100 * time.Millisecond
)

// EmbeddingService generates text embeddings through an OpenAI-compatible API.
type EmbeddingService struct {
	client     *resty.Client
	baseURL    string
	model      string
	dimensions int
	batchSize  int
	batchDelay time.Duration
}

// EmbeddingConfig holds configuration for the embedding service.
type EmbeddingConfig struct {
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
	BatchSize  int
	BatchDelay time.Duration
}

// NewEmbeddingService creates a new embedding service.
func NewEmbeddingService(cfg *EmbeddingConfig) *EmbeddingService {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultEmbeddingBaseURL
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	batchDelay := cfg.BatchDelay
	if batchDelay < 0 {
		batchDelay = defaultBatchDelay
	}

	return &EmbeddingService{
		client:     client,
		baseURL:    baseURL,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		batchSize:  batchSize,
		batchDelay: batchDelay,
	}
}

// GetModel returns the model name being used
func (s *EmbeddingService) GetModel() string {
	return s.model
}

// OpenAI embeddings API request/response structures
type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Embed generates an embedding for a single text
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, domain.NewUpstreamError("embedding", fmt.Errorf("no embedding returned"))
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts. The result has the same
// length and order as the input. The input is split into fixed-size groups
// issued sequentially with a short delay in between to respect provider rate
// limits; a failure in any group aborts the whole call without partial output.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		if start > 0 && s.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, domain.NewUpstreamError("embedding", ctx.Err())
			case <-time.After(s.batchDelay):
			}
		}

		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := s.embedGroup(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, batch...)
	}

	logger.With(logger.Fields{
		logger.FieldComponent: "embedding",
	}).WithCount(len(embeddings)).Debug(ctx, "generated embeddings in %d batches",
		(len(texts)+s.batchSize-1)/s.batchSize)

	return embeddings, nil
}

func (s *EmbeddingService) embedGroup(ctx context.Context, texts []string) ([][]float32, error) {
	req := embeddingRequest{
		Model:      s.model,
		Input:      texts,
		Dimensions: s.dimensions,
	}

	var resp embeddingResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(s.baseURL + "/embeddings")

	if err != nil {
		return nil, domain.NewUpstreamError("embedding", err)
	}

	if httpResp.StatusCode() != 200 {
		if resp.Error.Message != "" {
			return nil, domain.NewUpstreamError("embedding", fmt.Errorf("provider error: %s", resp.Error.Message))
		}
		return nil, domain.NewUpstreamError("embedding", fmt.Errorf("provider error: status %d", httpResp.StatusCode()))
	}

	// Every input must map to exactly one vector. A count mismatch is a hard
	// error, never silently truncated or padded.
	if len(resp.Data) != len(texts) {
		return nil, domain.NewUpstreamError("embedding",
			fmt.Errorf("unexpected number of embeddings: got %d, expected %d", len(resp.Data), len(texts)))
	}

	// Sort by index to ensure correct order
	embeddings := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(embeddings) {
			return nil, domain.NewUpstreamError("embedding",
				fmt.Errorf("embedding index %d out of range", item.Index))
		}
		embeddings[item.Index] = item.Embedding
	}

	return embeddings, nil
}
