package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/replyt/replyt/internal/domain"
	"github.com/replyt/replyt/internal/logger"
	"github.com/replyt/replyt/internal/prompts"
)

const (
	defaultInsightBaseURL = "https://api.openai.com/v1"

	// FallbackLabel fills in for clusters the provider forgot to label.
	FallbackLabel      = "Untitled Topic"
	fallbackVideoIdea  = "Follow-up video on this topic"
	fallbackPinnedText = "Thanks for the feedback, we're looking into this!"
)

// ClusterInsight is the provider's take on one cluster.
type ClusterInsight struct {
	Label                string
	VideoIdea            string
	SuggestedPinnedReply string
}

// ReplyCandidate is one high-engagement comment offered for reply suggestion.
type ReplyCandidate struct {
	CommentID    string
	Text         string
	LikeCount    int64
	ClusterLabel string
}

// ReplySuggestion links back to a ReplyCandidate by its position in the
// input list.
type ReplySuggestion struct {
	CandidateIndex int
	Reason         string
	SuggestedReply string
	PriorityScore  int
}

// InsightService generates cluster insights and reply suggestions through an
// OpenAI-compatible chat completions API with JSON response mode.
type InsightService struct {
	client   *resty.Client
	model    string
	endpoint string
}

// InsightServiceConfig holds configuration for the insight service.
type InsightServiceConfig struct {
	Model   string
	APIKey  string
	BaseURL string
}

// NewInsightService creates a new insight service.
func NewInsightService(cfg *InsightServiceConfig) *InsightService {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(60 * time.Second)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultInsightBaseURL
	}

	return &InsightService{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Temperature    float32         `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ClusterForInsight carries the cluster fields the provider sees.
type ClusterForInsight struct {
	ID          string
	MemberCount int
	TotalLikes  int64
	Examples    []string
}

type insightPayload struct {
	Clusters []struct {
		ClusterID            string `json:"clusterId"`
		Label                string `json:"label"`
		VideoIdea            string `json:"videoIdea"`
		SuggestedPinnedReply string `json:"suggestedPinnedReply"`
	} `json:"clusters"`
}

// GenerateClusterInsights asks the provider for a label, a video idea and a
// pinned reply per cluster. The result map is keyed by the input cluster ids;
// ids the provider omitted get fallback values per field. A response with no
// parseable mapping at all is a stage failure.
func (s *InsightService) GenerateClusterInsights(ctx context.Context, clusters []ClusterForInsight, channelName string, recentVideoTitles []string) (map[string]ClusterInsight, error) {
	contextBlock := ""
	if len(recentVideoTitles) > 0 {
		var b strings.Builder
		b.WriteString(prompts.RecentVideosContextHeader)
		for _, title := range recentVideoTitles {
			b.WriteString("\n- ")
			b.WriteString(title)
		}
		b.WriteString("\n")
		contextBlock = b.String()
	}

	var clusterBlock strings.Builder
	for _, c := range clusters {
		fmt.Fprintf(&clusterBlock, "\nID: %s (%d comments, %d likes):\n", c.ID, c.MemberCount, c.TotalLikes)
		for _, example := range c.Examples {
			fmt.Fprintf(&clusterBlock, "  - %q\n", example)
		}
	}

	prompt := fmt.Sprintf(prompts.ClusterInsightsHeader,
		channelName, contextBlock, len(clusters), clusterBlock.String())

	content, err := s.completeJSON(ctx, prompts.InsightSystemPrompt, prompt, 0.4)
	if err != nil {
		return nil, domain.NewUpstreamError("insight", err)
	}

	var payload insightPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, domain.NewUpstreamError("insight", fmt.Errorf("unparseable response: %w", err))
	}
	if len(payload.Clusters) == 0 {
		return nil, domain.NewUpstreamError("insight", fmt.Errorf("response contains no cluster mapping"))
	}

	byID := make(map[string]ClusterInsight, len(payload.Clusters))
	for _, item := range payload.Clusters {
		byID[item.ClusterID] = ClusterInsight{
			Label:                item.Label,
			VideoIdea:            item.VideoIdea,
			SuggestedPinnedReply: item.SuggestedPinnedReply,
		}
	}

	// Fill fallbacks for ids the provider dropped or left blank, so one
	// flaky answer doesn't fail the whole stage.
	insights := make(map[string]ClusterInsight, len(clusters))
	for _, c := range clusters {
		insight, ok := byID[c.ID]
		if !ok {
			logger.With(logger.Fields{
				logger.FieldComponent: "insight",
			}).Warn(ctx, "provider omitted cluster %s, using fallbacks", c.ID)
		}
		if insight.Label == "" {
			insight.Label = FallbackLabel
		}
		if insight.VideoIdea == "" {
			insight.VideoIdea = fallbackVideoIdea
		}
		if insight.SuggestedPinnedReply == "" {
			insight.SuggestedPinnedReply = fallbackPinnedText
		}
		insights[c.ID] = insight
	}

	return insights, nil
}

type replyPayload struct {
	Replies []struct {
		CommentID      int    `json:"commentId"`
		Reason         string `json:"reason"`
		SuggestedReply string `json:"suggestedReply"`
		PriorityScore  int    `json:"priorityScore"`
	} `json:"replies"`
}

// GenerateReplySuggestions asks the provider which candidates deserve a
// personal reply. Returned indexes outside [0, len(candidates)) are dropped
// rather than dereferenced.
func (s *InsightService) GenerateReplySuggestions(ctx context.Context, candidates []ReplyCandidate, channelName string) ([]ReplySuggestion, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	var commentBlock strings.Builder
	for i, c := range candidates {
		if i > 0 {
			commentBlock.WriteString("\n\n")
		}
		label := c.ClusterLabel
		if label == "" {
			label = "General"
		}
		fmt.Fprintf(&commentBlock, "ID: %d\nText: %q\nTopic: %s", i, c.Text, label)
	}

	prompt := fmt.Sprintf(prompts.ReplySuggestionsHeader, channelName, commentBlock.String())

	content, err := s.completeJSON(ctx, prompts.ReplySystemPrompt, prompt, 0)
	if err != nil {
		return nil, domain.NewUpstreamError("reply suggestions", err)
	}

	var payload replyPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, domain.NewUpstreamError("reply suggestions", fmt.Errorf("unparseable response: %w", err))
	}

	suggestions := make([]ReplySuggestion, 0, len(payload.Replies))
	for _, item := range payload.Replies {
		if item.CommentID < 0 || item.CommentID >= len(candidates) {
			logger.With(logger.Fields{
				logger.FieldComponent: "insight",
			}).Warn(ctx, "discarding reply suggestion with out-of-range index %d", item.CommentID)
			continue
		}
		suggestions = append(suggestions, ReplySuggestion{
			CandidateIndex: item.CommentID,
			Reason:         item.Reason,
			SuggestedReply: item.SuggestedReply,
			PriorityScore:  item.PriorityScore,
		})
	}

	return suggestions, nil
}

func (s *InsightService) completeJSON(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error) {
	req := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
		Temperature:    temperature,
	}

	var resp chatResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(s.endpoint)

	if err != nil {
		return "", fmt.Errorf("chat completion call failed: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		if resp.Error != nil {
			return "", fmt.Errorf("chat completion error: %s", resp.Error.Message)
		}
		return "", fmt.Errorf("chat completion error: status %d", httpResp.StatusCode())
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("chat completion returned no content")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
