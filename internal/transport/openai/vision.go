package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"sort"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/picdex/internal/domain"
	"github.com/kailas-cloud/picdex/internal/imaging"
	"github.com/kailas-cloud/picdex/internal/metrics"
)

const (
	ocrPrompt = "Transcribe all legible text in this image exactly as written. " +
		"Reply with the text only. Reply with an empty message if there is no text."
	tagPrompt = "List what this image shows as short lowercase labels. " +
		`Reply with JSON: {"labels":[{"label":"cat","confidence":0.92}]}.`
)

// VisionConfig holds chat-completions settings for OCR and tagging.
type VisionConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	Provider          string
	RequestsPerSecond float64 // 0 = unlimited
	Threshold         float64 // minimum label confidence
	MaxTags           int
	Logger            *zap.Logger
}

// VisionAnalyzer runs OCR and tagging through a multimodal chat model.
// It implements domain.TextExtractor and domain.Tagger.
type VisionAnalyzer struct {
	client    *openai.Client
	model     string
	provider  string
	limiter   *rate.Limiter
	threshold float64
	maxTags   int
	logger    *zap.Logger
}

// NewVisionAnalyzer creates a rate-limited OCR and tagging client.
func NewVisionAnalyzer(cfg *VisionConfig) *VisionAnalyzer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &VisionAnalyzer{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		provider:  cfg.Provider,
		limiter:   rate.NewLimiter(limit, 1),
		threshold: cfg.Threshold,
		maxTags:   cfg.MaxTags,
		logger:    logger,
	}
}

// ExtractText implements domain.TextExtractor.
func (a *VisionAnalyzer) ExtractText(ctx context.Context, img image.Image) (string, error) {
	out, err := a.ask(ctx, "ocr", ocrPrompt, img, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Tags implements domain.Tagger. Labels below the confidence threshold are dropped.
func (a *VisionAnalyzer) Tags(ctx context.Context, img image.Image) ([]string, error) {
	out, err := a.ask(ctx, "tags", tagPrompt, img, &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	})
	if err != nil {
		return nil, err
	}
	return parseLabels(out, a.threshold, a.maxTags)
}

func (a *VisionAnalyzer) ask(
	ctx context.Context, task, prompt string, img image.Image,
	format *openai.ChatCompletionResponseFormat,
) (string, error) {
	uri, err := imaging.DataURI(img)
	if err != nil {
		return "", fmt.Errorf("%s: %w", task, err)
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%s: rate limiter: %w", task, err)
	}

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    uri,
					Detail: openai.ImageURLDetailAuto,
				}},
			},
		}},
		ResponseFormat: format,
		Temperature:    0,
	})
	if err != nil {
		metrics.VisionRequestsTotal.WithLabelValues(task, a.model, "error").Inc()
		return "", fmt.Errorf("%s: %w", task, parseAPIError(err))
	}
	if len(resp.Choices) == 0 {
		metrics.VisionRequestsTotal.WithLabelValues(task, a.model, "error").Inc()
		return "", fmt.Errorf("%s: empty completion: %w", task, domain.ErrEmbeddingProviderError)
	}

	metrics.VisionRequestsTotal.WithLabelValues(task, a.model, "success").Inc()
	domain.UsageFromContext(ctx).Record(resp.Usage.TotalTokens)
	a.logger.Debug("vision request",
		zap.String("task", task),
		zap.Duration("took", time.Since(start)),
		zap.Int("tokens", resp.Usage.TotalTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

type labelResponse struct {
	Labels []struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	} `json:"labels"`
}

// parseLabels keeps labels at or above threshold, ordered by confidence.
func parseLabels(raw string, threshold float64, maxTags int) ([]string, error) {
	var parsed labelResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse labels: %w", err)
	}
	sort.SliceStable(parsed.Labels, func(i, j int) bool {
		return parsed.Labels[i].Confidence > parsed.Labels[j].Confidence
	})

	seen := make(map[string]bool, len(parsed.Labels))
	var tags []string
	for _, l := range parsed.Labels {
		label := strings.ToLower(strings.TrimSpace(l.Label))
		if label == "" || l.Confidence < threshold || seen[label] {
			continue
		}
		seen[label] = true
		tags = append(tags, label)
		if maxTags > 0 && len(tags) == maxTags {
			break
		}
	}
	return tags, nil
}
