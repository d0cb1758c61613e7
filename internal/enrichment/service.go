// Package enrichment fills in the catalog fields an ingested record
// lacks (translated name, description, pairing notes, flavor tags) by
// calling an OpenAI-compatible chat endpoint. The provider is opaque:
// JSON in, JSON out, no contract beyond the Fields shape.
package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kspirits/hub/internal/domain"
)

// Fields is the structured enrichment result.
type Fields struct {
	TranslatedName string   `json:"translatedName"`
	Description    string   `json:"description"`
	Pairing        string   `json:"pairing"`
	FlavorTags     []string `json:"flavorTags"`
}

// Enricher produces enrichment fields for a spirit.
type Enricher interface {
	Enrich(ctx context.Context, sp domain.Spirit) (Fields, error)
}

const systemPrompt = `You are a spirits sommelier. Given a bottling, reply with a single JSON object, no prose: {"translatedName": string, "description": string (2-3 sentences), "pairing": string (1 sentence), "flavorTags": [3-5 short strings]}.`

// Service is the chat-completion enrichment provider.
type Service struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// Config holds the enrichment provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewService creates an OpenAI-compatible enrichment provider.
func NewService(cfg Config) *Service {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: logger,
	}
}

// Enrich requests structured fields for one spirit.
func (s *Service) Enrich(ctx context.Context, sp domain.Spirit) (Fields, error) {
	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: describeSpirit(sp)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Fields{}, fmt.Errorf("enrichment request: %w: %w", domain.ErrEnrichmentUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return Fields{}, fmt.Errorf("empty enrichment response: %w", domain.ErrEnrichmentUnavailable)
	}

	var fields Fields
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		s.logger.Warn("unparseable enrichment response",
			zap.String("spirit_id", sp.ID), zap.String("content", content))
		return Fields{}, fmt.Errorf("parse enrichment response: %w: %w", domain.ErrEnrichmentUnavailable, err)
	}
	return fields, nil
}

// describeSpirit flattens the record into the user prompt.
func describeSpirit(sp domain.Spirit) string {
	parts := []string{"Name: " + sp.Name}
	if sp.Distillery != "" {
		parts = append(parts, "Distillery: "+sp.Distillery)
	}
	if sp.Category != "" {
		parts = append(parts, "Category: "+sp.Category)
	}
	if sp.Subcategory != "" {
		parts = append(parts, "Subcategory: "+sp.Subcategory)
	}
	if sp.Country != "" {
		parts = append(parts, "Country: "+sp.Country)
	}
	if sp.ABV > 0 {
		parts = append(parts, fmt.Sprintf("ABV: %.1f%%", sp.ABV))
	}
	return strings.Join(parts, "\n")
}
