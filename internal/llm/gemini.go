package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiClient serves completions from a Google Gemini model.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger zerolog.Logger
}

// NewGeminiClient dials the Generative Language API with an API key.
func NewGeminiClient(ctx context.Context, apiKey, model string, logger zerolog.Logger) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{
		client: client,
		model:  model,
		logger: logger.With().Str("component", "llm_gemini").Str("model", model).Logger(),
	}, nil
}

// Close releases the underlying gRPC connection.
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// generativeModel maps system messages onto the system instruction and
// returns the remaining messages as prompt parts.
func (g *GeminiClient) generativeModel(req Request) (*genai.GenerativeModel, []genai.Part) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	var system []genai.Part
	var parts []genai.Part
	for _, msg := range req.Messages {
		if msg.Role == RoleSystem {
			system = append(system, genai.Text(msg.Content))
			continue
		}
		parts = append(parts, genai.Text(msg.Content))
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{Parts: system}
	}
	if len(parts) == 0 {
		// Gemini rejects an empty turn; a system-only prompt is sent as the user turn.
		model.SystemInstruction = nil
		parts = system
	}
	return model, parts
}

func (g *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	model, parts := g.generativeModel(req)
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func (g *GeminiClient) Stream(ctx context.Context, req Request, onDelta DeltaFunc) (string, error) {
	model, parts := g.generativeModel(req)
	iter := model.GenerateContentStream(ctx, parts...)

	var sb strings.Builder
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return sb.String(), fmt.Errorf("gemini stream: %w", err)
		}
		delta := responseText(resp)
		if delta == "" {
			continue
		}
		sb.WriteString(delta)
		if err := onDelta(delta); err != nil {
			return sb.String(), err
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyCompletion
	}
	return sb.String(), nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	var text string
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				text += string(txt)
			}
		}
	}
	return text
}
