// Package assistant implements "El Genio", the hint helper.
package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/riddle-gift/internal/llm"
)

// Request describes what the player has seen and, optionally, asked.
type Request struct {
	Question string
	Hints    []string
	// LastRevealed is the index of the last revealed hint, -1 when none.
	LastRevealed int
	Query        string
}

// Config tunes the assistant call.
type Config struct {
	PlayerName  string
	Temperature float32
	MaxTokens   int
}

// Assistant explains revealed hints and answers player questions.
type Assistant struct {
	completer llm.Completer
	cfg       Config
	logger    zerolog.Logger
}

func New(completer llm.Completer, cfg Config, logger zerolog.Logger) *Assistant {
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.9
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 500
	}
	return &Assistant{
		completer: completer,
		cfg:       cfg,
		logger:    logger.With().Str("component", "assistant").Logger(),
	}
}

// Assist returns the assistant reply, streaming it through onDelta when set.
func (a *Assistant) Assist(ctx context.Context, req Request, onDelta llm.DeltaFunc) (string, error) {
	prompt := BuildPrompt(a.cfg.PlayerName, req)
	text, err := llm.Run(ctx, a.completer, llm.System(prompt, a.cfg.Temperature, a.cfg.MaxTokens), onDelta)
	if err != nil {
		return "", fmt.Errorf("ask assistant: %w", err)
	}
	a.logger.Debug().
		Int("revealed", req.LastRevealed+1).
		Bool("query", strings.TrimSpace(req.Query) != "").
		Msg("assistant replied")
	return strings.TrimSpace(text), nil
}
