// Package grader asks a completion service whether a free-text answer is right.
package grader

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/riddle-gift/internal/llm"
)

// DefaultToken is the word a correct verdict starts with.
const DefaultToken = "CORRECTO"

// Request is one answer to grade.
type Request struct {
	Question      string
	CorrectAnswer string
	UserAnswer    string
}

// Verdict is the classified grading response.
type Verdict struct {
	Correct  bool   `json:"correct"`
	Feedback string `json:"feedback"`
}

// Config tunes the grading prompt and call.
type Config struct {
	PlayerName   string
	SuccessToken string
	Temperature  float32
	MaxTokens    int
}

// Grader grades answers against the canonical answer.
type Grader struct {
	completer llm.Completer
	cfg       Config
	logger    zerolog.Logger
}

// New builds a Grader, filling zero config fields with defaults.
func New(completer llm.Completer, cfg Config, logger zerolog.Logger) *Grader {
	if cfg.SuccessToken == "" {
		cfg.SuccessToken = DefaultToken
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 150
	}
	return &Grader{
		completer: completer,
		cfg:       cfg,
		logger:    logger.With().Str("component", "grader").Logger(),
	}
}

// Grade sends the answer for evaluation. When onDelta is set the response
// is streamed through it; the verdict is classified on the full text.
func (g *Grader) Grade(ctx context.Context, req Request, onDelta llm.DeltaFunc) (Verdict, error) {
	prompt := BuildPrompt(g.cfg.PlayerName, g.cfg.SuccessToken, req)
	text, err := llm.Run(ctx, g.completer, llm.System(prompt, g.cfg.Temperature, g.cfg.MaxTokens), onDelta)
	if err != nil {
		return Verdict{}, fmt.Errorf("grade answer: %w", err)
	}

	verdict := Verdict{
		Correct:  Classify(text, g.cfg.SuccessToken),
		Feedback: strings.TrimSpace(text),
	}
	g.logger.Debug().Bool("correct", verdict.Correct).Msg("answer graded")
	return verdict, nil
}

// Classify reports whether text opens with token as a whole word,
// ignoring case and anything before the first letter or digit, such as
// markdown, punctuation or emoji.
func Classify(text, token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}
	trimmed := strings.TrimLeftFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(trimmed) < len(token) || !strings.EqualFold(trimmed[:len(token)], token) {
		return false
	}
	next, _ := utf8.DecodeRuneInString(trimmed[len(token):])
	return next == utf8.RuneError || !(unicode.IsLetter(next) || unicode.IsDigit(next))
}
