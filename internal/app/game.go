package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/riddle-gift/internal/assistant"
	"github.com/gokatarajesh/riddle-gift/internal/catalog"
	"github.com/gokatarajesh/riddle-gift/internal/config"
	"github.com/gokatarajesh/riddle-gift/internal/game"
	"github.com/gokatarajesh/riddle-gift/internal/grader"
	"github.com/gokatarajesh/riddle-gift/internal/llm"
	"github.com/gokatarajesh/riddle-gift/internal/metrics"
	"github.com/gokatarajesh/riddle-gift/internal/progress"
)

// Game bundles the controller with the resources it owns.
type Game struct {
	Service *game.Service
	Store   progress.Store
	Metrics *metrics.Game

	closers []io.Closer
}

// Close releases the store and the completion client.
func (g *Game) Close() error {
	var errs []error
	for i := len(g.closers) - 1; i >= 0; i-- {
		if err := g.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewGame loads the catalog, connects the completion service and the
// progress store, and builds the controller. It is shared by the API and
// the terminal front end.
func NewGame(ctx context.Context, cfg *config.App, logger zerolog.Logger, reg prometheus.Registerer) (*Game, error) {
	cat, err := catalog.Load(cfg.Game.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", cfg.Game.CatalogPath, err)
	}
	logger.Info().Int("questions", len(cat.Questions)).Int("total", cat.Total()).Msg("catalog loaded")

	if err := cfg.LLM.RequireCredentials(); err != nil {
		return nil, err
	}
	completer, closer, err := newCompleter(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	g := &Game{closers: []io.Closer{closer}}

	store, err := progress.Open(ctx, cfg, logger)
	if err != nil {
		_ = g.Close()
		return nil, err
	}
	g.Store = store
	g.closers = append(g.closers, store)

	completer = llm.WithRetry(completer, cfg.LLM.MaxRetries, logger)
	answerGrader := grader.New(completer, grader.Config{
		PlayerName:   cfg.Game.PlayerName,
		SuccessToken: cfg.Game.SuccessToken,
		Temperature:  cfg.Grader.Temperature,
		MaxTokens:    cfg.Grader.MaxTokens,
	}, logger)
	hintAssistant := assistant.New(completer, assistant.Config{
		PlayerName:  cfg.Game.PlayerName,
		Temperature: cfg.Assistant.Temperature,
		MaxTokens:   cfg.Assistant.MaxTokens,
	}, logger)

	if reg != nil {
		g.Metrics = metrics.NewGame(reg)
	}
	g.Service = game.NewService(cat, store, answerGrader, hintAssistant, g.Metrics, logger)
	return g, nil
}

func newCompleter(ctx context.Context, cfg config.LLM, logger zerolog.Logger) (llm.Completer, io.Closer, error) {
	switch cfg.Provider {
	case config.ProviderAzure:
		client := llm.NewAzureClient(llm.AzureConfig{
			Endpoint:   cfg.AzureEndpoint,
			Deployment: cfg.AzureDeployment,
			APIVersion: cfg.AzureAPIVersion,
			APIKey:     cfg.AzureAPIKey,
			Timeout:    cfg.HTTPTimeout,
		}, logger)
		return client, client, nil
	case config.ProviderOpenAI:
		client := llm.NewOpenAIClient(llm.OpenAIConfig{
			BaseURL: cfg.OpenAIBaseURL,
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.HTTPTimeout,
		}, logger)
		return client, client, nil
	case config.ProviderGemini:
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	default:
		return nil, nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.Provider)
	}
}
