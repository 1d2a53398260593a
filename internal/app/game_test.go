package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/riddle-gift/internal/config"
)

func exampleCatalog(t *testing.T) string {
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "configs", "clues.example.yaml")
}

func fakeCompletionServer(t *testing.T, reply string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL string) *config.App {
	t.Setenv("CATALOG_PATH", exampleCatalog(t))
	t.Setenv("PROGRESS_BACKEND", config.BackendMemory)
	t.Setenv("LLM_PROVIDER", config.ProviderOpenAI)
	t.Setenv("OPENAI_API_KEY", "test")
	t.Setenv("OPENAI_BASE_URL", baseURL)
	cfg, err := config.Load(context.Background())
	require.NoError(t, err)
	return cfg
}

func TestNewGamePlaysAgainstExampleCatalog(t *testing.T) {
	srv := fakeCompletionServer(t, "CORRECTO ¡Muy bien!")
	cfg := testConfig(t, srv.URL)

	g, err := NewGame(context.Background(), cfg, zerolog.Nop(), prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })

	view, err := g.Service.State(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, view.Total)

	outcome, err := g.Service.SubmitAnswer(context.Background(), "p1", "un reloj", nil)
	require.NoError(t, err)
	assert.True(t, outcome.Correct)
	assert.Equal(t, 2, outcome.View.Position)
	require.NotNil(t, g.Metrics)
}

func TestNewGameRequiresCredentials(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0")
	cfg.LLM.OpenAIAPIKey = ""

	_, err := NewGame(context.Background(), cfg, zerolog.Nop(), nil)
	assert.ErrorContains(t, err, "OPENAI_API_KEY")
}

func TestNewGameMissingCatalog(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0")
	cfg.Game.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := NewGame(context.Background(), cfg, zerolog.Nop(), nil)
	assert.ErrorContains(t, err, "load catalog")
}

func TestNewRequiresSessionSecret(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0")
	cfg.Security.SessionSecret = ""

	_, err := New(context.Background(), cfg)
	assert.ErrorContains(t, err, "SESSION_SECRET")
}
