package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Progress backends.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendSupabase = "supabase"
)

// LLM providers.
const (
	ProviderAzure  = "azure"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"riddle-gift"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Game      Game
	Progress  Progress
	Postgres  Postgres
	Redis     Redis
	SQLite    SQLite
	Supabase  Supabase
	LLM       LLM
	Grader    Grader
	Assistant Assistant
	Security  Security
}

// Game groups gameplay settings.
type Game struct {
	CatalogPath  string `env:"CATALOG_PATH" envDefault:"configs/clues.yaml"`
	PlayerName   string `env:"PLAYER_NAME" envDefault:"Claude"`
	SuccessToken string `env:"SUCCESS_TOKEN" envDefault:"CORRECTO"`
}

// Progress selects where progress records are kept.
type Progress struct {
	Backend string        `env:"PROGRESS_BACKEND" envDefault:"file"`
	Dir     string        `env:"PROGRESS_DIR" envDefault:"data/progress"`
	TTL     time.Duration `env:"PROGRESS_TTL" envDefault:"720h"`
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER"`
	Password string `env:"PG_PASSWORD"`
	Database string `env:"PG_DATABASE"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// DSN renders a pgx keyword/value connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// Redis holds progress store and relay configuration. The relay runs
// whenever Addr is set.
type Redis struct {
	Addr         string `env:"REDIS_ADDR"`
	DB           int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize     int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
	RelayChannel string `env:"REDIS_RELAY_CHANNEL" envDefault:"riddle:events"`
}

// SQLite holds the embedded database location.
type SQLite struct {
	Path string `env:"SQLITE_PATH" envDefault:"data/riddle.db"`
}

// Supabase holds PostgREST credentials.
type Supabase struct {
	URL   string `env:"SUPABASE_URL"`
	Key   string `env:"SUPABASE_KEY"`
	Table string `env:"SUPABASE_TABLE" envDefault:"player_progress"`
}

// LLM configures the hosted completion service.
type LLM struct {
	Provider    string        `env:"LLM_PROVIDER" envDefault:"azure"`
	HTTPTimeout time.Duration `env:"LLM_HTTP_TIMEOUT" envDefault:"30s"`
	MaxRetries  uint          `env:"LLM_MAX_RETRIES" envDefault:"0"`

	AzureAPIKey     string `env:"AZURE_OPENAI_API_KEY"`
	AzureEndpoint   string `env:"AZURE_OPENAI_ENDPOINT"`
	AzureAPIVersion string `env:"OPENAI_API_VERSION" envDefault:"2024-06-01"`
	AzureDeployment string `env:"AZURE_OPENAI_DEPLOYMENT_NAME"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
}

// Grader tunes answer grading calls.
type Grader struct {
	Temperature float32 `env:"GRADER_TEMPERATURE" envDefault:"0.7"`
	MaxTokens   int     `env:"GRADER_MAX_TOKENS" envDefault:"150"`
}

// Assistant tunes hint assistant calls.
type Assistant struct {
	Temperature float32 `env:"ASSISTANT_TEMPERATURE" envDefault:"0.9"`
	MaxTokens   int     `env:"ASSISTANT_MAX_TOKENS" envDefault:"500"`
}

// Security stores secrets for signing session tokens and the browser
// origins allowed to open the game WebSocket besides the API's own host.
type Security struct {
	SessionSecret  string        `env:"SESSION_SECRET"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	SecureCookie   bool          `env:"SESSION_SECURE_COOKIE" envDefault:"false"`
	AllowedOrigins []string      `env:"WS_ALLOWED_ORIGINS" envSeparator:","`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *App) validate() error {
	switch a.Progress.Backend {
	case BackendFile, BackendMemory, BackendRedis, BackendPostgres, BackendSQLite, BackendSupabase:
	default:
		return fmt.Errorf("unknown PROGRESS_BACKEND %q", a.Progress.Backend)
	}
	switch a.LLM.Provider {
	case ProviderAzure, ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", a.LLM.Provider)
	}
	return nil
}

// RequireCredentials reports missing credentials for the selected provider.
func (l LLM) RequireCredentials() error {
	switch l.Provider {
	case ProviderAzure:
		if l.AzureAPIKey == "" || l.AzureEndpoint == "" || l.AzureDeployment == "" {
			return fmt.Errorf("AZURE_OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_DEPLOYMENT_NAME must be configured")
		}
	case ProviderOpenAI:
		if l.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY must be configured")
		}
	case ProviderGemini:
		if l.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY must be configured")
		}
	}
	return nil
}
