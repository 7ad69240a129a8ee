package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full server configuration, loaded from the environment
// with an optional .env file on top.
type Config struct {
	Addr  string `env:"ADDR" envDefault:":8080"`
	Debug bool   `env:"DEBUG"`

	GeminiAPIKeys []string `env:"GEMINI_API_KEYS" envSeparator:","`
	GeminiBaseURL string   `env:"GEMINI_BASE_URL"`
	GeminiModels  []string `env:"GEMINI_MODELS" envSeparator:"," envDefault:"gemini-2.0-flash,gemini-1.5-flash,gemini-1.5-flash-8b"`

	CohereAPIKeys []string `env:"COHERE_API_KEYS" envSeparator:","`
	CohereBaseURL string   `env:"COHERE_BASE_URL"`
	CohereModels  []string `env:"COHERE_MODELS" envSeparator:"," envDefault:"command-r-08-2024,command-r7b-12-2024"`

	RetryAttempts     int           `env:"RETRY_ATTEMPTS" envDefault:"3"`
	RetryDelay        time.Duration `env:"RETRY_DELAY" envDefault:"2s"`
	ErrorThreshold    int           `env:"PROVIDER_ERROR_THRESHOLD" envDefault:"3"`
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT" envDefault:"45s"`
	StatsInterval     time.Duration `env:"PROVIDER_STATS_INTERVAL" envDefault:"5m"`

	HistoryMaxTurns int `env:"HISTORY_MAX_TURNS" envDefault:"50"`

	NightStartDelay time.Duration `env:"NIGHT_START_DELAY" envDefault:"3s"`
	BotActionDelay  time.Duration `env:"BOT_ACTION_DELAY" envDefault:"4s"`
	SpeakSeconds    int           `env:"SPEAK_SECONDS" envDefault:"5"`
}

// Load reads .env (when present) and the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	if len(cfg.GeminiAPIKeys) == 0 && len(cfg.CohereAPIKeys) == 0 {
		return Config{}, fmt.Errorf("no provider API keys configured (set GEMINI_API_KEYS or COHERE_API_KEYS)")
	}
	return cfg, nil
}
