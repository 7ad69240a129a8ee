package main

import (
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/antonkh/mafia-arena/internal/ai"
	"github.com/antonkh/mafia-arena/internal/bot"
	"github.com/antonkh/mafia-arena/internal/config"
	"github.com/antonkh/mafia-arena/internal/game"
	"github.com/antonkh/mafia-arena/internal/handlers"
	"github.com/antonkh/mafia-arena/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger().Level(level)

	pool := buildPool(cfg, logger)
	gen := bot.NewGenerator(pool, newRNG(), cfg.GenerationTimeout, logger)
	sched := game.NewTimerScheduler()
	pacing := game.Pacing{
		NightStartDelay: cfg.NightStartDelay,
		BotActionDelay:  cfg.BotActionDelay,
		SpeakSeconds:    cfg.SpeakSeconds,
	}

	ctx := &handlers.Context{
		Rooms: store.NewRoomStore(newRNG()),
		Pool:  pool,
		NewSession: func(notif game.Notifier) *game.Session {
			rng := newRNG()
			registry := bot.NewRegistry(cfg.HistoryMaxTurns, rng)
			return game.NewSession(sched, gen, registry, notif, rng, pacing, logger)
		},
		Log: logger,
	}

	mux := http.NewServeMux()
	ctx.Register(mux)

	go logProviderStats(pool, cfg.StatsInterval, logger)

	logger.Info().Str("addr", cfg.Addr).Int("providers", pool.Len()).Msg("server starting")
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

// buildPool registers one provider per configured API key, Gemini first.
func buildPool(cfg config.Config, logger zerolog.Logger) *ai.Pool {
	pool := ai.NewPool(logger)
	for i, key := range cfg.GeminiAPIKeys {
		client := ai.NewGeminiClient(ai.ClientConfig{
			APIKey:     key,
			BaseURL:    cfg.GeminiBaseURL,
			Attempts:   cfg.RetryAttempts,
			RetryDelay: cfg.RetryDelay,
		}, logger)
		router := ai.NewRouter(client, cfg.GeminiModels, logger)
		pool.Add(fmt.Sprintf("gemini-%d", i+1), router, cfg.ErrorThreshold)
	}
	for i, key := range cfg.CohereAPIKeys {
		client := ai.NewCohereClient(ai.ClientConfig{
			APIKey:     key,
			BaseURL:    cfg.CohereBaseURL,
			Attempts:   cfg.RetryAttempts,
			RetryDelay: cfg.RetryDelay,
		}, logger)
		router := ai.NewRouter(client, cfg.CohereModels, logger)
		pool.Add(fmt.Sprintf("cohere-%d", i+1), router, cfg.ErrorThreshold)
	}
	return pool
}

// logProviderStats periodically reports provider health.
func logProviderStats(pool *ai.Pool, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		return
	}
	for range time.Tick(interval) {
		for _, s := range pool.Stats() {
			logger.Info().
				Str("provider", s.Name).
				Bool("enabled", s.Enabled).
				Int("errors", s.Errors).
				Int("threshold", s.Threshold).
				Msg("provider stats")
		}
	}
}

func newRNG() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
