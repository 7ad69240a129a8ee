package ai

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultErrorThreshold disables a provider after this many consecutive
// failures.
const DefaultErrorThreshold = 3

type provider struct {
	name      string
	router    *Router
	enabled   bool
	errors    int
	threshold int
}

// ProviderStats is the administrative view of one provider's health.
type ProviderStats struct {
	Name      string `json:"name"`
	Enabled   bool   `json:"enabled"`
	Errors    int    `json:"errorCount"`
	Threshold int    `json:"maxErrors"`
}

// Pool routes a generation request to the first enabled provider, falling
// through on failure. A provider that fails threshold times in a row is
// disabled until an administrative reset or enable.
type Pool struct {
	mu        sync.Mutex
	providers []*provider
	log       zerolog.Logger
}

// NewPool creates an empty provider pool.
func NewPool(log zerolog.Logger) *Pool {
	return &Pool{log: log.With().Str("component", "ai-pool").Logger()}
}

// Add appends a provider to the fallback order. A threshold <= 0 uses
// DefaultErrorThreshold.
func (p *Pool) Add(name string, router *Router, threshold int) {
	if threshold <= 0 {
		threshold = DefaultErrorThreshold
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.providers = append(p.providers, &provider{
		name:      name,
		router:    router,
		enabled:   true,
		threshold: threshold,
	})
}

// Len returns the number of configured providers.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.providers)
}

// Send routes the conversation through the enabled providers in order and
// returns the first successful response plus the provider name that served
// it. Success resets that provider's error count; a failure increments it
// and disables the provider once the threshold is reached.
func (p *Pool) Send(ctx context.Context, conversation []Turn) (*Response, string, error) {
	p.mu.Lock()
	order := append([]*provider(nil), p.providers...)
	p.mu.Unlock()

	var lastErr error
	for _, prov := range order {
		if !p.isEnabled(prov) {
			continue
		}
		p.log.Debug().Str("provider", prov.name).Msg("using provider")
		resp, model, err := prov.router.Send(ctx, conversation)
		if err == nil {
			p.recordSuccess(prov)
			p.log.Debug().Str("provider", prov.name).Str("model", model).Msg("provider answered")
			return resp, prov.name, nil
		}
		lastErr = err
		p.recordFailure(prov, err)
	}
	return nil, "", &NoProviderError{Last: lastErr}
}

func (p *Pool) isEnabled(prov *provider) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return prov.enabled
}

func (p *Pool) recordSuccess(prov *provider) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prov.errors = 0
}

func (p *Pool) recordFailure(prov *provider, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prov.errors++
	p.log.Warn().Str("provider", prov.name).Int("errors", prov.errors).Err(err).Msg("provider failed")
	if prov.enabled && prov.errors >= prov.threshold {
		prov.enabled = false
		p.log.Error().Str("provider", prov.name).Msg("provider disabled after repeated failures")
	}
}

// Stats returns a snapshot of every provider's health in fallback order.
func (p *Pool) Stats() []ProviderStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	stats := make([]ProviderStats, 0, len(p.providers))
	for _, prov := range p.providers {
		stats = append(stats, ProviderStats{
			Name:      prov.name,
			Enabled:   prov.enabled,
			Errors:    prov.errors,
			Threshold: prov.threshold,
		})
	}
	return stats
}

// SetEnabled enables or disables a provider by name. Enabling also resets
// its error count. Returns false if no provider has that name.
func (p *Pool) SetEnabled(name string, enabled bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, prov := range p.providers {
		if prov.name != name {
			continue
		}
		prov.enabled = enabled
		if enabled {
			prov.errors = 0
		}
		return true
	}
	return false
}

// ResetAll re-enables every provider and zeroes its error count.
func (p *Pool) ResetAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, prov := range p.providers {
		prov.enabled = true
		prov.errors = 0
	}
	p.log.Info().Msg("provider error counters reset")
}
