package ai

import (
	"context"

	"github.com/rs/zerolog"
)

// Router tries a provider's models in order until one answers.
type Router struct {
	client Invoker
	models []string
	log    zerolog.Logger
}

// NewRouter creates a router over the given ordered model list.
func NewRouter(client Invoker, models []string, log zerolog.Logger) *Router {
	return &Router{client: client, models: models, log: log}
}

// Send invokes each model in order and returns the first success together
// with the model that produced it. If every model fails the per-model errors
// are aggregated into an AllModelsFailedError.
func (r *Router) Send(ctx context.Context, conversation []Turn) (*Response, string, error) {
	if len(r.models) == 0 {
		return nil, "", &AllModelsFailedError{}
	}
	var failures []ModelError
	for _, model := range r.models {
		resp, err := r.client.Invoke(ctx, model, conversation)
		if err == nil {
			return resp, model, nil
		}
		r.log.Warn().Str("model", model).Err(err).Msg("model failed, falling back to next")
		failures = append(failures, ModelError{Model: model, Err: err})
	}
	return nil, "", &AllModelsFailedError{Errors: failures}
}
