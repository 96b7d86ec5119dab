package service

import (
	"context"

	"github.com/rs/zerolog/log"
)

// NonCritical runs a secondary effect attached to a primary mutation. Its
// failure is logged and dropped; the primary result never depends on it.
func NonCritical(ctx context.Context, name string, fn func(ctx context.Context) error) {
	if err := fn(ctx); err != nil {
		log.Warn().Err(err).Str("effect", name).Msg("non-critical effect failed")
	}
}
