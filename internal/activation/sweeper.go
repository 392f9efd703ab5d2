package activation

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Pruner removes expired records.
type Pruner interface {
	Prune(ctx context.Context) (int, error)
}

// Sweeper periodically prunes expired activations.
type Sweeper struct {
	interval time.Duration
	store    Pruner
	log      zerolog.Logger
}

// NewSweeper creates a Sweeper that prunes store every interval.
func NewSweeper(interval time.Duration, store Pruner, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		interval: interval,
		store:    store,
		log:      logger.With().Str("component", "sweeper").Logger(),
	}
}

// Run prunes on every tick until ctx is cancelled, then returns ctx.Err().
func (w *Sweeper) Run(ctx context.Context) error {
	w.log.Debug().Dur("interval", w.interval).Msg("starting activation sweeper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug().Msg("stopping activation sweeper")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.store.Prune(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("activation sweep failed")
			}
			if n > 0 {
				w.log.Info().Int("count", n).Msg("expired activations pruned")
			}
		}
	}
}
