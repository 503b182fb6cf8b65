package pipeline

import (
	"context"
	"time"
)

// Watch re-runs the batch pass on a fixed polling interval until ctx is
// cancelled. Each pass is independent and self-contained; the only state
// carried across passes is the ledger and the archived filesystem layout.
// Cancellation is observed between passes, never mid-batch.
func (p *Pipeline) Watch(ctx context.Context, interval time.Duration) error {
	if _, err := p.Run(ctx); err != nil {
		p.log.Error().Err(err).Msg("batch pass failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.Run(ctx); err != nil {
				p.log.Error().Err(err).Msg("batch pass failed")
			}
		}
	}
}
