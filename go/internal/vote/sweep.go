package vote

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Sweeper runs the reconciliation sweep: once at startup and then on an
// interval, it re-runs the idempotent recompute over recent pending
// proposals to catch reaction events missed while offline.
type Sweeper struct {
	adjudicator      *Adjudicator
	clock            clockwork.Clock
	interval         time.Duration
	reminderInterval time.Duration
}

// NewSweeper creates a sweeper. interval defaults to one hour.
func NewSweeper(adjudicator *Adjudicator, clock clockwork.Clock, interval, reminderInterval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		adjudicator:      adjudicator,
		clock:            clock,
		interval:         interval,
		reminderInterval: reminderInterval,
	}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	log.Info().Dur("interval", s.interval).Msg("starting reconciliation sweeper")

	s.sweep(ctx)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("reconciliation sweeper stopped")
			return
		case <-ticker.Chan():
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if err := s.adjudicator.SweepOnce(ctx, s.reminderInterval); err != nil {
		log.Error().Err(err).Msg("reconciliation sweep failed")
	}
}
