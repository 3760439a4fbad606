package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/reservapr/booking-api/internal/service/recurring"
	"github.com/reservapr/booking-api/pkg/metrics"
)

// Expander is the slice of the recurring service the sweep needs.
type Expander interface {
	ExpandAll(ctx context.Context, horizonDays int) (recurring.ExpandStats, error)
}

// RecurringExpander periodically materializes upcoming occurrences of
// active recurring series inside the booking horizon.
type RecurringExpander struct {
	expander    Expander
	interval    time.Duration
	horizonDays int
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

func NewRecurringExpander(
	expander Expander,
	interval time.Duration,
	horizonDays int,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *RecurringExpander {
	if interval <= 0 {
		panic("interval must be greater than 0")
	}
	if horizonDays <= 0 {
		panic("horizonDays must be greater than 0")
	}

	return &RecurringExpander{
		expander:    expander,
		interval:    interval,
		horizonDays: horizonDays,
		logger:      logger.With().Str("component", "recurring_expander").Logger(),
		metrics:     metrics,
	}
}

func (e *RecurringExpander) Start(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.logger.Info().
		Dur("interval", e.interval).
		Int("horizon_days", e.horizonDays).
		Msg("starting recurring expander")

	// Run one sweep immediately so a restart does not delay generation
	// by a full interval.
	e.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("shutting down recurring expander")
			return
		case <-ticker.C:
			e.sweep(ctx)
		}
	}
}

func (e *RecurringExpander) sweep(ctx context.Context) {
	e.metrics.ExpanderRuns.Inc()

	stats, err := e.expander.ExpandAll(ctx, e.horizonDays)
	if err != nil {
		e.logger.Error().Err(err).Msg("expander sweep failed")
		return
	}

	e.metrics.OccurrencesGenerated.Add(float64(stats.Generated))
	e.metrics.OccurrencesSkipped.Add(float64(stats.Skipped))

	e.logger.Info().
		Int("generated", stats.Generated).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Msg("expander sweep finished")
}
