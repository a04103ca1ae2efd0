package rates

import (
	"context"
	"time"

	"github.com/GriffinCanCode/zentat/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zentat/internal/infrastructure/resilience"
)

// Guarded wraps a source with a circuit breaker and refresh metrics. While
// the breaker is open the source fails fast and Fetch moves on to the next.
type Guarded struct {
	Source
	breaker *resilience.Breaker
	metrics *monitoring.Metrics
}

// Guard wraps each source with its own breaker. It opens after three
// consecutive failures and allows a trial call after cooldown.
func Guard(sources []Source, cooldown time.Duration, metrics *monitoring.Metrics) []Source {
	out := make([]Source, 0, len(sources))
	for _, s := range sources {
		out = append(out, &Guarded{
			Source: s,
			breaker: resilience.New(s.Name(), resilience.Settings{
				Timeout: cooldown,
				ReadyToTrip: func(c resilience.Counts) bool {
					return c.ConsecutiveFailures >= 3
				},
			}),
			metrics: metrics,
		})
	}
	return out
}

// Fetch calls the wrapped source through the breaker.
func (g *Guarded) Fetch(ctx context.Context) (Table, error) {
	timer := monitoring.NewTimer(g.metrics, g.Name())
	t, err := resilience.Do(ctx, g.breaker, g.Source.Fetch)
	switch {
	case err == nil:
		timer.Stop("success")
	case g.breaker.State() == resilience.StateOpen:
		timer.Stop("open")
	default:
		timer.Stop("error")
	}
	return t, err
}

// State reports the breaker state.
func (g *Guarded) State() resilience.State {
	return g.breaker.State()
}
