// Package resilience provides a circuit breaker for upstream calls.
//
// States:
//   - Closed: calls pass through; failures are counted
//   - Open: calls fail fast with ErrCircuitOpen until Timeout passes
//   - Half-open: up to MaxRequests trial calls decide whether to close again
//
// The breaker never retries. Callers that want a fallback move on to the
// next upstream when a call is rejected.
//
// Example Usage:
//
//	b := resilience.New("coingecko", resilience.Settings{
//		Timeout: 5 * time.Minute,
//		ReadyToTrip: func(c resilience.Counts) bool {
//			return c.ConsecutiveFailures >= 3
//		},
//	})
//	table, err := resilience.Do(ctx, b, source.Fetch)
package resilience
