// Package eventloop provides single-threaded cooperative scheduling.
//
// Loop owns one goroutine that runs posted tasks, per-frame callbacks and
// fixed-period callbacks in arrival order. Timers live on their own
// goroutines but only post work; they never touch loop-owned state.
//
// Manual implements the same Scheduler interface without goroutines or
// wall-clock time. Tests and one-shot conversions drive it explicitly:
//
//	m := eventloop.NewManual()
//	m.RequestFrame(flush)
//	m.RunFrames()           // runs flush
//	m.Tick(2 * time.Second) // fires intervals that became due
package eventloop
