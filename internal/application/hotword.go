package application

import "time"

// HotwordDetector listens for the wake phrase. Start blocks until it has
// called onDetected or interrupted reports true; interrupted is polled once
// per pollInterval. Terminate stops a running Start and may be called any
// number of times, from any goroutine.
type HotwordDetector interface {
	Start(onDetected func(), interrupted func() bool, pollInterval time.Duration) error
	Terminate()
}
