// Package hotword provides wake-phrase detectors that trigger on external
// events: an HTTP request, a keypress on a terminal, a line on a pipe.
package hotword

import (
	"fmt"
	"log/slog"
	"time"
)

// Remote is a detector fed by Trigger. One trigger may be pending at a time;
// a trigger that arrives while no listen is running fires the next one.
type Remote struct {
	logger   *slog.Logger
	triggers chan struct{}
	stop     chan struct{}
}

func NewRemote(logger *slog.Logger) *Remote {
	return &Remote{
		logger:   logger,
		triggers: make(chan struct{}, 1),
		stop:     make(chan struct{}, 1),
	}
}

// Trigger queues a detection. It reports false when one is already pending.
func (r *Remote) Trigger() bool {
	select {
	case r.triggers <- struct{}{}:
		return true
	default:
		return false
	}
}

func (r *Remote) Start(onDetected func(), interrupted func() bool, pollInterval time.Duration) error {
	if pollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", pollInterval)
	}

	// a stop left over from the previous listen must not end this one
	select {
	case <-r.stop:
	default:
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if interrupted() {
			return nil
		}
		select {
		case <-r.triggers:
			r.logger.Debug("hotword triggered")
			onDetected()
			return nil
		case <-r.stop:
			return nil
		case <-ticker.C:
		}
	}
}

func (r *Remote) Terminate() {
	select {
	case r.stop <- struct{}{}:
	default:
	}
}
