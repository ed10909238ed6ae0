package hotword

import (
	"bufio"
	"io"
	"log/slog"
)

// NewConsole returns a detector that fires once per line read from in.
// Lines read while a trigger is already pending are dropped.
func NewConsole(in io.Reader, logger *slog.Logger) *Remote {
	r := NewRemote(logger)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			if !r.Trigger() {
				logger.Debug("hotword already pending, line ignored")
			}
		}
		if err := scanner.Err(); err != nil {
			logger.Warn("console hotword input failed", "error", err)
		}
	}()
	return r
}
