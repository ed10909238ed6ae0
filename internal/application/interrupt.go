package application

import "sync/atomic"

// interruptFlag is owned by one listening cycle. It is raised at most once and
// read by the hotword detector's poll loop.
type interruptFlag struct {
	raised atomic.Bool
}

func (f *interruptFlag) raise() bool {
	return f.raised.CompareAndSwap(false, true)
}

func (f *interruptFlag) isRaised() bool {
	return f.raised.Load()
}
