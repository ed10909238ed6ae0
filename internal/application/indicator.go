package application

// Indicator drives the visual feedback hardware. Calls are fire-and-forget:
// implementations must not block for long and report nothing back.
type Indicator interface {
	Wakeup()
	Listen()
	Think()
	Off()
}

type NoopIndicator struct{}

func (NoopIndicator) Wakeup() {}
func (NoopIndicator) Listen() {}
func (NoopIndicator) Think()  {}
func (NoopIndicator) Off()    {}
