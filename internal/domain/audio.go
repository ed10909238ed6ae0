package domain

// Frame is one fixed-size chunk of mono signed 16-bit samples.
type Frame []int16

// Clone returns a copy that does not alias the capture buffer.
func (f Frame) Clone() Frame {
	out := make(Frame, len(f))
	copy(out, f)
	return out
}

type StopReason string

const (
	StopReasonNone    StopReason = ""
	StopReasonSilence StopReason = "silence"
	StopReasonTimeout StopReason = "timeout"
)
