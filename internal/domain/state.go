package domain

type MicState int

const (
	StateIdle MicState = iota
	StatePassiveListening
	StateTriggered
	StateActiveListening
	StateProcessing
	StateSpeaking
)

func (s MicState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePassiveListening:
		return "passive_listening"
	case StateTriggered:
		return "triggered"
	case StateActiveListening:
		return "active_listening"
	case StateProcessing:
		return "processing"
	case StateSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}
