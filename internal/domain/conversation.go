package domain

type Speaker string

const (
	SpeakerUser   Speaker = "user"
	SpeakerDevice Speaker = "device"
)

// Provenance prefixes attached to conversation records.
const (
	ASRPrefix = "(ASR)"
	TTSPrefix = "(TTS)"
)
