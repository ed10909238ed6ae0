package application

import "errors"

var (
	// ErrCapture marks audio device failures. The session is aborted and not retried.
	ErrCapture = errors.New("audio capture failed")

	ErrTranscription = errors.New("transcription failed")
	ErrRespond       = errors.New("response failed")
	ErrHotword       = errors.New("hotword detection failed")

	ErrDeviceBusy    = errors.New("audio device busy")
	ErrLeaseReleased = errors.New("audio device lease already released")
)
