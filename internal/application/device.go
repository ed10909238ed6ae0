package application

import (
	"context"
	"sync"

	"voice-mic/internal/domain"
)

// Device is the process-wide audio device. At most one DeviceLease exists at
// a time; every capture and playback goes through the current lease.
type Device struct {
	input  AudioInput
	output AudioOutput
	slot   chan struct{}
}

func NewDevice(input AudioInput, output AudioOutput) *Device {
	return &Device{
		input:  input,
		output: output,
		slot:   make(chan struct{}, 1),
	}
}

func (d *Device) Name() string {
	return d.input.Name()
}

// Acquire blocks until the device is free or ctx is done.
func (d *Device) Acquire(ctx context.Context) (*DeviceLease, error) {
	select {
	case d.slot <- struct{}{}:
		return &DeviceLease{device: d}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *Device) TryAcquire() (*DeviceLease, error) {
	select {
	case d.slot <- struct{}{}:
		return &DeviceLease{device: d}, nil
	default:
		return nil, ErrDeviceBusy
	}
}

// DeviceLease is exclusive ownership of the Device. Release closes any
// capture stream still open and frees the device; it is safe to call more
// than once.
type DeviceLease struct {
	device *Device

	mu       sync.Mutex
	released bool
	streams  []*leasedStream
}

func (l *DeviceLease) OpenCapture(format AudioFormat, frameSize int) (CaptureStream, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.released {
		return nil, ErrLeaseReleased
	}

	stream, err := l.device.input.OpenCapture(format, frameSize)
	if err != nil {
		return nil, err
	}

	ls := &leasedStream{stream: stream}
	l.streams = append(l.streams, ls)
	return ls, nil
}

func (l *DeviceLease) Play(ctx context.Context, path string) error {
	l.mu.Lock()
	released := l.released
	l.mu.Unlock()

	if released {
		return ErrLeaseReleased
	}
	return l.device.output.PlayFile(ctx, path)
}

func (l *DeviceLease) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.released {
		return
	}
	l.released = true

	for _, s := range l.streams {
		_ = s.Close()
	}
	l.streams = nil

	<-l.device.slot
}

type leasedStream struct {
	stream CaptureStream
	once   sync.Once
	err    error
}

func (s *leasedStream) ReadFrame(ctx context.Context) (domain.Frame, error) {
	return s.stream.ReadFrame(ctx)
}

func (s *leasedStream) Close() error {
	s.once.Do(func() {
		s.err = s.stream.Close()
	})
	return s.err
}
