package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"voice-mic/internal/application"
	"voice-mic/internal/domain"
)

const testFrameSize = 1024

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func constFrame(amplitude int16) domain.Frame {
	frame := make(domain.Frame, testFrameSize)
	for i := range frame {
		frame[i] = amplitude
	}
	return frame
}

func repeat(frame domain.Frame, n int) []domain.Frame {
	out := make([]domain.Frame, n)
	for i := range out {
		out[i] = frame
	}
	return out
}

// speechScript is 20 frames of speech followed by enough silence for the
// detector to stop on the 65th frame.
func speechScript() []domain.Frame {
	script := repeat(constFrame(1500), 20)
	return append(script, repeat(constFrame(0), 45)...)
}

type scriptInput struct {
	mu      sync.Mutex
	script  []domain.Frame
	fill    domain.Frame
	failAt  int
	readErr error
	openErr error
	onFrame func(n int)
	opened  int
	closed  int
}

func (s *scriptInput) Name() string { return "script" }

func (s *scriptInput) OpenCapture(_ application.AudioFormat, _ int) (application.CaptureStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.opened++
	return &scriptStream{in: s}, nil
}

func (s *scriptInput) counts() (opened, closed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened, s.closed
}

type scriptStream struct {
	in *scriptInput
	n  int
}

func (st *scriptStream) ReadFrame(ctx context.Context) (domain.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st.n++
	if st.in.onFrame != nil {
		st.in.onFrame(st.n)
	}
	if st.in.failAt == st.n {
		return nil, st.in.readErr
	}
	if st.n <= len(st.in.script) {
		return st.in.script[st.n-1], nil
	}
	if st.in.fill != nil {
		return st.in.fill, nil
	}
	return nil, io.EOF
}

func (st *scriptStream) Close() error {
	st.in.mu.Lock()
	defer st.in.mu.Unlock()
	st.in.closed++
	return nil
}

type fakeOutput struct {
	mu     sync.Mutex
	played []string
	err    error
}

func (f *fakeOutput) PlayFile(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, path)
	return f.err
}

func (f *fakeOutput) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.played...)
}

type memSink struct {
	mu      sync.Mutex
	path    string
	format  application.AudioFormat
	samples []int16
	writes  int
	err     error
}

func (m *memSink) WriteWaveform(path string, format application.AudioFormat, samples []int16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.path = path
	m.format = format
	m.samples = append([]int16(nil), samples...)
	m.writes++
	return nil
}

// fakeHotword detects after detectAfter polls; zero means never.
type fakeHotword struct {
	detectAfter    int
	startErr       error
	terminateDelay time.Duration

	once       sync.Once
	terminated chan struct{}
	started    chan struct{}
	returned   chan time.Time
	terminates atomic.Int32
}

func newFakeHotword(detectAfter int) *fakeHotword {
	return &fakeHotword{
		detectAfter: detectAfter,
		terminated:  make(chan struct{}),
		started:     make(chan struct{}),
		returned:    make(chan time.Time, 1),
	}
}

func (f *fakeHotword) Start(onDetected func(), interrupted func() bool, poll time.Duration) error {
	close(f.started)
	defer func() { f.returned <- time.Now() }()

	if f.startErr != nil {
		return f.startErr
	}

	for i := 1; ; i++ {
		if interrupted() {
			return nil
		}
		select {
		case <-f.terminated:
			return nil
		default:
		}
		if f.detectAfter > 0 && i >= f.detectAfter {
			onDetected()
			return nil
		}
		time.Sleep(poll)
	}
}

func (f *fakeHotword) Terminate() {
	time.Sleep(f.terminateDelay)
	f.terminates.Add(1)
	f.once.Do(func() { close(f.terminated) })
}

type fakeSTT struct {
	mu    sync.Mutex
	text  string
	err   error
	paths []string
}

func (f *fakeSTT) Transcribe(_ context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	return f.text, f.err
}

func (f *fakeSTT) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.paths)
}

type fakeTTS struct {
	cached bool
	path   string
	err    error
	calls  atomic.Int32
}

func (f *fakeTTS) Synthesize(_ context.Context, _ string) (bool, string, error) {
	f.calls.Add(1)
	return f.cached, f.path, f.err
}

type recordingIndicator struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingIndicator) add(c string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *recordingIndicator) Wakeup() { r.add("wakeup") }
func (r *recordingIndicator) Listen() { r.add("listen") }
func (r *recordingIndicator) Think()  { r.add("think") }
func (r *recordingIndicator) Off()    { r.add("off") }

type panickingIndicator struct{}

func (panickingIndicator) Wakeup() { panic("led bus error") }
func (panickingIndicator) Listen() { panic("led bus error") }
func (panickingIndicator) Think()  { panic("led bus error") }
func (panickingIndicator) Off()    { panic("led bus error") }

type logEntry struct {
	speaker domain.Speaker
	text    string
}

type recordingLog struct {
	mu      sync.Mutex
	entries []logEntry
}

func (r *recordingLog) Record(_ context.Context, speaker domain.Speaker, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, logEntry{speaker: speaker, text: text})
}

type panickingLog struct{}

func (panickingLog) Record(_ context.Context, _ domain.Speaker, _ string) {
	panic("log sink down")
}

type funcResponder func(ctx context.Context, transcript string) (string, error)

func (f funcResponder) Respond(ctx context.Context, transcript string) (string, error) {
	return f(ctx, transcript)
}

var errDevice = errors.New("input overflow")
