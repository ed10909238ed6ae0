package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"voice-mic/internal/domain"
	"voice-mic/internal/observe"
)

const (
	defaultPollInterval = 30 * time.Millisecond
	errorBackoff        = time.Second
)

type MicConfig struct {
	// Name prefixes console output when a phrase cannot be spoken.
	Name string
	// WakeCue is played when the hotword is detected.
	WakeCue      string
	PollInterval time.Duration
	// Continuous keeps Run cycling back to passive listening.
	Continuous bool
}

type MicOptions struct {
	Config    MicConfig
	Device    *Device
	Session   *RecordingSession
	Playback  *Playback
	Hotword   HotwordDetector
	STT       SpeechToText
	TTS       TextToSpeech
	Responder Responder
	Indicator Indicator
	Log       ConversationLog
	Console   io.Writer
	Logger    *slog.Logger
	Metrics   *observe.Metrics
}

// Mic is the state machine that arbitrates the audio device between hotword
// listening, command recording and speech playback. State is only changed by
// the Mic itself.
type Mic struct {
	cfg       MicConfig
	device    *Device
	session   *RecordingSession
	playback  *Playback
	hotword   HotwordDetector
	stt       SpeechToText
	tts       TextToSpeech
	responder Responder
	indicator Indicator
	convo     ConversationLog
	console   io.Writer
	logger    *slog.Logger
	metrics   *observe.Metrics

	mu     sync.Mutex
	state  domain.MicState
	cancel context.CancelFunc
}

func NewMic(opts MicOptions) (*Mic, error) {
	if opts.Device == nil {
		return nil, fmt.Errorf("device is nil")
	}
	if opts.Session == nil {
		return nil, fmt.Errorf("recording session is nil")
	}
	if opts.STT == nil {
		return nil, fmt.Errorf("speech-to-text is nil")
	}

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Playback == nil {
		opts.Playback = NewPlayback(opts.Logger)
	}
	if opts.TTS == nil {
		opts.TTS = &NoopTTS{}
	}
	if opts.Responder == nil {
		opts.Responder = EchoResponder{}
	}
	if opts.Indicator == nil {
		opts.Indicator = NoopIndicator{}
	}
	if opts.Log == nil {
		opts.Log = NoopConversationLog{}
	}
	if opts.Console == nil {
		opts.Console = os.Stdout
	}
	if opts.Config.PollInterval <= 0 {
		opts.Config.PollInterval = defaultPollInterval
	}

	return &Mic{
		cfg:       opts.Config,
		device:    opts.Device,
		session:   opts.Session,
		playback:  opts.Playback,
		hotword:   opts.Hotword,
		stt:       opts.STT,
		tts:       opts.TTS,
		responder: opts.Responder,
		indicator: opts.Indicator,
		convo:     opts.Log,
		console:   opts.Console,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		state:     domain.StateIdle,
	}, nil
}

func (m *Mic) State() domain.MicState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Interrupt aborts the cycle in progress, if any. The mic returns to Idle and
// releases the device; Run carries on with the next cycle.
func (m *Mic) Interrupt() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		m.logger.Info("interrupt requested")
		cancel()
	}
}

// Run executes listening cycles until ctx is done, or a single cycle when
// the mic is not configured for continuous operation.
func (m *Mic) Run(ctx context.Context) error {
	m.logger.Info("mic ready", "device", m.device.Name(), "continuous", m.cfg.Continuous)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := m.Converse(ctx)
		if err != nil {
			m.logger.Error("conversation cycle", "error", err)
		}

		if !m.cfg.Continuous {
			return err
		}

		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(errorBackoff):
			}
		}
	}
}

// Converse runs one cycle: passive listening, command capture, transcription,
// response and speech. Interruption is not an error; the cycle simply ends
// in Idle.
func (m *Mic) Converse(ctx context.Context) error {
	cycleCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	flag := &interruptFlag{}
	terminated := make(chan struct{})
	stop := context.AfterFunc(cycleCtx, func() {
		defer close(terminated)
		if flag.raise() && m.hotword != nil {
			m.hotword.Terminate()
		}
	})
	// a Terminate still in flight must not reach the next cycle's listen
	defer func() {
		if !stop() {
			<-terminated
		}
	}()

	m.setCancel(cancel)
	defer m.setCancel(nil)

	lease, err := m.device.Acquire(cycleCtx)
	if err != nil {
		if cycleCtx.Err() != nil {
			return nil
		}
		return fmt.Errorf("acquiring device: %w", err)
	}
	defer m.transition(ctx, domain.StateIdle)
	defer lease.Release()

	err = m.cycle(cycleCtx, lease, flag)
	if err != nil && cycleCtx.Err() != nil {
		m.logger.Info("cycle interrupted", "state", m.State())
		return nil
	}
	return err
}

func (m *Mic) cycle(ctx context.Context, lease *DeviceLease, flag *interruptFlag) error {
	triggered, err := m.passiveListen(ctx, flag)
	if err != nil {
		return err
	}
	if !triggered {
		m.logger.Info("passive listen interrupted")
		return nil
	}

	m.transition(ctx, domain.StateTriggered)
	m.logger.Info("hotword detected", "name", m.cfg.Name)
	m.playback.Play(ctx, lease, m.cfg.WakeCue)

	m.transition(ctx, domain.StateActiveListening)
	rec, err := m.session.Record(ctx, lease)
	if err != nil {
		return err
	}

	m.transition(ctx, domain.StateProcessing)
	text, err := m.Transcribe(ctx, rec.Path)
	if err != nil {
		return err
	}
	m.safely("conversation log", func() {
		m.convo.Record(ctx, domain.SpeakerUser, domain.ASRPrefix+text)
	})

	if text == "" {
		m.logger.Info("empty transcript, nothing to answer")
		return nil
	}

	reply, err := m.responder.Respond(ctx, text)
	if err != nil {
		m.metrics.RecordCollaboratorError(ctx, "responder")
		return fmt.Errorf("%w: %w", ErrRespond, err)
	}

	m.say(ctx, lease, reply)
	return nil
}

func (m *Mic) passiveListen(ctx context.Context, flag *interruptFlag) (bool, error) {
	m.transition(ctx, domain.StatePassiveListening)

	if m.hotword == nil {
		return !flag.isRaised(), nil
	}

	m.logger.Info("listening for hotword", "poll_interval", m.cfg.PollInterval)

	var detected atomic.Bool
	onDetected := func() {
		detected.Store(true)
		m.hotword.Terminate()
	}

	if err := m.hotword.Start(onDetected, flag.isRaised, m.cfg.PollInterval); err != nil {
		m.metrics.RecordCollaboratorError(ctx, "hotword")
		return false, fmt.Errorf("%w: %w", ErrHotword, err)
	}

	return detected.Load() && !flag.isRaised(), nil
}

// Transcribe sends a recorded waveform to the speech-to-text backend. Errors
// are returned as is, wrapped in ErrTranscription; nothing is retried.
func (m *Mic) Transcribe(ctx context.Context, waveformPath string) (string, error) {
	start := time.Now()
	text, err := m.stt.Transcribe(ctx, waveformPath)
	m.metrics.ObserveASR(ctx, time.Since(start))
	if err != nil {
		m.metrics.RecordCollaboratorError(ctx, "asr")
		return "", fmt.Errorf("%w: %w", ErrTranscription, err)
	}

	m.logger.Info("transcribed", "text", text)
	return text, nil
}

// Say speaks a phrase outside of a listening cycle. It waits for the device
// to become free.
func (m *Mic) Say(ctx context.Context, phrase string) error {
	lease, err := m.device.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring device: %w", err)
	}
	defer m.transition(ctx, domain.StateIdle)
	defer lease.Release()

	m.say(ctx, lease, phrase)
	return nil
}

func (m *Mic) say(ctx context.Context, lease *DeviceLease, phrase string) {
	m.transition(ctx, domain.StateSpeaking)
	m.safely("conversation log", func() {
		m.convo.Record(ctx, domain.SpeakerDevice, domain.TTSPrefix+phrase)
	})

	start := time.Now()
	cached, path, err := m.tts.Synthesize(ctx, phrase)
	m.metrics.ObserveTTS(ctx, time.Since(start))
	if err != nil {
		m.metrics.RecordCollaboratorError(ctx, "tts")
		m.logger.Warn("speech synthesis failed, falling back to console", "error", err)
		cached = false
	}

	if cached {
		m.logger.Info("saying", "phrase", phrase)
		m.playback.Play(ctx, lease, path)
		return
	}

	fmt.Fprintf(m.console, "%s, %s\n", m.cfg.Name, phrase)
}

func (m *Mic) transition(ctx context.Context, to domain.MicState) {
	m.mu.Lock()
	from := m.state
	m.state = to
	m.mu.Unlock()

	m.logger.Debug("mic state", "from", from, "to", to)
	m.metrics.RecordState(ctx, to.String())

	switch to {
	case domain.StateTriggered:
		m.safely("indicator", m.indicator.Wakeup)
	case domain.StateActiveListening:
		m.safely("indicator", m.indicator.Listen)
	case domain.StateSpeaking:
		m.safely("indicator", m.indicator.Think)
	case domain.StateIdle:
		m.safely("indicator", m.indicator.Off)
	}
}

// safely runs a feedback call, swallowing panics so that feedback hardware
// or log sinks never end a cycle.
func (m *Mic) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("feedback call failed", "what", what, "panic", r)
		}
	}()
	fn()
}

func (m *Mic) setCancel(cancel context.CancelFunc) {
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()
}
