package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"

	"voice-mic/config"
	"voice-mic/internal/application"
	"voice-mic/internal/infra/anthropic"
	"voice-mic/internal/infra/audio"
	"voice-mic/internal/infra/conversation"
	"voice-mic/internal/infra/gemini"
	"voice-mic/internal/infra/hotword"
	"voice-mic/internal/infra/led"
	"voice-mic/internal/infra/openai"
	"voice-mic/internal/infra/server"
	"voice-mic/internal/infra/whispercpp"
	"voice-mic/internal/observe"
	"voice-mic/internal/vad"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	sayPhrase := flag.String("say", "", "speak a phrase and exit")
	transcribePath := flag.String("transcribe", "", "transcribe a wav file and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	if err := run(ctx, cfg, logger, *sayPhrase, *transcribePath); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("voice mic error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, sayPhrase, transcribePath string) error {
	fs := afero.NewOsFs()

	var metrics *observe.Metrics
	if cfg.Metrics.Enabled {
		m, shutdown, err := observe.InitProvider(ctx, "voice-mic", version)
		if err != nil {
			return fmt.Errorf("initializing metrics: %w", err)
		}
		defer shutdown(context.Background())
		metrics = m
	}

	pa := audio.NewPortAudio(fs, logger)
	defer pa.Terminate()

	input, output := createAudio(cfg.Audio, fs, pa, logger)
	device := application.NewDevice(input, output)
	playback := application.NewPlayback(logger)

	format := application.AudioFormat{
		SampleRate: cfg.Audio.SampleRate,
		Channels:   1,
		BitDepth:   16,
	}

	session := application.NewRecordingSession(application.SessionConfig{
		Format:     format,
		FrameSize:  cfg.Audio.FrameSize,
		MaxRecord:  cfg.Audio.MaxRecord(),
		OutputPath: cfg.Audio.RecordingPath,
		EndCue:     cfg.Audio.Dong,
		VAD: vad.Config{
			ScoreDivisor: cfg.VAD.ScoreDivisor,
			Gate:         cfg.VAD.Gate,
			LowAverage:   cfg.VAD.LowAverage,
			HighAverage:  cfg.VAD.HighAverage,
			QuietFrames:  cfg.VAD.QuietFrames,
			WindowSize:   cfg.VAD.WindowSize,
			Seed:         vad.Seed(cfg.VAD.WindowSeed),
		},
	}, audio.NewWavSink(fs), playback, logger, metrics)

	stt, closeSTT, err := createSTT(cfg.ASR, fs, logger)
	if err != nil {
		return err
	}
	defer closeSTT()

	tts := openai.NewSpeechClient(fs, openai.SpeechOptions{
		APIKey:      cfg.TTS.APIKey,
		BaseURL:     cfg.TTS.BaseURL,
		Model:       cfg.TTS.Model,
		Voice:       cfg.TTS.Voice,
		CacheDir:    cfg.TTS.CacheDir,
		FetchOnMiss: cfg.TTS.FetchOnMiss,
	}, logger)

	indicator := led.Detect(fs, cfg.LED.SPIDevice, cfg.LED.Pixels, cfg.LED.Brightness, logger)
	if c, ok := indicator.(io.Closer); ok {
		defer c.Close()
	}

	convo := conversation.Multi{conversation.NewLogSink(logger)}
	if cfg.Conversation.WebhookURL != "" {
		webhook := conversation.NewWebhookSink(cfg.Conversation.WebhookURL, cfg.Assistant.Name, logger)
		defer webhook.Close()
		convo = append(convo, webhook)
	}

	opts := application.MicOptions{
		Config: application.MicConfig{
			Name:         cfg.Assistant.Name,
			WakeCue:      cfg.Audio.Ding,
			PollInterval: cfg.Hotword.PollInterval,
			Continuous:   cfg.Assistant.Continuous,
		},
		Device:    device,
		Session:   session,
		Playback:  playback,
		STT:       stt,
		TTS:       tts,
		Responder: createResponder(cfg.Responder, cfg.Assistant.Name),
		Indicator: indicator,
		Log:       convo,
		Logger:    logger,
		Metrics:   metrics,
	}

	var waker server.Waker
	if detector := createHotword(cfg.Hotword, logger); detector != nil {
		opts.Hotword = detector
		waker = detector
	}

	mic, err := application.NewMic(opts)
	if err != nil {
		return fmt.Errorf("creating mic: %w", err)
	}

	switch {
	case sayPhrase != "":
		return mic.Say(ctx, sayPhrase)
	case transcribePath != "":
		text, err := mic.Transcribe(ctx, transcribePath)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	}

	if cfg.Server.Enabled {
		srv := server.New(server.Options{
			Addr:           cfg.Server.Addr,
			AuthToken:      cfg.Server.AuthToken,
			RatePerMinute:  cfg.Server.RatePerMinute,
			TrustProxy:     cfg.Server.TrustProxy,
			MetricsEnabled: cfg.Metrics.Enabled,
		}, mic, waker, logger)
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("starting server: %w", err)
		}
		defer srv.Stop()
	}

	logger.Info("starting voice mic",
		"name", cfg.Assistant.Name,
		"audio_source", cfg.Audio.Source,
		"hotword", cfg.Hotword.Mode,
		"asr", cfg.ASR.Provider,
		"responder", cfg.Responder.Provider,
	)

	return mic.Run(ctx)
}

func createAudio(cfg config.AudioConfig, fs afero.Fs, pa *audio.PortAudio, logger *slog.Logger) (application.AudioInput, application.AudioOutput) {
	var input application.AudioInput = pa
	if cfg.Source == "file" {
		input = audio.NewFileInput(fs, cfg.File, cfg.Realtime, logger)
	}

	var output application.AudioOutput = pa
	if cfg.Player == "command" {
		output = audio.NewCommandPlayer(fs, cfg.PlayCommand)
	}

	return input, output
}

func createSTT(cfg config.ASRConfig, fs afero.Fs, logger *slog.Logger) (application.SpeechToText, func() error, error) {
	if cfg.Provider == "whispercpp" {
		t, err := whispercpp.New(fs, cfg.ModelPath, cfg.Language, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("creating local transcriber: %w", err)
		}
		return t, t.Close, nil
	}

	client := openai.NewWhisperClient(fs, cfg.APIKey, cfg.Language)
	if cfg.BaseURL != "" {
		client = openai.NewWhisperClientWithURL(fs, cfg.APIKey, cfg.Language, cfg.BaseURL)
	}
	return client, func() error { return nil }, nil
}

func createResponder(cfg config.ResponderConfig, name string) application.Responder {
	system := application.ReplyInstructions(name)
	switch cfg.Provider {
	case "claude":
		return anthropic.NewClaudeClient(cfg.APIKey, cfg.Model, system)
	case "gemini":
		return gemini.NewClient(cfg.APIKey, cfg.Model, system)
	default:
		return application.EchoResponder{}
	}
}

// createHotword returns nil in "none" mode: the mic then triggers at once.
func createHotword(cfg config.HotwordConfig, logger *slog.Logger) *hotword.Remote {
	switch cfg.Mode {
	case "console":
		logger.Info("press enter to talk")
		return hotword.NewConsole(os.Stdin, logger)
	case "http":
		return hotword.NewRemote(logger)
	default:
		return nil
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
