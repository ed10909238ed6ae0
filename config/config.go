package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"voice-mic/internal/vad"
)

type Config struct {
	Assistant    AssistantConfig    `yaml:"assistant"`
	Audio        AudioConfig        `yaml:"audio"`
	VAD          VADConfig          `yaml:"vad"`
	Hotword      HotwordConfig      `yaml:"hotword"`
	ASR          ASRConfig          `yaml:"asr"`
	TTS          TTSConfig          `yaml:"tts"`
	Responder    ResponderConfig    `yaml:"responder"`
	LED          LEDConfig          `yaml:"led"`
	Conversation ConversationConfig `yaml:"conversation"`
	Server       ServerConfig       `yaml:"server"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Log          LogConfig          `yaml:"log"`
}

type AssistantConfig struct {
	Name       string `yaml:"name"`
	Continuous bool   `yaml:"continuous"`
}

type AudioConfig struct {
	// Source is "microphone" or "file".
	Source           string `yaml:"source"`
	File             string `yaml:"file"`
	Realtime         bool   `yaml:"realtime"`
	SampleRate       int    `yaml:"sample_rate"`
	FrameSize        int    `yaml:"frame_size"`
	MaxRecordSeconds int    `yaml:"max_record_seconds"`
	RecordingPath    string `yaml:"recording_path"`
	Ding             string `yaml:"ding"`
	Dong             string `yaml:"dong"`
	// Player is "portaudio" or "command".
	Player      string `yaml:"player"`
	PlayCommand string `yaml:"play_command"`
}

type VADConfig struct {
	ScoreDivisor float64 `yaml:"score_divisor"`
	Gate         float64 `yaml:"gate"`
	LowAverage   float64 `yaml:"low_average"`
	HighAverage  float64 `yaml:"high_average"`
	QuietFrames  int     `yaml:"quiet_frames"`
	WindowSize   int     `yaml:"window_size"`
	WindowSeed   string  `yaml:"window_seed"`
}

type HotwordConfig struct {
	// Mode is "none", "console" or "http".
	Mode         string        `yaml:"mode"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type ASRConfig struct {
	// Provider is "openai" or "whispercpp".
	Provider  string `yaml:"provider"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Language  string `yaml:"language"`
	ModelPath string `yaml:"model_path"`
}

type TTSConfig struct {
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	Voice       string `yaml:"voice"`
	CacheDir    string `yaml:"cache_dir"`
	FetchOnMiss bool   `yaml:"fetch_on_miss"`
}

type ResponderConfig struct {
	// Provider is "echo", "claude" or "gemini".
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
}

type LEDConfig struct {
	SPIDevice  string `yaml:"spi_device"`
	Pixels     int    `yaml:"pixels"`
	Brightness int    `yaml:"brightness"`
}

type ConversationConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

type ServerConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Addr          string `yaml:"addr"`
	AuthToken     string `yaml:"auth_token"`
	RatePerMinute int    `yaml:"rate_per_minute"`
	// TrustProxy keys the rate limit by X-Forwarded-For / X-Real-IP.
	TrustProxy bool `yaml:"trust_proxy"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Assistant.Name == "" {
		c.Assistant.Name = "Jarvis"
	}
	if c.Audio.Source == "" {
		c.Audio.Source = "microphone"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.FrameSize == 0 {
		c.Audio.FrameSize = 1024
	}
	if c.Audio.MaxRecordSeconds == 0 {
		c.Audio.MaxRecordSeconds = 12
	}
	if c.Audio.RecordingPath == "" {
		c.Audio.RecordingPath = "/tmp/recorded.wav"
	}
	if c.Audio.Player == "" {
		c.Audio.Player = "portaudio"
	}
	if c.VAD.ScoreDivisor == 0 {
		c.VAD.ScoreDivisor = 3
	}
	if c.VAD.Gate == 0 {
		c.VAD.Gate = 80
	}
	if c.VAD.LowAverage == 0 {
		c.VAD.LowAverage = 120
	}
	if c.VAD.HighAverage == 0 {
		c.VAD.HighAverage = 400
	}
	if c.VAD.QuietFrames == 0 {
		c.VAD.QuietFrames = 30
	}
	if c.VAD.WindowSize == 0 {
		c.VAD.WindowSize = 20
	}
	if c.VAD.WindowSeed == "" {
		c.VAD.WindowSeed = "index"
	}
	if c.Hotword.Mode == "" {
		c.Hotword.Mode = "none"
	}
	if c.Hotword.PollInterval == 0 {
		c.Hotword.PollInterval = 30 * time.Millisecond
	}
	if c.ASR.Provider == "" {
		c.ASR.Provider = "openai"
	}
	if c.ASR.Language == "" {
		c.ASR.Language = "en"
	}
	if c.TTS.CacheDir == "" {
		c.TTS.CacheDir = "./tts-cache"
	}
	if c.Responder.Provider == "" {
		c.Responder.Provider = "echo"
	}
	if c.LED.Pixels == 0 {
		c.LED.Pixels = 12
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) Validate() error {
	var errs []error

	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate))
	}
	if c.Audio.FrameSize <= 0 {
		errs = append(errs, fmt.Errorf("audio.frame_size must be positive, got %d", c.Audio.FrameSize))
	}
	if c.Audio.MaxRecordSeconds <= 0 {
		errs = append(errs, fmt.Errorf("audio.max_record_seconds must be positive, got %d", c.Audio.MaxRecordSeconds))
	}
	if c.Audio.SampleRate > 0 && c.Audio.FrameSize > 0 && c.Audio.MaxRecordSeconds > 0 &&
		vad.FrameBudget(c.Audio.SampleRate, c.Audio.FrameSize, c.Audio.MaxRecord()) < 1 {
		errs = append(errs, fmt.Errorf("audio.max_record_seconds (%d) is shorter than one frame of %d samples at %d Hz",
			c.Audio.MaxRecordSeconds, c.Audio.FrameSize, c.Audio.SampleRate))
	}
	if !oneOf(c.Audio.Source, "microphone", "file") {
		errs = append(errs, fmt.Errorf("audio.source: unknown source %q", c.Audio.Source))
	}
	if c.Audio.Source == "file" && c.Audio.File == "" {
		errs = append(errs, errors.New("audio.file is required when audio.source is file"))
	}
	if !oneOf(c.Audio.Player, "portaudio", "command") {
		errs = append(errs, fmt.Errorf("audio.player: unknown player %q", c.Audio.Player))
	}

	if c.VAD.WindowSize <= 0 {
		errs = append(errs, fmt.Errorf("vad.window_size must be positive, got %d", c.VAD.WindowSize))
	}
	if c.VAD.QuietFrames <= 0 {
		errs = append(errs, fmt.Errorf("vad.quiet_frames must be positive, got %d", c.VAD.QuietFrames))
	}
	if c.VAD.ScoreDivisor <= 0 {
		errs = append(errs, fmt.Errorf("vad.score_divisor must be positive, got %v", c.VAD.ScoreDivisor))
	}
	if c.VAD.LowAverage >= c.VAD.HighAverage {
		errs = append(errs, fmt.Errorf("vad.low_average (%v) must be below vad.high_average (%v)", c.VAD.LowAverage, c.VAD.HighAverage))
	}
	if !oneOf(c.VAD.WindowSeed, "index", "zero") {
		errs = append(errs, fmt.Errorf("vad.window_seed: unknown seed %q", c.VAD.WindowSeed))
	}

	if !oneOf(c.Hotword.Mode, "none", "console", "http") {
		errs = append(errs, fmt.Errorf("hotword.mode: unknown mode %q", c.Hotword.Mode))
	}
	if c.Hotword.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("hotword.poll_interval must not be negative, got %s", c.Hotword.PollInterval))
	}
	if c.Hotword.Mode == "http" && !c.Server.Enabled {
		errs = append(errs, errors.New("hotword.mode http needs server.enabled"))
	}

	if !oneOf(c.ASR.Provider, "openai", "whispercpp") {
		errs = append(errs, fmt.Errorf("asr.provider: unknown provider %q", c.ASR.Provider))
	}
	if c.ASR.Provider == "whispercpp" && c.ASR.ModelPath == "" {
		errs = append(errs, errors.New("asr.model_path is required for whispercpp"))
	}

	if !oneOf(c.Responder.Provider, "echo", "claude", "gemini") {
		errs = append(errs, fmt.Errorf("responder.provider: unknown provider %q", c.Responder.Provider))
	}

	if !oneOf(c.Log.Level, "debug", "info", "warn", "error") {
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	if !oneOf(c.Log.Format, "text", "json") {
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// MaxRecord is the hard limit on one recording.
func (a AudioConfig) MaxRecord() time.Duration {
	return time.Duration(a.MaxRecordSeconds) * time.Second
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
