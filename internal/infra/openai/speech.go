package openai

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"voice-mic/internal/infra"
)

const defaultMaxSpeechBytes = 20 * 1024 * 1024

type SpeechOptions struct {
	APIKey      string
	BaseURL     string
	Model       string
	Voice       string
	CacheDir    string
	FetchOnMiss bool
	// MaxBytes bounds one synthesized clip; larger responses are rejected.
	MaxBytes int64
}

// SpeechClient serves spoken phrases from a WAV cache keyed by the phrase
// text, synthesizing and storing misses when FetchOnMiss is set.
type SpeechClient struct {
	opts       SpeechOptions
	fs         afero.Fs
	httpClient *http.Client
	retry      infra.RetryConfig
	logger     *slog.Logger
}

func NewSpeechClient(fs afero.Fs, opts SpeechOptions, logger *slog.Logger) *SpeechClient {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	if opts.Model == "" {
		opts.Model = "tts-1"
	}
	if opts.Voice == "" {
		opts.Voice = "alloy"
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxSpeechBytes
	}
	return &SpeechClient{
		opts:       opts,
		fs:         fs,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      infra.DefaultRetryConfig(),
		logger:     logger,
	}
}

// CachePath is where the audio for phrase is stored.
func (c *SpeechClient) CachePath(phrase string) string {
	sum := sha1.Sum([]byte(c.opts.Voice + "\x00" + phrase))
	return filepath.Join(c.opts.CacheDir, hex.EncodeToString(sum[:])+".wav")
}

func (c *SpeechClient) Synthesize(ctx context.Context, phrase string) (bool, string, error) {
	path := c.CachePath(phrase)

	if ok, err := afero.Exists(c.fs, path); err != nil {
		return false, "", fmt.Errorf("checking speech cache: %w", err)
	} else if ok {
		return true, path, nil
	}

	if !c.opts.FetchOnMiss {
		return false, "", nil
	}

	audio, err := c.fetch(ctx, phrase)
	if err != nil {
		return false, "", err
	}

	if err := c.store(path, audio); err != nil {
		return false, "", err
	}

	c.logger.Debug("speech cached", "path", path, "bytes", len(audio))
	return true, path, nil
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

func (c *SpeechClient) fetch(ctx context.Context, phrase string) ([]byte, error) {
	bodyBytes, err := json.Marshal(speechRequest{
		Model:          c.opts.Model,
		Input:          phrase,
		Voice:          c.opts.Voice,
		ResponseFormat: "wav",
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var audio []byte
	retryErr := infra.WithRetry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/audio/speech", bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			return infra.StatusError("speech", resp.StatusCode, respBody)
		}

		audio, err = io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBytes+1))
		if err != nil {
			return fmt.Errorf("reading audio: %w", err)
		}
		if int64(len(audio)) > c.opts.MaxBytes {
			audio = nil
			return infra.Permanent(fmt.Errorf("speech audio exceeds %d bytes", c.opts.MaxBytes))
		}
		if len(audio) == 0 {
			return fmt.Errorf("empty audio from speech API")
		}
		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}
	return audio, nil
}

// store writes through a temp file; a partial entry must never look like a hit.
func (c *SpeechClient) store(path string, audio []byte) error {
	if err := c.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating speech cache dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := afero.WriteFile(c.fs, tmp, audio, 0644); err != nil {
		return fmt.Errorf("writing speech cache: %w", err)
	}
	if err := c.fs.Rename(tmp, path); err != nil {
		c.fs.Remove(tmp)
		return fmt.Errorf("committing speech cache: %w", err)
	}
	return nil
}
