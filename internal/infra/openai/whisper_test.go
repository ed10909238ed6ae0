package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"

	"voice-mic/internal/infra/openai"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestWhisperClient_Transcribe(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/tmp/recorded.wav", []byte("RIFF-fake-wave"), 0644)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization: got %q", got)
		}

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing form: %v", err)
			return
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model: got %q, want whisper-1", got)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("language: got %q, want en", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		data, _ := io.ReadAll(file)
		if string(data) != "RIFF-fake-wave" {
			t.Errorf("uploaded audio: got %q", data)
		}
		if header.Filename != "recorded.wav" {
			t.Errorf("filename: got %q, want recorded.wav", header.Filename)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"text": "  turn on the lights \n"})
	}))
	defer server.Close()

	client := openai.NewWhisperClientWithURL(fs, "test-key", "en", server.URL)

	text, err := client.Transcribe(context.Background(), "/tmp/recorded.wav")
	if err != nil {
		t.Fatalf("Transcribe error: %v", err)
	}
	if text != "turn on the lights" {
		t.Errorf("text: got %q, want %q", text, "turn on the lights")
	}
}

func TestWhisperClient_DoesNotRetry(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/rec.wav", []byte("x"), 0644)

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := openai.NewWhisperClientWithURL(fs, "k", "", server.URL)

	if _, err := client.Transcribe(context.Background(), "/rec.wav"); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("requests: got %d, want 1", got)
	}
}

func TestWhisperClient_MissingRecording(t *testing.T) {
	client := openai.NewWhisperClientWithURL(afero.NewMemMapFs(), "k", "", "http://127.0.0.1:0")

	if _, err := client.Transcribe(context.Background(), "/missing.wav"); err == nil {
		t.Error("expected error for missing recording")
	}
}
