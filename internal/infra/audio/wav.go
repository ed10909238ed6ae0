package audio

import (
	"fmt"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"

	"voice-mic/internal/application"
)

const wavFormatPCM = 1

// WavSink writes recordings as PCM WAV files.
type WavSink struct {
	fs afero.Fs
}

func NewWavSink(fs afero.Fs) *WavSink {
	return &WavSink{fs: fs}
}

func (s *WavSink) WriteWaveform(path string, format application.AudioFormat, samples []int16) error {
	if err := s.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating recording dir: %w", err)
	}

	f, err := s.fs.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	data := make([]int, len(samples))
	for i, v := range samples {
		data[i] = int(v)
	}

	enc := wav.NewEncoder(f, format.SampleRate, format.BitDepth, format.Channels, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: format.Channels,
			SampleRate:  format.SampleRate,
		},
		Data:           data,
		SourceBitDepth: format.BitDepth,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encoding wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing wav: %w", err)
	}

	return nil
}

// ReadWaveform decodes a 16-bit PCM WAV file.
func ReadWaveform(fs afero.Fs, path string) (application.AudioFormat, []int16, error) {
	f, err := fs.Open(path)
	if err != nil {
		return application.AudioFormat{}, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return application.AudioFormat{}, nil, fmt.Errorf("%s: not a valid wav file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return application.AudioFormat{}, nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	if dec.BitDepth != 16 {
		return application.AudioFormat{}, nil, fmt.Errorf("%s: unsupported bit depth %d", path, dec.BitDepth)
	}

	format := application.AudioFormat{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}

	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(v)
	}

	return format, samples, nil
}
