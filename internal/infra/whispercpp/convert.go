// Package whispercpp transcribes recordings locally with whisper.cpp. The
// real transcriber needs the whisper build tag and libwhisper at link time.
package whispercpp

import "strings"

// toFloat32Mono normalises interleaved 16-bit samples to [-1, 1] and
// down-mixes them to one channel.
func toFloat32Mono(samples []int16, channels int) []float32 {
	if channels < 1 {
		channels = 1
	}
	frames := len(samples) / channels
	mono := make([]float32, frames)
	for i := range frames {
		var sum float32
		for ch := range channels {
			sum += float32(samples[i*channels+ch]) / 32768.0
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// joinSegments drops whisper's non-speech annotations such as
// "[BLANK_AUDIO]" or "(wind blowing)" and repeated segments.
func joinSegments(segments []string) string {
	seen := make(map[string]bool)
	parts := make([]string, 0, len(segments))

	for _, s := range segments {
		text := strings.TrimSpace(s)
		if text == "" || isAnnotation(text) || seen[text] {
			continue
		}
		seen[text] = true
		parts = append(parts, text)
	}

	return strings.Join(parts, " ")
}

func isAnnotation(text string) bool {
	first, last := text[0], text[len(text)-1]
	return first == '(' || first == '[' || last == ')' || last == ']'
}
