package whispercpp

import "testing"

func TestToFloat32Mono(t *testing.T) {
	got := toFloat32Mono([]int16{0, 16384, -32768, 32767}, 1)
	want := []float32{0, 0.5, -1, 32767.0 / 32768.0}

	if len(got) != len(want) {
		t.Fatalf("length: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestToFloat32Mono_DownMix(t *testing.T) {
	got := toFloat32Mono([]int16{16384, 0, -16384, -16384, 7}, 2)

	if len(got) != 2 {
		t.Fatalf("length: got %d, want 2", len(got))
	}
	if got[0] != 0.25 || got[1] != -0.5 {
		t.Errorf("got %v, want [0.25 -0.5]", got)
	}
}

func TestJoinSegments(t *testing.T) {
	tests := []struct {
		name     string
		segments []string
		want     string
	}{
		{name: "plain", segments: []string{" Turn on", " the lights."}, want: "Turn on the lights."},
		{name: "blank audio", segments: []string{"[BLANK_AUDIO]"}, want: ""},
		{name: "sound annotation", segments: []string{"(wind blowing)", " hello"}, want: "hello"},
		{name: "repeats", segments: []string{"hello", " hello", "there"}, want: "hello there"},
		{name: "empty", segments: []string{" ", ""}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinSegments(tt.segments); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
