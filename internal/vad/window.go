package vad

// Seed selects the contents of a freshly created Window.
type Seed string

const (
	// SeedIndex fills slot i with the value i. The first averages of a session
	// are biased upward by the seed until it has been evicted.
	SeedIndex Seed = "index"
	// SeedZero fills every slot with silence.
	SeedZero Seed = "zero"
)

// Window is a fixed-capacity FIFO of the most recent loudness scores.
// Its length never changes: every Push evicts the oldest score.
type Window struct {
	scores []float64
	head   int
}

func NewWindow(size int, seed Seed) *Window {
	w := &Window{scores: make([]float64, size)}
	if seed == SeedIndex {
		for i := range w.scores {
			w.scores[i] = float64(i)
		}
	}
	return w
}

func (w *Window) Push(score float64) {
	w.scores[w.head] = score
	w.head = (w.head + 1) % len(w.scores)
}

func (w *Window) Len() int {
	return len(w.scores)
}

func (w *Window) Max() float64 {
	peak := w.scores[0]
	for _, s := range w.scores[1:] {
		if s > peak {
			peak = s
		}
	}
	return peak
}

func (w *Window) Mean() float64 {
	var sum float64
	for _, s := range w.scores {
		sum += s
	}
	return sum / float64(len(w.scores))
}

// Values returns the scores oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, len(w.scores))
	for i := range w.scores {
		out[i] = w.scores[(w.head+i)%len(w.scores)]
	}
	return out
}
