// Package vad implements the end-of-speech detector used while the mic is
// actively recording a command.
//
// Every frame is reduced to a loudness score (RMS divided by a fixed divisor)
// and pushed into a sliding window. The loudest window maximum seen so far
// becomes the session threshold. Nothing can end a session until that
// threshold has crossed the gate; afterwards a quiet window average grows the
// quiet run, a loud one resets it, and a long enough quiet run stops the
// recording. A frame budget bounds every session regardless of input.
//
// All constants are empirical and carry no physical unit.
package vad

import (
	"math"
	"time"

	"voice-mic/internal/domain"
)

type Config struct {
	ScoreDivisor float64
	Gate         float64
	LowAverage   float64
	HighAverage  float64
	QuietFrames  int
	WindowSize   int
	Seed         Seed
	// MaxFrames is the hard frame budget. Zero disables the cap.
	MaxFrames int
}

func DefaultConfig() Config {
	return Config{
		ScoreDivisor: 3,
		Gate:         80,
		LowAverage:   120,
		HighAverage:  400,
		QuietFrames:  30,
		WindowSize:   20,
		Seed:         SeedIndex,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ScoreDivisor <= 0 {
		c.ScoreDivisor = def.ScoreDivisor
	}
	if c.Gate == 0 {
		c.Gate = def.Gate
	}
	if c.LowAverage == 0 {
		c.LowAverage = def.LowAverage
	}
	if c.HighAverage == 0 {
		c.HighAverage = def.HighAverage
	}
	if c.QuietFrames <= 0 {
		c.QuietFrames = def.QuietFrames
	}
	if c.WindowSize <= 0 {
		c.WindowSize = def.WindowSize
	}
	if c.Seed == "" {
		c.Seed = def.Seed
	}
	return c
}

// FrameBudget converts a recording time limit into a frame count, truncating
// the fractional frame.
func FrameBudget(sampleRate, frameSize int, limit time.Duration) int {
	if frameSize <= 0 {
		return 0
	}
	return int(float64(sampleRate) / float64(frameSize) * limit.Seconds())
}

// Result describes the detector state after one frame.
type Result struct {
	Frames    int
	Score     float64
	Average   float64
	Threshold float64
	QuietRun  int
	Stop      bool
	Reason    domain.StopReason
}

// Detector is single-session state. It is not safe for concurrent use.
type Detector struct {
	cfg       Config
	window    *Window
	threshold float64
	quietRun  int
	frames    int
}

func New(cfg Config) *Detector {
	cfg = cfg.withDefaults()
	return &Detector{
		cfg:    cfg,
		window: NewWindow(cfg.WindowSize, cfg.Seed),
	}
}

func (d *Detector) Config() Config {
	return d.cfg
}

// Reset discards all session state, including the threshold.
func (d *Detector) Reset() {
	d.window = NewWindow(d.cfg.WindowSize, d.cfg.Seed)
	d.threshold = 0
	d.quietRun = 0
	d.frames = 0
}

func (d *Detector) Process(frame []int16) Result {
	d.frames++

	score := Score(frame, d.cfg.ScoreDivisor)
	d.window.Push(score)

	if peak := d.window.Max(); peak > d.threshold {
		d.threshold = peak
	}
	average := d.window.Mean()

	res := Result{
		Frames:    d.frames,
		Score:     score,
		Average:   average,
		Threshold: d.threshold,
	}

	if d.threshold > d.cfg.Gate {
		if average < d.cfg.LowAverage {
			d.quietRun++
		}
		if average > d.cfg.HighAverage {
			d.quietRun = 0
		}
		if d.quietRun >= d.cfg.QuietFrames {
			res.Stop = true
			res.Reason = domain.StopReasonSilence
		}
	}

	if !res.Stop && d.cfg.MaxFrames > 0 && d.frames >= d.cfg.MaxFrames {
		res.Stop = true
		res.Reason = domain.StopReasonTimeout
	}

	res.QuietRun = d.quietRun
	return res
}

// RMS returns the root-mean-square amplitude truncated to an integer value.
func RMS(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		v := float64(s)
		sum += v * v
	}
	return math.Floor(math.Sqrt(sum / float64(len(frame))))
}

func Score(frame []int16, divisor float64) float64 {
	return RMS(frame) / divisor
}
