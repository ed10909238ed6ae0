// Package led drives the pixel ring that shows what the microphone is doing.
package led

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/afero"

	"voice-mic/internal/application"
)

// Color is an RGB triple.
type Color struct {
	R, G, B byte
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

var (
	colorWakeup = Color{R: 0x40, G: 0x40, B: 0xff}
	colorListen = Color{B: 0xff}
	colorThink  = Color{R: 0x80, B: 0xff}
	colorOff    = Color{}
)

// maxBrightness is the top of the APA102 5-bit global brightness field.
const maxBrightness = 31

// APA102 writes solid colors to a chain of APA102 pixels over a spidev
// character device.
type APA102 struct {
	mu         sync.Mutex
	w          io.WriteCloser
	pixels     int
	brightness byte
	logger     *slog.Logger
}

func NewAPA102(w io.WriteCloser, pixels, brightness int, logger *slog.Logger) *APA102 {
	if brightness <= 0 || brightness > maxBrightness {
		brightness = maxBrightness
	}
	return &APA102{
		w:          w,
		pixels:     pixels,
		brightness: byte(brightness),
		logger:     logger,
	}
}

func (a *APA102) Wakeup() { a.show(colorWakeup) }
func (a *APA102) Listen() { a.show(colorListen) }
func (a *APA102) Think()  { a.show(colorThink) }
func (a *APA102) Off()    { a.show(colorOff) }

func (a *APA102) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.w.Close()
}

func (a *APA102) show(c Color) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.w.Write(Frame(a.pixels, a.brightness, c)); err != nil {
		a.logger.Warn("led write failed", "error", err)
	}
}

// Frame encodes one APA102 update: a zero start frame, one BGR word per
// pixel and enough trailing clock bits to push the last pixel through.
func Frame(pixels int, brightness byte, c Color) []byte {
	end := (pixels + 15) / 16
	buf := make([]byte, 0, 4+pixels*4+end)
	buf = append(buf, 0, 0, 0, 0)
	for range pixels {
		buf = append(buf, 0xe0|brightness&maxBrightness, c.B, c.G, c.R)
	}
	for range end {
		buf = append(buf, 0xff)
	}
	return buf
}

// Detect opens the pixel ring at devicePath. Without a device path, or when
// the device cannot be opened, the microphone runs with no LED feedback.
func Detect(fs afero.Fs, devicePath string, pixels, brightness int, logger *slog.Logger) application.Indicator {
	if devicePath == "" {
		return application.NoopIndicator{}
	}
	if pixels <= 0 {
		logger.Warn("led disabled, pixel count must be positive", "pixels", pixels)
		return application.NoopIndicator{}
	}

	f, err := fs.OpenFile(devicePath, os.O_WRONLY, 0)
	if err != nil {
		logger.Info("no led hardware detected", "device", devicePath, "error", err)
		return application.NoopIndicator{}
	}

	logger.Info("led ring detected", "device", devicePath, "pixels", pixels)
	return NewAPA102(f, pixels, brightness, logger)
}

var _ application.Indicator = (*APA102)(nil)
