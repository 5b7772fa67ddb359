// Package testpattern provides a synthetic capture device. Every frame is a
// test card whose left half is warmer than its right half, so mirrored frames
// are easy to tell apart from unmirrored ones. It is used when no camera is
// attached and by tests.
package testpattern

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/germanamz/videocapture/pkg/device"
	"github.com/germanamz/videocapture/pkg/frame"
)

// Default geometry of a freshly opened device.
const (
	DefaultWidth  = 320
	DefaultHeight = 240
	DefaultFPS    = 30
)

// Upper bounds accepted by SetProperty.
const (
	MaxDimension = 8192
	MaxFPS       = 240
)

// Opener opens synthetic devices. Indices below Devices open successfully;
// all others fail with device.ErrDeviceUnavailable.
type Opener struct {
	Devices int
}

// New returns an Opener exposing n devices.
func New(n int) *Opener {
	return &Opener{Devices: n}
}

// Open implements device.Opener.
func (o *Opener) Open(index int) (device.Handle, error) {
	if index < 0 || index >= o.Devices {
		return nil, fmt.Errorf("testpattern: open %d: %w", index, device.ErrDeviceUnavailable)
	}

	return &Handle{
		index: index,
		props: map[string]float64{
			device.PropWidth:        DefaultWidth,
			device.PropHeight:       DefaultHeight,
			device.PropFPS:          DefaultFPS,
			device.PropFrameCount:   -1,
			device.PropBrightness:   0.5,
			device.PropContrast:     0.5,
			device.PropSaturation:   0.5,
			device.PropHue:          0,
			device.PropGain:         0,
			device.PropExposure:     -1,
			device.PropFormat:       -1,
			device.PropAutoExposure: 1,
			device.PropAutoFocus:    1,
			device.PropFocus:        0,
			device.PropZoom:         1,
		},
	}, nil
}

// Handle is one synthetic device.
type Handle struct {
	mu       sync.Mutex
	index    int
	props    map[string]float64
	frames   int
	released bool
}

// ReadFrame implements device.Handle.
func (h *Handle) ReadFrame(flip bool) (image.Image, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return nil, fmt.Errorf("testpattern: read %d: handle released: %w", h.index, device.ErrCaptureFailed)
	}

	w, ht := int(h.props[device.PropWidth]), int(h.props[device.PropHeight])
	if w <= 0 || ht <= 0 {
		return nil, fmt.Errorf("testpattern: read %d: empty frame: %w", h.index, device.ErrCaptureFailed)
	}

	h.frames++
	img := render(w, ht, h.index, h.frames, h.props[device.PropBrightness])
	if flip {
		return frame.Mirror(img), nil
	}

	return img, nil
}

// Properties implements device.Handle.
func (h *Handle) Properties() map[string]float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]float64, len(device.ReportedProperties))
	for _, name := range device.ReportedProperties {
		out[name] = h.props[name]
	}

	return out
}

// SetProperty implements device.Handle. Width and height must be whole numbers
// in [1, MaxDimension], fps must lie in (0, MaxFPS] and normalized controls
// must stay within [0, 1].
func (h *Handle) SetProperty(name string, value float64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released || !device.IsSettable(name) {
		return false
	}

	switch name {
	case device.PropWidth, device.PropHeight:
		if value < 1 || value > MaxDimension || value != math.Trunc(value) {
			return false
		}
	case device.PropFPS:
		if !(value > 0 && value <= MaxFPS) {
			return false
		}
	case device.PropBrightness, device.PropContrast, device.PropSaturation:
		if value < 0 || value > 1 {
			return false
		}
	}

	h.props[name] = value

	return true
}

// Release implements device.Handle.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.released = true

	return nil
}

// Released reports whether Release has been called.
func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.released
}

// render draws the test card: a red left half, a blue right half, a green
// marker row whose length encodes the device index, and a frame counter band.
func render(w, h, index, seq int, brightness float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	level := uint8(64 + brightness*191)

	for y := range h {
		for x := range w {
			c := color.RGBA{B: level, A: 255}
			if x < w/2 {
				c = color.RGBA{R: level, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}

	for x := 0; x < min(w, (index+1)*4); x++ {
		img.SetRGBA(x, 0, color.RGBA{G: 255, A: 255})
	}

	band := uint8(seq % 256)
	for x := range w {
		img.SetRGBA(x, h-1, color.RGBA{R: band, G: band, B: band, A: 255})
	}

	return img
}
