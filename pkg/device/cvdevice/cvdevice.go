//go:build !nocv

// Package cvdevice opens webcams through OpenCV (gocv). It requires OpenCV 4
// and cgo; build with the nocv tag to leave it out.
package cvdevice

import (
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/germanamz/videocapture/pkg/device"
	"github.com/germanamz/videocapture/pkg/frame"
	"gocv.io/x/gocv"
)

// propertyIDs maps property names to OpenCV capture properties.
var propertyIDs = map[string]gocv.VideoCaptureProperties{
	device.PropWidth:        gocv.VideoCaptureFrameWidth,
	device.PropHeight:       gocv.VideoCaptureFrameHeight,
	device.PropFPS:          gocv.VideoCaptureFPS,
	device.PropFrameCount:   gocv.VideoCaptureFrameCount,
	device.PropBrightness:   gocv.VideoCaptureBrightness,
	device.PropContrast:     gocv.VideoCaptureContrast,
	device.PropSaturation:   gocv.VideoCaptureSaturation,
	device.PropHue:          gocv.VideoCaptureHue,
	device.PropGain:         gocv.VideoCaptureGain,
	device.PropExposure:     gocv.VideoCaptureExposure,
	device.PropFormat:       gocv.VideoCaptureFormat,
	device.PropAutoExposure: gocv.VideoCaptureAutoExposure,
	device.PropAutoFocus:    gocv.VideoCaptureAutoFocus,
	device.PropFocus:        gocv.VideoCaptureFocus,
	device.PropZoom:         gocv.VideoCaptureZoom,
}

// ackTolerance is the largest read-back difference still treated as an
// acknowledged set.
const ackTolerance = 1e-3

// Opener opens OpenCV video capture devices.
type Opener struct{}

// New returns an Opener.
func New() *Opener {
	return &Opener{}
}

// Open implements device.Opener.
func (o *Opener) Open(index int) (device.Handle, error) {
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("cvdevice: open %d: %v: %w", index, err, device.ErrDeviceUnavailable)
	}

	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, fmt.Errorf("cvdevice: open %d: %w", index, device.ErrDeviceUnavailable)
	}

	return &Handle{index: index, vc: vc}, nil
}

// Handle wraps one gocv.VideoCapture.
type Handle struct {
	index int

	mu       sync.Mutex
	vc       *gocv.VideoCapture
	released bool
}

// ReadFrame implements device.Handle.
func (h *Handle) ReadFrame(flip bool) (image.Image, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return nil, fmt.Errorf("cvdevice: read %d: handle released: %w", h.index, device.ErrCaptureFailed)
	}

	mat := gocv.NewMat()
	defer mat.Close() //nolint:errcheck // mat is scratch memory

	if ok := h.vc.Read(&mat); !ok {
		return nil, fmt.Errorf("cvdevice: read %d: %w", h.index, device.ErrCaptureFailed)
	}
	if mat.Empty() {
		return nil, fmt.Errorf("cvdevice: read %d: empty frame: %w", h.index, device.ErrCaptureFailed)
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("cvdevice: read %d: convert: %v: %w", h.index, err, device.ErrCaptureFailed)
	}

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
		if h.released {
			out[name] = -1
			continue
		}
		out[name] = h.vc.Get(propertyIDs[name])
	}

	return out
}

// SetProperty implements device.Handle. OpenCV does not surface the driver's
// acknowledgment through gocv, so the value is read back and compared.
func (h *Handle) SetProperty(name string, value float64) bool {
	if !device.IsSettable(name) {
		return false
	}

	id, ok := propertyIDs[name]
	if !ok {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return false
	}

	h.vc.Set(id, value)
	got := h.vc.Get(id)

	return !math.IsNaN(got) && math.Abs(got-value) <= ackTolerance*math.Max(1, math.Abs(value))
}

// Release implements device.Handle.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return nil
	}
	h.released = true

	if err := h.vc.Close(); err != nil {
		return fmt.Errorf("cvdevice: release %d: %w", h.index, err)
	}

	return nil
}
