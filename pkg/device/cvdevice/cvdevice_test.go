//go:build !nocv

package cvdevice

import (
	"testing"

	"github.com/germanamz/videocapture/pkg/device"
	"github.com/stretchr/testify/assert"
)

func TestPropertyIDsCoverNames(t *testing.T) {
	for _, name := range device.ReportedProperties {
		assert.Contains(t, propertyIDs, name)
	}
	for _, name := range device.SettableProperties {
		assert.Contains(t, propertyIDs, name)
	}
}

func TestReleasedHandle(t *testing.T) {
	h := &Handle{index: 7, released: true}

	_, err := h.ReadFrame(false)
	assert.ErrorIs(t, err, device.ErrCaptureFailed)

	props := h.Properties()
	for _, name := range device.ReportedProperties {
		assert.InDelta(t, -1, props[name], 0)
	}

	assert.False(t, h.SetProperty(device.PropBrightness, 0.5))
	assert.False(t, h.SetProperty(device.PropFrameCount, 1))
	assert.NoError(t, h.Release())
}

func TestOpenMissingDevice(t *testing.T) {
	_, err := New().Open(9999)
	assert.ErrorIs(t, err, device.ErrDeviceUnavailable)
}
