package main

import (
	"fmt"

	"github.com/germanamz/videocapture/pkg/config"
	"github.com/germanamz/videocapture/pkg/device"
	"github.com/germanamz/videocapture/pkg/device/testpattern"
)

// newOpener returns the device opener selected by the capture settings.
func newOpener(cfg config.CaptureConfig) (device.Opener, error) {
	switch cfg.Backend {
	case config.BackendTestPattern:
		return testpattern.New(cfg.Devices), nil
	case config.BackendOpenCV:
		return openCVOpener()
	default:
		return nil, fmt.Errorf("unknown capture backend %q", cfg.Backend)
	}
}
