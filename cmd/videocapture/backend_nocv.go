//go:build nocv

package main

import (
	"errors"

	"github.com/germanamz/videocapture/pkg/device"
)

func openCVOpener() (device.Opener, error) {
	return nil, errors.New("opencv backend not available: built with the nocv tag, use backend: testpattern")
}
