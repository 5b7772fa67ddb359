//go:build !nocv

package main

import (
	"github.com/germanamz/videocapture/pkg/device"
	"github.com/germanamz/videocapture/pkg/device/cvdevice"
)

func openCVOpener() (device.Opener, error) {
	return cvdevice.New(), nil
}
