package device

import "errors"

// ProbeResult describes one device index inspected by Probe.
type ProbeResult struct {
	Index     int
	Available bool
	Width     float64
	Height    float64
	FPS       float64
	Err       error
}

// Probe opens the indices 0..limit-1 one after another, records the basic
// geometry of every device that opens, and releases each handle before moving
// on. Devices that fail to open are reported with Available set to false.
func Probe(opener Opener, limit int) []ProbeResult {
	results := make([]ProbeResult, 0, limit)

	for i := range limit {
		r := ProbeResult{Index: i}

		h, err := opener.Open(i)
		if err != nil {
			r.Err = err
			results = append(results, r)
			continue
		}

		props := h.Properties()
		r.Available = true
		r.Width = props[PropWidth]
		r.Height = props[PropHeight]
		r.FPS = props[PropFPS]

		if err := h.Release(); err != nil {
			r.Err = errors.Join(r.Err, err)
		}

		results = append(results, r)
	}

	return results
}
