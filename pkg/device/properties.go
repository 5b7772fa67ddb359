package device

// Property names understood by handles.
const (
	PropWidth        = "width"
	PropHeight       = "height"
	PropFPS          = "fps"
	PropFrameCount   = "frame_count"
	PropBrightness   = "brightness"
	PropContrast     = "contrast"
	PropSaturation   = "saturation"
	PropHue          = "hue"
	PropGain         = "gain"
	PropExposure     = "exposure"
	PropFormat       = "format"
	PropAutoExposure = "auto_exposure"
	PropAutoFocus    = "auto_focus"
	PropFocus        = "focus"
	PropZoom         = "zoom"
)

// ReportedProperties is the set returned by Handle.Properties, in display
// order.
var ReportedProperties = []string{
	PropWidth,
	PropHeight,
	PropFPS,
	PropFrameCount,
	PropBrightness,
	PropContrast,
	PropSaturation,
	PropFormat,
}

// SettableProperties is the set accepted by Handle.SetProperty.
var SettableProperties = []string{
	PropWidth,
	PropHeight,
	PropFPS,
	PropBrightness,
	PropContrast,
	PropSaturation,
	PropHue,
	PropGain,
	PropExposure,
	PropAutoExposure,
	PropAutoFocus,
	PropFocus,
	PropZoom,
}

// IsSettable reports whether name is in SettableProperties.
func IsSettable(name string) bool {
	for _, p := range SettableProperties {
		if p == name {
			return true
		}
	}

	return false
}
