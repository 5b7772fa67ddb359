// Package capturetools exposes the connection registry as seven MCP tools:
// quick_capture, open_camera, capture_frame, get_video_properties,
// set_video_property, close_connection and list_active_connections.
package capturetools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/germanamz/videocapture/pkg/frame"
	"github.com/germanamz/videocapture/pkg/registry"
	"github.com/germanamz/videocapture/pkg/tools/content"
	"github.com/germanamz/videocapture/pkg/tools/toolbox"
)

// ToolNames lists every tool Tools registers.
var ToolNames = []string{
	"quick_capture",
	"open_camera",
	"capture_frame",
	"get_video_properties",
	"set_video_property",
	"close_connection",
	"list_active_connections",
}

// Service binds the tool handlers to a registry and a frame encoder.
type Service struct {
	reg *registry.Registry
	enc frame.Encoder
}

// New creates a Service over reg. Captured frames are encoded with enc.
func New(reg *registry.Registry, enc frame.Encoder) *Service {
	return &Service{reg: reg, enc: enc}
}

// Tools returns a ToolBox with the seven capture tools.
func (s *Service) Tools() *toolbox.ToolBox {
	tb := toolbox.New()

	tb.Register(
		toolbox.Tool{
			Name:        "quick_capture",
			Description: "Open a camera, capture a single frame and close it again. No connection is kept open.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"device_index":{"type":"integer","minimum":0,"description":"Camera index (0 is usually the default webcam)"},"flip":{"type":"boolean","description":"Mirror the image horizontally"}}}`),
			Handler:     s.handleQuickCapture,
		},
		toolbox.Tool{
			Name:        "open_camera",
			Description: "Open a connection to a camera device and return its connection ID.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"device_index":{"type":"integer","minimum":0,"description":"Camera index (0 is usually the default webcam)"},"name":{"type":"string","description":"Optional label for the connection"}}}`),
			Handler:     s.handleOpen,
		},
		toolbox.Tool{
			Name:        "capture_frame",
			Description: "Capture a single frame from a previously opened connection.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"connection_id":{"type":"string","description":"ID returned by open_camera"},"flip":{"type":"boolean","description":"Mirror the image horizontally"}},"required":["connection_id"]}`),
			Handler:     s.handleCapture,
		},
		toolbox.Tool{
			Name:        "get_video_properties",
			Description: "Get the properties of an open connection (width, height, fps, frame_count, brightness, contrast, saturation, format). Unsupported properties report a negative value or null.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"connection_id":{"type":"string","description":"ID returned by open_camera"}},"required":["connection_id"]}`),
			Handler:     s.handleGetProperties,
		},
		toolbox.Tool{
			Name:        "set_video_property",
			Description: "Set a property of an open connection. Returns true if the device accepted the value, false otherwise.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"connection_id":{"type":"string","description":"ID returned by open_camera"},"property_name":{"type":"string","description":"Property to set (width, height, fps, brightness, contrast, saturation, hue, gain, exposure, auto_exposure, auto_focus, focus, zoom)"},"value":{"type":"number","description":"Value to set"}},"required":["connection_id","property_name","value"]}`),
			Handler:     s.handleSetProperty,
		},
		toolbox.Tool{
			Name:        "close_connection",
			Description: "Close a connection and release its camera. Returns false if the connection was already closed.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"connection_id":{"type":"string","description":"ID of the connection to close"}},"required":["connection_id"]}`),
			Handler:     s.handleClose,
		},
		toolbox.Tool{
			Name:        "list_active_connections",
			Description: "List the IDs of all open connections in the order they were opened.",
			InputSchema: json.RawMessage(`{"type":"object"}`),
			Handler:     s.handleList,
		},
	)

	return tb
}

// --- input types ---

type quickCaptureInput struct {
	DeviceIndex int  `json:"device_index"`
	Flip        bool `json:"flip"`
}

type openInput struct {
	DeviceIndex int    `json:"device_index"`
	Name        string `json:"name"`
}

type captureInput struct {
	ConnectionID string `json:"connection_id"`
	Flip         bool   `json:"flip"`
}

type connectionInput struct {
	ConnectionID string `json:"connection_id"`
}

type setPropertyInput struct {
	ConnectionID string   `json:"connection_id"`
	PropertyName string   `json:"property_name"`
	Value        *float64 `json:"value"`
}

// --- handlers ---

func (s *Service) handleQuickCapture(_ context.Context, input json.RawMessage) ([]content.Part, error) {
	var in quickCaptureInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("quick_capture: invalid input: %w", err)
	}

	if in.DeviceIndex < 0 {
		return nil, fmt.Errorf("quick_capture: device_index must be non-negative, got %d", in.DeviceIndex)
	}

	img, err := s.reg.QuickCapture(in.DeviceIndex, in.Flip)
	if err != nil {
		return nil, fmt.Errorf("quick_capture: %w", err)
	}

	return s.imageParts("quick_capture", img)
}

func (s *Service) handleOpen(_ context.Context, input json.RawMessage) ([]content.Part, error) {
	var in openInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("open_camera: invalid input: %w", err)
	}

	if in.DeviceIndex < 0 {
		return nil, fmt.Errorf("open_camera: device_index must be non-negative, got %d", in.DeviceIndex)
	}

	id, err := s.reg.Open(in.DeviceIndex, in.Name)
	if err != nil {
		return nil, fmt.Errorf("open_camera: %w", err)
	}

	return toolbox.Text(id), nil
}

func (s *Service) handleCapture(_ context.Context, input json.RawMessage) ([]content.Part, error) {
	var in captureInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("capture_frame: invalid input: %w", err)
	}

	if in.ConnectionID == "" {
		return nil, errors.New("capture_frame: connection_id is required")
	}

	img, err := s.reg.Capture(in.ConnectionID, in.Flip)
	if err != nil {
		return nil, fmt.Errorf("capture_frame: %w", err)
	}

	return s.imageParts("capture_frame", img)
}

func (s *Service) handleGetProperties(_ context.Context, input json.RawMessage) ([]content.Part, error) {
	var in connectionInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("get_video_properties: invalid input: %w", err)
	}

	if in.ConnectionID == "" {
		return nil, errors.New("get_video_properties: connection_id is required")
	}

	props, err := s.reg.Properties(in.ConnectionID)
	if err != nil {
		return nil, fmt.Errorf("get_video_properties: %w", err)
	}

	// JSON has no NaN or infinities; those readings are sent as null.
	out := make(map[string]any, len(props))
	for name, v := range props {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[name] = nil
			continue
		}
		out[name] = v
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("get_video_properties: marshal: %w", err)
	}

	return toolbox.Text(string(data)), nil
}

func (s *Service) handleSetProperty(_ context.Context, input json.RawMessage) ([]content.Part, error) {
	var in setPropertyInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("set_video_property: invalid input: %w", err)
	}

	if in.ConnectionID == "" {
		return nil, errors.New("set_video_property: connection_id is required")
	}

	if in.PropertyName == "" {
		return nil, errors.New("set_video_property: property_name is required")
	}

	if in.Value == nil {
		return nil, errors.New("set_video_property: value is required")
	}

	ok, err := s.reg.SetProperty(in.ConnectionID, in.PropertyName, *in.Value)
	if err != nil {
		return nil, fmt.Errorf("set_video_property: %w", err)
	}

	return boolText(ok), nil
}

func (s *Service) handleClose(_ context.Context, input json.RawMessage) ([]content.Part, error) {
	var in connectionInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("close_connection: invalid input: %w", err)
	}

	if in.ConnectionID == "" {
		return nil, errors.New("close_connection: connection_id is required")
	}

	return boolText(s.reg.Close(in.ConnectionID)), nil
}

func (s *Service) handleList(_ context.Context, _ json.RawMessage) ([]content.Part, error) {
	data, err := json.Marshal(s.reg.List())
	if err != nil {
		return nil, fmt.Errorf("list_active_connections: marshal: %w", err)
	}

	return toolbox.Text(string(data)), nil
}

// --- helpers ---

// imageParts encodes img and returns it as an image part followed by a
// "<width>x<height> <mime>" summary line.
func (s *Service) imageParts(tool string, img image.Image) ([]content.Part, error) {
	f, err := s.enc.Encode(img)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tool, err)
	}

	return []content.Part{
		content.Image{Data: f.Data, MediaType: f.MIMEType},
		content.Text{Text: fmt.Sprintf("%dx%d %s", f.Width, f.Height, f.MIMEType)},
	}, nil
}

func boolText(ok bool) []content.Part {
	if ok {
		return toolbox.Text("true")
	}

	return toolbox.Text("false")
}
