package toolbox

import (
	"context"
	"encoding/json"

	"github.com/germanamz/videocapture/pkg/tools/content"
)

// Handler executes a tool with the given JSON input and returns the content
// parts of its result.
type Handler func(ctx context.Context, input json.RawMessage) ([]content.Part, error)

// Tool represents an executable tool with a name, description, JSON Schema, and handler.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     Handler
}

// Text wraps s as a single text part.
func Text(s string) []content.Part {
	return []content.Part{content.Text{Text: s}}
}
