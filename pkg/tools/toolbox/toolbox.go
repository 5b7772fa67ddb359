// Package toolbox defines the Tool type and the ToolBox that registers, lists
// and calls tools.
package toolbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/germanamz/videocapture/pkg/tools/content"
)

// ToolBox orchestrates a collection of tools. It allows registering, filtering,
// listing, and calling tools.
type ToolBox struct {
	tools map[string]Tool
}

// New creates a new ToolBox ready for use.
func New() *ToolBox {
	return &ToolBox{
		tools: make(map[string]Tool),
	}
}

// Register adds one or more tools to the ToolBox. If a tool with the same name
// already exists, it is replaced.
func (tb *ToolBox) Register(tools ...Tool) {
	for _, t := range tools {
		tb.tools[t.Name] = t
	}
}

// Get returns a tool by name and a boolean indicating whether it was found.
func (tb *ToolBox) Get(name string) (Tool, bool) {
	t, ok := tb.tools[name]
	return t, ok
}

// Filter returns a ToolBox holding only the named tools. Unknown names are
// skipped. An empty list returns tb itself.
func (tb *ToolBox) Filter(names []string) *ToolBox {
	if len(names) == 0 {
		return tb
	}

	out := New()
	for _, name := range names {
		if t, ok := tb.Get(name); ok {
			out.Register(t)
		}
	}

	return out
}

// Tools returns all registered tools sorted by name.
func (tb *ToolBox) Tools() []Tool {
	result := make([]Tool, 0, len(tb.tools))
	for _, t := range tb.tools {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	return result
}

// Call executes a tool call and returns a ToolResult. If the tool is not found
// or the handler returns an error, the result will have IsError set to true.
func (tb *ToolBox) Call(ctx context.Context, tc content.ToolCall) content.ToolResult {
	t, ok := tb.Get(tc.Name)
	if !ok {
		return content.ToolResult{
			ToolCallID: tc.ID,
			Parts:      Text(fmt.Sprintf("tool not found: %s", tc.Name)),
			IsError:    true,
		}
	}

	args := json.RawMessage(tc.Arguments)
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	parts, err := t.Handler(ctx, args)
	if err != nil {
		return content.ToolResult{
			ToolCallID: tc.ID,
			Parts:      Text(err.Error()),
			IsError:    true,
		}
	}

	return content.ToolResult{
		ToolCallID: tc.ID,
		Parts:      parts,
	}
}
