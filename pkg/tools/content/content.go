// Package content defines the content parts carried by tool calls and tool
// results.
package content

import "strings"

// Part is a piece of content within a tool result.
type Part interface {
	PartKind() string
}

// Text is a plain text content part.
type Text struct {
	Text string
}

func (t Text) PartKind() string { return "text" }

// Image is an image content part embedded as encoded bytes.
type Image struct {
	Data      []byte
	MediaType string
}

func (i Image) PartKind() string { return "image" }

// ToolCall is a request to invoke a tool. Arguments holds the raw JSON object.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

func (tc ToolCall) PartKind() string { return "tool_call" }

// ToolResult holds the output of a tool invocation.
type ToolResult struct {
	ToolCallID string
	Parts      []Part
	IsError    bool
}

func (tr ToolResult) PartKind() string { return "tool_result" }

// Text joins the text parts of the result with newlines.
func (tr ToolResult) Text() string {
	var texts []string
	for _, p := range tr.Parts {
		if t, ok := p.(Text); ok {
			texts = append(texts, t.Text)
		}
	}

	return strings.Join(texts, "\n")
}

// Images returns the image parts of the result in order.
func (tr ToolResult) Images() []Image {
	var images []Image
	for _, p := range tr.Parts {
		if img, ok := p.(Image); ok {
			images = append(images, img)
		}
	}

	return images
}
