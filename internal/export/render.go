package export

import (
	"github.com/charmbracelet/glamour"
)

// RenderMarkdown formats an analysis for a terminal, wrapped at width columns.
func RenderMarkdown(md string, width int) (string, error) {
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
