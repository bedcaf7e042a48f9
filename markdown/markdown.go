// Package markdown renders user written markdown into HTML for feed descriptions
package markdown

import (
	"strings"

	"github.com/russross/blackfriday/v2"
)

const extensions = blackfriday.CommonExtensions | blackfriday.Strikethrough | blackfriday.Autolink

// Raw HTML in user content is dropped and links are made safe
const htmlFlags = blackfriday.SkipHTML | blackfriday.Safelink | blackfriday.NofollowLinks | blackfriday.NoreferrerLinks

// Renderer converts markdown text to HTML. It holds no state and is safe for
// concurrent use.
type Renderer struct{}

func New() *Renderer {
	return &Renderer{}
}

// ToHTML renders text to HTML. Empty or blank input renders to "".
func (r *Renderer) ToHTML(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	// A renderer per call: blackfriday's HTML renderer keeps per-document state
	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: htmlFlags,
	})

	out := blackfriday.Run(
		[]byte(text),
		blackfriday.WithExtensions(extensions),
		blackfriday.WithRenderer(renderer),
	)
	return strings.TrimSpace(string(out))
}
