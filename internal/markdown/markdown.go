// Package markdown renders Markdown bodies into HTML fragments.
package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// converter is shared by all build jobs. Parse state lives in a per-call
// context, so concurrent Convert calls are safe.
var converter = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
)

// Convert renders a Markdown body (front matter already removed) into an
// HTML fragment.
func Convert(body []byte) ([]byte, error) {
	var buf bytes.Buffer

	if err := converter.Convert(body, &buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
