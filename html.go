package wobsite

import (
	"bytes"

	"golang.org/x/net/html"
)

// ParseHTML parses a complete HTML document, such as the output of a layout
// template, into the document tree page builders return.
func ParseHTML(data []byte) (*html.Node, error) {
	return html.Parse(bytes.NewReader(data))
}

// renderHTML serializes a document tree back to bytes.
func renderHTML(doc *html.Node) ([]byte, error) {
	var buf bytes.Buffer

	if err := html.Render(&buf, doc); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
