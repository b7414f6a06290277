// Package rewrite appends cache-busting hash parameters to asset references
// in rendered HTML documents.
package rewrite

import (
	"strings"

	"golang.org/x/net/html"
)

// Hashes exposes content hash lookups keyed by site-absolute URL path.
type Hashes interface {
	Hash(path string) (string, bool)
}

// Assets rewrites asset-referencing attributes in the document, appending a
// ?hash= query parameter to every reference whose target has a known
// content hash:
//
//   - link elements with rel "stylesheet", "icon" or "preload": href
//   - img and script elements: src
//
// References are resolved against pageURL for the lookup only; the
// rewritten attribute keeps the original, possibly relative, reference. The
// document is walked with an explicit stack rather than recursion, so
// deeply nested documents cannot exhaust the stack; every element is
// visited exactly once.
func Assets(doc *html.Node, pageURL string, hashes Hashes) {
	stack := []*html.Node{doc}

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for child := node.FirstChild; child != nil; child = child.NextSibling {
			stack = append(stack, child)
		}

		if node.Type != html.ElementNode {
			continue
		}

		switch node.Data {
		case "link":
			switch attr(node, "rel") {
			case "stylesheet", "icon", "preload":
				rewriteAttr(node, "href", pageURL, hashes)
			}
		case "img", "script":
			rewriteAttr(node, "src", pageURL, hashes)
		}
	}
}

// attr returns the value of the named attribute, or "" when absent.
func attr(node *html.Node, name string) string {
	for _, a := range node.Attr {
		if a.Key == name {
			return a.Val
		}
	}

	return ""
}

// rewriteAttr appends the ?hash= parameter to the named attribute when its
// reference resolves to an indexed file.
func rewriteAttr(node *html.Node, name, pageURL string, hashes Hashes) {
	for i, a := range node.Attr {
		if a.Key != name {
			continue
		}

		if hash, ok := hashes.Hash(resolve(pageURL, a.Val)); ok {
			node.Attr[i].Val = a.Val + "?hash=" + hash
		}

		return
	}
}

// resolve turns a reference into a site-absolute path. Absolute references
// are used as-is; relative ones are resolved against pageURL with its final
// segment stripped, one path segment at a time. Resolving past the root
// yields a path without a leading "/", which never matches an indexed file.
func resolve(pageURL, ref string) string {
	if strings.HasPrefix(ref, "/") {
		return ref
	}

	steps := strings.Split(pageURL, "/")
	if len(steps) > 0 {
		steps = steps[:len(steps)-1]
	}

	for _, step := range strings.Split(ref, "/") {
		switch step {
		case ".":
		case "..":
			if len(steps) > 0 {
				steps = steps[:len(steps)-1]
			}
		default:
			steps = append(steps, step)
		}
	}

	return strings.Join(steps, "/")
}
