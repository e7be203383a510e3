// Package page provides the data model handed to page builders: a small
// element tree plus the renderer that turns it into the HTML document served
// to the browser shell.
package page

import (
	"fmt"
	"html"
	"sort"
	"strings"
)

// TestIDAttr is the attribute elements carry to opt in to test-id queries.
const TestIDAttr = "data-testid"

// Node is one element in the tree returned by a page builder.
// Build nodes with El and Text; a Node is rendered depth-first.
type Node struct {
	// Tag is the element name, e.g. "div" or "input". Empty for text nodes.
	Tag string

	// Content is the literal text of a text node. Escaped on render.
	Content string

	Attrs    map[string]string
	Children []*Node
}

// El creates an element node with the given children.
func El(tag string, children ...*Node) *Node {
	return &Node{Tag: tag, Children: children}
}

// Text creates a text node. The content is escaped when rendered.
func Text(content string) *Node {
	return &Node{Content: content}
}

// Attr sets an attribute and returns the node for chaining.
func (n *Node) Attr(key, value string) *Node {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[key] = value
	return n
}

// TestID sets the test-id attribute used by test-id queries.
func (n *Node) TestID(id string) *Node {
	return n.Attr(TestIDAttr, id)
}

// Append adds children and returns the node for chaining.
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// CountNodes returns the number of element nodes in the tree rooted at n,
// including n itself. Text nodes are not counted.
func (n *Node) CountNodes() int {
	if n == nil {
		return 0
	}
	count := 0
	if n.Tag != "" {
		count = 1
	}
	for _, c := range n.Children {
		count += c.CountNodes()
	}
	return count
}

// voidTags are HTML elements that must not have a closing tag.
var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

func (n *Node) writeTo(sb *strings.Builder) {
	if n.Tag == "" {
		sb.WriteString(html.EscapeString(n.Content))
		return
	}
	sb.WriteByte('<')
	sb.WriteString(n.Tag)

	// Deterministic attribute order keeps rendered output stable across
	// serve cycles, which the reload round-trip tests rely on.
	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(sb, ` %s="%s"`, k, html.EscapeString(n.Attrs[k]))
	}
	sb.WriteByte('>')

	if voidTags[n.Tag] {
		return
	}
	for _, c := range n.Children {
		c.writeTo(sb)
	}
	sb.WriteString("</" + n.Tag + ">")
}

// RootID is the id of the container element wrapping the builder's tree in
// every rendered document. The session resolves its page-root handle
// against it.
const RootID = "harness-root"

// Render produces the full HTML document for one serve cycle: the builder's
// tree wrapped in the root container, the helper-script module, and the
// readiness beacon that fires once the document finished loading.
//
// scriptPath is the URL path the helper script is served from.
func Render(root *Node, scriptPath string) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	sb.WriteString("<meta charset=\"utf-8\">\n<title>pagetest</title>\n")
	fmt.Fprintf(&sb, "<script src=%q></script>\n", scriptPath)
	sb.WriteString("</head>\n<body>\n")
	fmt.Fprintf(&sb, "<div id=%q>", RootID)
	if root != nil {
		root.writeTo(&sb)
	}
	sb.WriteString("</div>\n")
	// The beacon runs after the body content and any inline scripts in it,
	// so readiness implies the user page finished initializing.
	sb.WriteString("<script>window.__harness.markReady();</script>\n")
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}
