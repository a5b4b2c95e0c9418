// Package markup parses inline sentence markup into a node tree.
//
// Input is a source sentence with optional XML-style annotations, e.g.
//
//	the house is <np translation="das Haus">small</np>
//
// The sentence is wrapped in a synthetic root element before parsing, so
// bare text and multiple top-level elements are accepted. Comments are
// parsed but never surface as children.
//
// Security Notes:
//   - xmlquery uses Go's encoding/xml decoder, which does not fetch
//     external entities.
package markup

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/xmlinput/core/errors"
)

// RootTag is the name of the synthetic element wrapping every sentence.
const RootTag = "xml"

// Document is a parsed sentence.
type Document struct {
	doc  *xmlquery.Node
	root *xmlquery.Node
}

// Node is an element or text node of a parsed sentence.
type Node struct {
	node *xmlquery.Node
}

// Parse wraps input in the synthetic root element and parses it.
func Parse(input string) (*Document, error) {
	wrapped := "<" + RootTag + ">" + input + "</" + RootTag + ">"

	doc, err := xmlquery.Parse(strings.NewReader(wrapped))
	if err != nil {
		return nil, &errors.ParseError{Format: "markup", Message: err.Error(), Err: err}
	}

	var root *xmlquery.Node
	for child := doc.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xmlquery.ElementNode {
			continue
		}
		if root != nil {
			// Input closed the synthetic root early, e.g. "a</xml><xml>b".
			return nil, errors.NewParse("markup", "", "unbalanced root element")
		}
		root = child
	}
	if root == nil || root.Data != RootTag {
		return nil, errors.NewParse("markup", "", "missing root element")
	}

	return &Document{doc: doc, root: root}, nil
}

// Root returns the synthetic root element.
func (d *Document) Root() *Node {
	return &Node{node: d.root}
}

// Select executes an XPath query relative to the synthetic root.
func (d *Document) Select(expr string) ([]*Node, error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath: %w", err)
	}

	nodes := xmlquery.QuerySelectorAll(d.root, compiled)
	result := make([]*Node, len(nodes))
	for i, n := range nodes {
		result[i] = &Node{node: n}
	}
	return result, nil
}

// CountElements returns the number of elements named tag anywhere below
// the root.
func (d *Document) CountElements(tag string) (int, error) {
	compiled, err := xpath.Compile("count(.//" + tag + ")")
	if err != nil {
		return 0, fmt.Errorf("invalid element name %q: %w", tag, err)
	}

	v, ok := compiled.Evaluate(xmlquery.CreateXPathNavigator(d.root)).(float64)
	if !ok {
		return 0, fmt.Errorf("count(%s) did not evaluate to a number", tag)
	}
	return int(v), nil
}

// String serializes the sentence back to markup, without the synthetic root.
func (d *Document) String() string {
	var buf bytes.Buffer
	for child := d.root.FirstChild; child != nil; child = child.NextSibling {
		buf.WriteString(child.OutputXML(true))
	}
	return buf.String()
}

// Dump writes an indented outline of the tree, one node per line.
func (d *Document) Dump(w io.Writer) error {
	return dumpNode(w, d.root, 0)
}

func dumpNode(w io.Writer, n *xmlquery.Node, depth int) error {
	indent := strings.Repeat("  ", depth)
	switch n.Type {
	case xmlquery.ElementNode:
		var attrs strings.Builder
		for _, a := range n.Attr {
			fmt.Fprintf(&attrs, " %s=%q", a.Name.Local, a.Value)
		}
		if _, err := fmt.Fprintf(w, "%s<%s%s>\n", indent, elementName(n), attrs.String()); err != nil {
			return err
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if err := dumpNode(w, child, depth+1); err != nil {
				return err
			}
		}
	case xmlquery.TextNode, xmlquery.CharDataNode:
		text := strings.TrimSpace(n.Data)
		if text == "" {
			return nil
		}
		if _, err := fmt.Fprintf(w, "%s%q\n", indent, text); err != nil {
			return err
		}
	}
	return nil
}

// Name returns the element name, or "" for text nodes.
func (n *Node) Name() string {
	if n.node == nil || n.node.Type != xmlquery.ElementNode {
		return ""
	}
	return elementName(n.node)
}

// Value returns the direct text of a text node, or "" for elements.
func (n *Node) Value() string {
	if n.node == nil {
		return ""
	}
	switch n.node.Type {
	case xmlquery.TextNode, xmlquery.CharDataNode:
		return n.node.Data
	}
	return ""
}

// IsElement reports whether the node is an element.
func (n *Node) IsElement() bool {
	return n.node != nil && n.node.Type == xmlquery.ElementNode
}

// Attr returns the value of the named attribute and whether it is present.
func (n *Node) Attr(name string) (string, bool) {
	if n.node == nil {
		return "", false
	}
	for _, a := range n.node.Attr {
		if a.Name.Local == name && a.Name.Space == "" {
			return a.Value, true
		}
	}
	return "", false
}

// Children returns element and text children in document order.
// Comments and processing instructions are skipped.
func (n *Node) Children() []*Node {
	if n.node == nil {
		return nil
	}

	var children []*Node
	for child := n.node.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case xmlquery.ElementNode, xmlquery.TextNode, xmlquery.CharDataNode:
			children = append(children, &Node{node: child})
		}
	}
	return children
}

// InnerText returns all text content of the node and its descendants.
func (n *Node) InnerText() string {
	if n.node == nil {
		return ""
	}
	return n.node.InnerText()
}

func elementName(n *xmlquery.Node) string {
	if n.Prefix != "" {
		return n.Prefix + ":" + n.Data
	}
	return n.Data
}
