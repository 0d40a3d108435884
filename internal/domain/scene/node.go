// Package scene builds the scoreboard as an SVG-shaped element tree.
//
// The tree is the single source for every output: the markup encoder writes
// it out as SVG and the rasteriser paints it. Composition never touches
// pixels.
package scene

import (
	"strings"

	"github.com/okian/aol-b30/internal/domain/geom"
)

// Attr is one element attribute.
type Attr struct {
	Name  string
	Value string
}

// Node is an element with ordered attributes, optional text and children.
type Node struct {
	Tag      string
	Attrs    []Attr
	Text     string
	Children []*Node
}

// El returns an empty element.
func El(tag string) *Node {
	return &Node{Tag: tag}
}

// Set adds or replaces an attribute.
func (n *Node) Set(name, value string) *Node {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return n
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
	return n
}

// Num sets a numeric attribute.
func (n *Node) Num(name string, v float64) *Node {
	return n.Set(name, geom.FormatNumber(v))
}

// At sets x and y.
func (n *Node) At(p geom.Vector2D) *Node {
	return n.Num("x", p.X).Num("y", p.Y)
}

// Sized sets width and height.
func (n *Node) Sized(s geom.Size) *Node {
	return n.Num("width", s.Width).Num("height", s.Height)
}

// Content sets the text content.
func (n *Node) Content(text string) *Node {
	n.Text = text
	return n
}

// Append adds children in order.
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Attr looks an attribute up.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// ID is the id attribute, or "".
func (n *Node) ID() string {
	v, _ := n.Attr("id")
	return v
}

// Walk visits n and its descendants depth first until fn returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Find returns the first descendant with the given id.
func (n *Node) Find(id string) *Node {
	var found *Node
	n.Walk(func(x *Node) bool {
		if x.ID() == id {
			found = x
			return false
		}
		return true
	})
	return found
}

// Hrefs lists every href in document order.
func (n *Node) Hrefs() []string {
	var out []string
	n.Walk(func(x *Node) bool {
		if v, ok := x.Attr("href"); ok {
			out = append(out, v)
		}
		return true
	})
	return out
}

// RefID extracts the id of a "#id", "url(#id)" or `url("#id")` reference.
func RefID(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if inner, ok := strings.CutPrefix(ref, "url("); ok {
		ref = strings.Trim(strings.TrimSuffix(inner, ")"), `"'`)
	}
	return strings.CutPrefix(ref, "#")
}
