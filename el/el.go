// Package el is a small authoring layer over vdom. Element constructors
// accept attributes, child nodes, and plain strings in any order, which
// keeps route renderers close to the markup they produce:
//
//	el.Div(el.Class("card"),
//		el.H1("Hello"),
//		el.P(el.Class("lede"), "Welcome back."),
//	)
package el

import "github.com/treeline-dev/treeline/pkg/vdom"

// Attr is a single element attribute.
type Attr struct {
	Key   string
	Value any
}

// VNode aliases the vdom node type so callers rarely need both imports.
type VNode = vdom.VNode

// Text and Textf create text nodes.
var (
	Text  = vdom.Text
	Textf = vdom.Textf
	Raw   = vdom.Raw
	If    = vdom.If
	When  = vdom.When
)

// Fragment groups children without a wrapping element.
var Fragment = vdom.Fragment

// E builds an element from mixed arguments. Each argument is an Attr, a
// vdom.Props map, a child node, a slice of child nodes, or a string
// (rendered as a text node). Nil arguments are skipped.
func E(tag string, args ...any) *vdom.VNode {
	var props vdom.Props
	var children []*vdom.VNode
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
		case Attr:
			if props == nil {
				props = vdom.Props{}
			}
			props[v.Key] = v.Value
		case vdom.Props:
			if props == nil {
				props = vdom.Props{}
			}
			for k, pv := range v {
				props[k] = pv
			}
		case *vdom.VNode:
			if v != nil {
				children = append(children, v)
			}
		case []*vdom.VNode:
			for _, c := range v {
				if c != nil {
					children = append(children, c)
				}
			}
		case string:
			children = append(children, vdom.Text(v))
		}
	}
	return vdom.El(tag, props, children...)
}
