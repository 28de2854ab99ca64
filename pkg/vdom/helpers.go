package vdom

import "fmt"

// Text creates a text node.
func Text(content string) *VNode {
	return &VNode{
		Kind: KindText,
		Text: content,
	}
}

// Textf creates a formatted text node.
func Textf(format string, args ...any) *VNode {
	return Text(fmt.Sprintf(format, args...))
}

// Raw creates an unescaped HTML node.
// Use with caution - can lead to XSS if content is user-provided.
func Raw(html string) *VNode {
	return &VNode{
		Kind: KindRaw,
		Text: html,
	}
}

// El creates an element node with the given tag, props, and children.
// Nil children are skipped so conditional branches can return nil directly.
func El(tag string, props Props, children ...*VNode) *VNode {
	node := &VNode{
		Kind:  KindElement,
		Tag:   tag,
		Props: props,
	}
	for _, child := range children {
		if child != nil {
			node.Children = append(node.Children, child)
		}
	}
	return node
}

// Fragment groups children without a wrapper element.
func Fragment(children ...*VNode) *VNode {
	node := &VNode{Kind: KindFragment}
	for _, child := range children {
		if child != nil {
			node.Children = append(node.Children, child)
		}
	}
	return node
}

// Comp wraps a component in a node.
func Comp(c Component) *VNode {
	if c == nil {
		return nil
	}
	return &VNode{Kind: KindComponent, Comp: c}
}

// Deferred marks a component as a postponable hole. The id must be stable
// across the shell render and the later resume render of the same route.
func Deferred(id string, c Component) *VNode {
	return &VNode{Kind: KindDeferred, Key: id, Comp: c}
}

// If returns the node if condition is true, nil otherwise.
func If(condition bool, node *VNode) *VNode {
	if condition {
		return node
	}
	return nil
}

// When is like If but with lazy evaluation.
// The function is only called if condition is true.
func When(condition bool, fn func() *VNode) *VNode {
	if condition {
		return fn()
	}
	return nil
}

// Walk visits node and all descendants in depth-first order. Component and
// deferred nodes are visited but not expanded; rendering is the renderer's
// job, not the walker's.
func Walk(node *VNode, visit func(*VNode) bool) {
	if node == nil || !visit(node) {
		return
	}
	for _, child := range node.Children {
		Walk(child, visit)
	}
}
