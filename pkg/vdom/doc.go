// Package vdom provides the renderable node tree used by the render engine.
//
// VNode is the fundamental building block representing elements, text,
// fragments, components, raw HTML, and deferred holes. Unlike a client-side
// virtual DOM there is no diffing or hydration here: trees are built once per
// request and consumed by the document renderer and the tree payload
// generator.
//
// # Building trees
//
// Elements are created with El and the usual helpers:
//
//	vdom.El("div", vdom.Props{"class": "card"},
//	    vdom.El("h1", nil, vdom.Text("Title")),
//	    vdom.El("p", nil, vdom.Text("Content")),
//	)
//
// # Deferred holes
//
// Deferred wraps a component whose rendering may be postponed during a
// partial prerender. The document renderer decides whether to render it
// inline or emit a placeholder and a resume token.
package vdom
