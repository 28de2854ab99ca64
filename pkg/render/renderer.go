package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/treeline-dev/treeline/pkg/vdom"
)

// deferredMode selects how deferred holes render.
type deferredMode uint8

const (
	// deferInline renders the hole's component in place (dynamic HTML).
	deferInline deferredMode = iota

	// deferPlaceholder emits a placeholder template and records the hole
	// (static shell of a partial prerender).
	deferPlaceholder

	// deferResume renders only the holes named by a postponed token.
	deferResume
)

// holeAttr marks placeholder templates in the static shell.
const holeAttr = "data-treeline-hole"

// resumeAttr marks resumed hole content.
const resumeAttr = "data-treeline-resume"

// nodeRenderer writes a renderable tree as HTML. It is single-use.
type nodeRenderer struct {
	w      io.Writer
	nonce  string
	mode   deferredMode
	resume map[string]bool
	inHole bool
	holes  []string
	flush  func()
}

// suppressed reports whether static output is dropped. A resume render
// emits nothing outside the resumed holes; the client already has the
// static shell.
func (r *nodeRenderer) suppressed() bool {
	return r.mode == deferResume && !r.inHole
}

// render dispatches on node kind.
func (r *nodeRenderer) render(node *vdom.VNode) error {
	if node == nil {
		return nil
	}
	switch node.Kind {
	case vdom.KindElement:
		return r.renderElement(node)
	case vdom.KindText:
		if r.suppressed() {
			return nil
		}
		_, err := io.WriteString(r.w, escapeHTML(node.Text))
		return err
	case vdom.KindRaw:
		if r.suppressed() {
			return nil
		}
		_, err := io.WriteString(r.w, node.Text)
		return err
	case vdom.KindFragment:
		for _, child := range node.Children {
			if err := r.render(child); err != nil {
				return err
			}
		}
		return nil
	case vdom.KindComponent:
		if node.Comp == nil {
			return nil
		}
		return r.render(node.Comp.Render())
	case vdom.KindDeferred:
		return r.renderDeferred(node)
	default:
		return fmt.Errorf("render: unknown node kind %d", node.Kind)
	}
}

// renderDeferred applies the hole policy.
func (r *nodeRenderer) renderDeferred(node *vdom.VNode) error {
	switch r.mode {
	case deferPlaceholder:
		r.holes = append(r.holes, node.Key)
		if _, err := fmt.Fprintf(r.w, `<template %s="%s"></template>`, holeAttr, escapeAttr(node.Key)); err != nil {
			return err
		}
		if r.flush != nil {
			r.flush()
		}
		return nil
	case deferResume:
		if !r.resume[node.Key] {
			return nil
		}
		if _, err := fmt.Fprintf(r.w, `<div hidden %s="%s">`, resumeAttr, escapeAttr(node.Key)); err != nil {
			return err
		}
		if node.Comp != nil {
			prev := r.inHole
			r.inHole = true
			err := r.render(node.Comp.Render())
			r.inHole = prev
			if err != nil {
				return err
			}
		}
		if _, err := io.WriteString(r.w, "</div>"); err != nil {
			return err
		}
		if r.flush != nil {
			r.flush()
		}
		return nil
	default:
		if node.Comp == nil {
			return nil
		}
		return r.render(node.Comp.Render())
	}
}

// renderElement renders an HTML element with its attributes and children.
func (r *nodeRenderer) renderElement(node *vdom.VNode) error {
	if r.suppressed() {
		// Descend looking for resumed holes without re-emitting the tags
		// around them.
		for _, child := range node.Children {
			if err := r.render(child); err != nil {
				return err
			}
		}
		return nil
	}
	tag := node.Tag
	if _, err := io.WriteString(r.w, "<"+tag); err != nil {
		return err
	}
	if err := r.renderAttributes(node); err != nil {
		return err
	}
	if tag == "script" && r.nonce != "" {
		if _, err := fmt.Fprintf(r.w, ` nonce="%s"`, escapeAttr(r.nonce)); err != nil {
			return err
		}
	}
	if isVoidElement(tag) {
		_, err := io.WriteString(r.w, ">")
		return err
	}
	if _, err := io.WriteString(r.w, ">"); err != nil {
		return err
	}
	for _, child := range node.Children {
		if err := r.render(child); err != nil {
			return err
		}
	}
	_, err := io.WriteString(r.w, "</"+tag+">")
	return err
}

// renderAttributes renders attributes in sorted key order for deterministic
// output.
func (r *nodeRenderer) renderAttributes(node *vdom.VNode) error {
	if len(node.Props) == 0 {
		return nil
	}
	keys := make([]string, 0, len(node.Props))
	for key := range node.Props {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if strings.HasPrefix(key, "_") {
			continue
		}
		value := node.Props[key]
		if isBooleanAttr(key) {
			if b, ok := value.(bool); ok {
				if b {
					if _, err := io.WriteString(r.w, " "+key); err != nil {
						return err
					}
				}
				continue
			}
		}
		str := attrToString(value)
		if str == "" {
			continue
		}
		if _, err := fmt.Fprintf(r.w, ` %s="%s"`, key, escapeAttr(str)); err != nil {
			return err
		}
	}
	return nil
}

// attrToString converts an attribute value to a string.
func attrToString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// RenderToString renders a tree to an HTML string with deferred holes
// rendered inline. It serves error shells, static materialization, and
// tests; streamed documents go through RenderDocument.
func RenderToString(node *vdom.VNode) (string, error) {
	var sb strings.Builder
	r := &nodeRenderer{w: &sb}
	if err := r.render(node); err != nil {
		return "", err
	}
	return sb.String(), nil
}
