package render

import (
	"context"
	"strings"
	"testing"

	"github.com/treeline-dev/treeline/pkg/flight"
	"github.com/treeline-dev/treeline/pkg/vdom"
)

func renderAll(t *testing.T, root *vdom.VNode, cfg StreamConfig) (string, *StreamResult) {
	t.Helper()
	result, err := RenderDocument(context.Background(), root, cfg)
	if err != nil {
		t.Fatalf("RenderDocument: %v", err)
	}
	html, err := result.Stream.Materialize()
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	return html, result
}

func TestRenderDocumentShell(t *testing.T) {
	root := vdom.El("main", nil, vdom.Text("content"))
	html, _ := renderAll(t, root, StreamConfig{
		Lang:             "de",
		Nonce:            "n0",
		Head:             []*vdom.VNode{vdom.El("title", nil, vdom.Text("Hello"))},
		BootstrapScripts: []string{"/client.js"},
	})

	for _, want := range []string{
		"<!DOCTYPE html>",
		`<html lang="de">`,
		`<meta charset="utf-8">`,
		"<title>Hello</title>",
		`<script src="/client.js" async nonce="n0"></script>`,
		"<main>content</main>",
		"</body></html>",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("document missing %q:\n%s", want, html)
		}
	}
}

func TestRenderDocumentFormState(t *testing.T) {
	html, _ := renderAll(t, vdom.Text("x"), StreamConfig{
		FormState: map[string]string{"name": "ada"},
	})
	if !strings.Contains(html, `self.__treeline_fs={"name":"ada"}`) {
		t.Errorf("form state not inlined:\n%s", html)
	}
}

func TestRenderDocumentPostpone(t *testing.T) {
	ran := false
	root := vdom.El("main", nil,
		vdom.Text("static"),
		vdom.Deferred("feed", vdom.Func(func() *vdom.VNode {
			ran = true
			return vdom.Text("dynamic")
		})),
	)

	html, result := renderAll(t, root, StreamConfig{AllowPostpone: true})

	if ran {
		t.Error("deferred hole ran during shell render")
	}
	if !strings.Contains(html, `<template data-treeline-hole="feed"></template>`) {
		t.Errorf("shell missing hole placeholder:\n%s", html)
	}
	if strings.Contains(html, "dynamic") {
		t.Errorf("deferred content leaked into shell:\n%s", html)
	}

	token := result.Postponed()
	if token == nil || len(token.Holes) != 1 || token.Holes[0] != "feed" {
		t.Fatalf("token = %+v, want one hole 'feed'", token)
	}

	encoded, err := token.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := DecodePostponed(encoded)
	if err != nil {
		t.Fatalf("DecodePostponed: %v", err)
	}
	if back.Holes[0] != "feed" {
		t.Errorf("decoded token = %+v", back)
	}
}

func TestRenderDocumentResume(t *testing.T) {
	root := vdom.El("main", nil,
		vdom.Text("static"),
		vdom.Deferred("feed", vdom.Func(func() *vdom.VNode { return vdom.Text("dynamic") })),
	)

	html, result := renderAll(t, root, StreamConfig{
		Postponed: &PostponedToken{Holes: []string{"feed"}},
	})

	if strings.Contains(html, "static") {
		t.Errorf("resume re-sent static content:\n%s", html)
	}
	if !strings.Contains(html, `data-treeline-resume="feed"`) || !strings.Contains(html, "dynamic") {
		t.Errorf("resume missing hole content:\n%s", html)
	}
	if result.Postponed() != nil {
		t.Error("resume must not postpone again")
	}
}

func TestRenderDocumentNoPostponeWithoutHoles(t *testing.T) {
	_, result := renderAll(t, vdom.Text("plain"), StreamConfig{AllowPostpone: true})
	if result.Postponed() != nil {
		t.Error("token without holes")
	}
}

func TestRenderDocumentError(t *testing.T) {
	var observed error
	root := vdom.Comp(vdom.Func(func() *vdom.VNode {
		// A nil tag element forces a renderer failure path via unknown kind.
		return &vdom.VNode{Kind: vdom.VKind(200)}
	}))

	result, err := RenderDocument(context.Background(), root, StreamConfig{
		OnError: func(err error) { observed = err },
	})
	if err != nil {
		t.Fatalf("RenderDocument: %v", err)
	}
	if _, err := result.Stream.Materialize(); err == nil {
		t.Error("Materialize succeeded, want render failure")
	}
	if observed == nil {
		t.Error("OnError not invoked")
	}
}

func TestContinueInlinesDataRows(t *testing.T) {
	data := flight.NewDataStream()
	go func() {
		data.Write([]byte(`{"path":[]}`))
		data.Write([]byte(`{"path":["children","blog"]}`))
		data.Close()
	}()

	result, err := RenderDocument(context.Background(), vdom.Text("body"), StreamConfig{Nonce: "n1"})
	if err != nil {
		t.Fatalf("RenderDocument: %v", err)
	}

	out := result.Continue(ContinueOptions{Data: data})
	html, err := out.Materialize()
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	if strings.Count(html, "self.__treeline_f.push(") != 2 {
		t.Errorf("want 2 inlined rows:\n%s", html)
	}
	// Rows must land inside the body: before the closing tags.
	lastPush := strings.LastIndex(html, ".push(")
	closing := strings.Index(html, "</body></html>")
	if closing == -1 || lastPush > closing {
		t.Errorf("rows not inside body (push@%d, close@%d):\n%s", lastPush, closing, html)
	}
	if !strings.HasSuffix(html, "</body></html>") {
		t.Errorf("document does not end with closing tags:\n%s", html)
	}
}

func TestContinueExtraHead(t *testing.T) {
	result, err := RenderDocument(context.Background(), vdom.Text("body"), StreamConfig{})
	if err != nil {
		t.Fatalf("RenderDocument: %v", err)
	}

	out := result.Continue(ContinueOptions{
		ExtraHead: func() []*vdom.VNode {
			return []*vdom.VNode{vdom.El("meta", vdom.Props{"name": "description", "content": "late"})}
		},
	})
	html, err := out.Materialize()
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	idx := strings.Index(html, `name="description"`)
	closing := strings.Index(html, "</body></html>")
	if idx == -1 || idx > closing {
		t.Errorf("extra head not before closing tags:\n%s", html)
	}
}

func TestContinueValidateRootLayout(t *testing.T) {
	var observed error
	result, err := RenderDocument(context.Background(), vdom.Text("ok"), StreamConfig{})
	if err != nil {
		t.Fatalf("RenderDocument: %v", err)
	}
	out := result.Continue(ContinueOptions{
		ValidateRootLayout: true,
		OnError:            func(err error) { observed = err },
	})
	if _, err := out.Materialize(); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	// The built-in shell always carries html and body.
	if observed != nil {
		t.Errorf("unexpected validation error: %v", observed)
	}
}
