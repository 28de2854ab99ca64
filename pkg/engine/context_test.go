package engine

import (
	"errors"
	"fmt"
	"net/url"
	"testing"
)

func TestParseNonce(t *testing.T) {
	tests := []struct {
		name string
		csp  string
		want string
	}{
		{"empty", "", ""},
		{"no nonce", "script-src 'self'", ""},
		{"script-src nonce", "default-src 'self'; script-src 'self' 'nonce-abc123'", "abc123"},
		{"default-src nonce", "default-src 'nonce-xyz'", "xyz"},
		{"unterminated", "script-src 'nonce-abc", ""},
		{"other directive", "style-src 'nonce-abc'", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseNonce(tt.csp); got != tt.want {
				t.Errorf("parseNonce(%q) = %q, want %q", tt.csp, got, tt.want)
			}
		})
	}
}

func TestStripInternalQuery(t *testing.T) {
	q := url.Values{
		"user":           {"ada"},
		"_treeline_nav":  {"1"},
		"_treeline_hint": {"x"},
	}
	got := stripInternalQuery(q)
	if got.Get("user") != "ada" {
		t.Error("application parameter dropped")
	}
	if len(got) != 1 {
		t.Errorf("internal parameters survived: %v", got)
	}
}

func TestParseProvidedState(t *testing.T) {
	if parseProvidedState("") != nil {
		t.Error("empty header should yield no state")
	}
	if parseProvidedState("{not json") != nil {
		t.Error("malformed header should be discarded")
	}
	state := parseProvidedState(`["", {"children": ["home", {}, "page"]}, "layout"]`)
	if state == nil {
		t.Fatal("valid header discarded")
	}
	if child := state.Slot("children"); child == nil || child.Segment.Literal != "home" {
		t.Errorf("state = %+v", state)
	}
}

func TestSignalPredicates(t *testing.T) {
	wrapped := fmt.Errorf("during render: %w", NotFound())
	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should see through wrapping")
	}
	if !IsSignal(Redirect("/x")) || !IsSignal(Bailout("test")) || !IsSignal(NotFound()) {
		t.Error("signal predicate missed a signal")
	}
	if IsSignal(errors.New("plain")) {
		t.Error("plain error treated as signal")
	}
	if rd, ok := AsRedirect(Redirect("/login")); !ok || rd.Status != 307 {
		t.Errorf("AsRedirect = %v, %v", rd, ok)
	}
	var b *StaticGenBailoutError
	if !errors.As(Bailout("reason"), &b) || len(b.Stack) == 0 {
		t.Error("bailout missing stack")
	}
}

func TestMetadataRevalidate(t *testing.T) {
	m := newMetadata(300)
	m.SetRevalidate(600)
	if got := m.Revalidate(); got != 300 {
		t.Errorf("raising revalidate should not stick, got %d", got)
	}
	m.SetRevalidate(60)
	if got := m.Revalidate(); got != 60 {
		t.Errorf("revalidate = %d, want 60", got)
	}
	m.SetRevalidate(0)
	if got := m.Revalidate(); got != 0 {
		t.Errorf("zero must win, got %d", got)
	}
	m.SetRevalidate(120)
	if got := m.Revalidate(); got != 120 {
		t.Errorf("revalidate = %d, want 120", got)
	}

	m.AddCacheTag("posts", "users", "posts", "")
	if tags := m.CacheTags(); len(tags) != 2 || tags[0] != "posts" || tags[1] != "users" {
		t.Errorf("tags = %v", tags)
	}
}
