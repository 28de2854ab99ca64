package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestNewFromRegistry(t *testing.T) {
	err := New("T1001")
	if err.Category != CategoryRoute {
		t.Errorf("category = %q, want route", err.Category)
	}
	if err.Message != "Duplicate route" {
		t.Errorf("message = %q", err.Message)
	}
	if !strings.Contains(err.Error(), "T1001") {
		t.Errorf("Error() = %q, missing code", err.Error())
	}
}

func TestNewUnknownCode(t *testing.T) {
	err := New("T9999")
	if err.Code != "T9999" || err.Message != "Unknown error" {
		t.Errorf("got %+v", err)
	}
}

func TestWrapAndUnwrap(t *testing.T) {
	base := stderrors.New("disk full")
	err := New("T3001").Wrap(base)
	if !stderrors.Is(err, base) {
		t.Error("wrapped error not reachable through errors.Is")
	}

	var te *Error
	if !stderrors.As(err, &te) || te.Code != "T3001" {
		t.Error("errors.As failed to recover the structured error")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "T3001") != nil {
		t.Error("nil error should pass through")
	}
	structured := New("T2001")
	if got := FromError(structured, "T3001"); got != structured {
		t.Error("structured error should pass through unchanged")
	}
	wrapped := FromError(stderrors.New("raw"), "T2001")
	if wrapped.Code != "T2001" || wrapped.Wrapped == nil {
		t.Errorf("got %+v", wrapped)
	}
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *Location
	}{
		{"file line column", "app/routes.go:42:7: bad segment", &Location{File: "app/routes.go", Line: 42, Column: 7}},
		{"file line only", "treeline.json:3", &Location{File: "treeline.json", Line: 3}},
		{"no location", "plain message", nil},
		{"zero line", "x.go:0: msg", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLocation(tt.raw)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("got %+v, want nil", got)
				}
				return
			}
			if got == nil || got.File != tt.want.File || got.Line != tt.want.Line || got.Column != tt.want.Column {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("T1002")
	err.Location = &Location{File: "app/blog/[slug.go", Line: 10}
	got := err.FormatCompact()
	if got != "app/blog/[slug.go:10: T1002: Invalid segment syntax" {
		t.Errorf("FormatCompact() = %q", got)
	}
}

func TestFormatPlain(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("T3002").WithSuggestion("exclude the route from the export")
	out := err.Format()
	for _, want := range []string{"ERROR T3002", "Hint: exclude the route", "treeline.dev/docs/errors/T3002"} {
		if !strings.Contains(out, want) {
			t.Errorf("formatted output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("T4002")
	out := err.FormatJSON()
	for _, want := range []string{`"code":"T4002"`, `"category":"action"`, `"message":"Unknown action"`} {
		if !strings.Contains(out, want) {
			t.Errorf("json output missing %q: %s", want, out)
		}
	}
}
