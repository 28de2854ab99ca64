package el

import "strings"

func ID(id string) Attr              { return Attr{"id", id} }
func Class(classes ...string) Attr   { return Attr{"class", strings.Join(classes, " ")} }
func StyleAttr(style string) Attr    { return Attr{"style", style} }
func TitleAttr(title string) Attr    { return Attr{"title", title} }
func Lang(lang string) Attr          { return Attr{"lang", lang} }
func Data(key, value string) Attr    { return Attr{"data-" + key, value} }
func Role(role string) Attr          { return Attr{"role", role} }
func AriaLabel(label string) Attr    { return Attr{"aria-label", label} }
func AriaHidden(hidden bool) Attr    { return Attr{"aria-hidden", hidden} }
func AriaCurrent(value string) Attr  { return Attr{"aria-current", value} }
func AriaDescribedBy(id string) Attr { return Attr{"aria-describedby", id} }

// Links and media.

func Href(href string) Attr      { return Attr{"href", href} }
func Src(src string) Attr        { return Attr{"src", src} }
func Alt(alt string) Attr        { return Attr{"alt", alt} }
func Rel(rel string) Attr        { return Attr{"rel", rel} }
func Target(target string) Attr  { return Attr{"target", target} }
func Width(w string) Attr        { return Attr{"width", w} }
func Height(h string) Attr       { return Attr{"height", h} }
func Loading(mode string) Attr   { return Attr{"loading", mode} }
func DateTime(value string) Attr { return Attr{"datetime", value} }

// Document metadata.

func Charset(cs string) Attr      { return Attr{"charset", cs} }
func Name(name string) Attr       { return Attr{"name", name} }
func Content(content string) Attr { return Attr{"content", content} }
func TypeAttr(t string) Attr      { return Attr{"type", t} }
func Defer() Attr                 { return Attr{"defer", true} }
func Async() Attr                 { return Attr{"async", true} }

// Forms.

func Value(v string) Attr           { return Attr{"value", v} }
func Placeholder(p string) Attr     { return Attr{"placeholder", p} }
func For(id string) Attr            { return Attr{"for", id} }
func Method(m string) Attr          { return Attr{"method", m} }
func Action(a string) Attr          { return Attr{"action", a} }
func Disabled(d bool) Attr          { return Attr{"disabled", d} }
func Required() Attr                { return Attr{"required", true} }
func Autocomplete(mode string) Attr { return Attr{"autocomplete", mode} }
