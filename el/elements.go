package el

import "github.com/treeline-dev/treeline/pkg/vdom"

// Document metadata.

func Title(args ...any) *vdom.VNode  { return E("title", args...) }
func Meta(args ...any) *vdom.VNode   { return E("meta", args...) }
func LinkEl(args ...any) *vdom.VNode { return E("link", args...) }
func Script(args ...any) *vdom.VNode { return E("script", args...) }
func Style(args ...any) *vdom.VNode  { return E("style", args...) }

// Sectioning and structure.

func Div(args ...any) *vdom.VNode     { return E("div", args...) }
func Span(args ...any) *vdom.VNode    { return E("span", args...) }
func Main(args ...any) *vdom.VNode    { return E("main", args...) }
func Nav(args ...any) *vdom.VNode     { return E("nav", args...) }
func Header(args ...any) *vdom.VNode  { return E("header", args...) }
func Footer(args ...any) *vdom.VNode  { return E("footer", args...) }
func Section(args ...any) *vdom.VNode { return E("section", args...) }
func Article(args ...any) *vdom.VNode { return E("article", args...) }
func Aside(args ...any) *vdom.VNode   { return E("aside", args...) }

func H1(args ...any) *vdom.VNode { return E("h1", args...) }
func H2(args ...any) *vdom.VNode { return E("h2", args...) }
func H3(args ...any) *vdom.VNode { return E("h3", args...) }
func H4(args ...any) *vdom.VNode { return E("h4", args...) }

// Text content.

func P(args ...any) *vdom.VNode          { return E("p", args...) }
func A(args ...any) *vdom.VNode          { return E("a", args...) }
func Ul(args ...any) *vdom.VNode         { return E("ul", args...) }
func Ol(args ...any) *vdom.VNode         { return E("ol", args...) }
func Li(args ...any) *vdom.VNode         { return E("li", args...) }
func Pre(args ...any) *vdom.VNode        { return E("pre", args...) }
func Code(args ...any) *vdom.VNode       { return E("code", args...) }
func Blockquote(args ...any) *vdom.VNode { return E("blockquote", args...) }
func Strong(args ...any) *vdom.VNode     { return E("strong", args...) }
func Em(args ...any) *vdom.VNode         { return E("em", args...) }
func Small(args ...any) *vdom.VNode      { return E("small", args...) }
func Time(args ...any) *vdom.VNode       { return E("time", args...) }
func Br() *vdom.VNode                    { return E("br") }
func Hr() *vdom.VNode                    { return E("hr") }

// Media.

func Img(args ...any) *vdom.VNode     { return E("img", args...) }
func Picture(args ...any) *vdom.VNode { return E("picture", args...) }
func Figure(args ...any) *vdom.VNode  { return E("figure", args...) }

// Tables.

func Table(args ...any) *vdom.VNode { return E("table", args...) }
func Thead(args ...any) *vdom.VNode { return E("thead", args...) }
func Tbody(args ...any) *vdom.VNode { return E("tbody", args...) }
func Tr(args ...any) *vdom.VNode    { return E("tr", args...) }
func Th(args ...any) *vdom.VNode    { return E("th", args...) }
func Td(args ...any) *vdom.VNode    { return E("td", args...) }

// Forms.

func Form(args ...any) *vdom.VNode     { return E("form", args...) }
func Input(args ...any) *vdom.VNode    { return E("input", args...) }
func Textarea(args ...any) *vdom.VNode { return E("textarea", args...) }
func Select(args ...any) *vdom.VNode   { return E("select", args...) }
func Option(args ...any) *vdom.VNode   { return E("option", args...) }
func Button(args ...any) *vdom.VNode   { return E("button", args...) }
func Label(args ...any) *vdom.VNode    { return E("label", args...) }
func Fieldset(args ...any) *vdom.VNode { return E("fieldset", args...) }
