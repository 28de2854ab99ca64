package flight

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/treeline-dev/treeline/pkg/routetree"
	"github.com/treeline-dev/treeline/pkg/vdom"
)

// nodeData is the JSON data representation of a rendered node. Exactly one
// shape field is populated per node.
type nodeData struct {
	Tag      string         `json:"t,omitempty"`
	Props    map[string]any `json:"p,omitempty"`
	Children []*nodeData    `json:"c,omitempty"`
	Text     *string        `json:"x,omitempty"`
	Raw      *string        `json:"h,omitempty"`
}

// encodeNode converts a rendered tree to its data representation. Components
// and deferred holes are expanded inline: the payload is for clients that
// render everything they receive.
func encodeNode(node *vdom.VNode) *nodeData {
	if node == nil {
		return nil
	}
	switch node.Kind {
	case vdom.KindText:
		text := node.Text
		return &nodeData{Text: &text}
	case vdom.KindRaw:
		raw := node.Text
		return &nodeData{Raw: &raw}
	case vdom.KindComponent, vdom.KindDeferred:
		if node.Comp == nil {
			return nil
		}
		return encodeNode(node.Comp.Render())
	case vdom.KindFragment:
		return &nodeData{Children: encodeChildren(node.Children)}
	case vdom.KindElement:
		return &nodeData{
			Tag:      node.Tag,
			Props:    normalizeProps(node.Props),
			Children: encodeChildren(node.Children),
		}
	default:
		return nil
	}
}

func encodeChildren(children []*vdom.VNode) []*nodeData {
	var out []*nodeData
	for _, child := range children {
		if encoded := encodeNode(child); encoded != nil {
			out = append(out, encoded)
		}
	}
	return out
}

// normalizeProps copies props with deterministic value representations so
// payload bytes are stable across runs.
func normalizeProps(props vdom.Props) map[string]any {
	if len(props) == 0 {
		return nil
	}
	out := make(map[string]any, len(props))
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out[k] = fmt.Sprintf("%v", props[k])
	}
	return out
}

// payloadRow is the wire form of one entry:
// [path, routerState, nodeData, headData].
type payloadRow struct {
	Path []string               `json:"path"`
	Tree *routetree.RouterState `json:"tree"`
	Node *nodeData              `json:"node,omitempty"`
	Head *nodeData              `json:"head,omitempty"`
}

// WriteEntry serializes one entry as a newline-terminated JSON row.
func WriteEntry(w io.Writer, entry PayloadEntry) error {
	row := payloadRow{
		Path: entry.Path,
		Tree: entry.Tree,
		Node: encodeNode(entry.Node),
		Head: encodeNode(entry.Head),
	}
	if row.Path == nil {
		row.Path = []string{}
	}
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// EncodePayload serializes entries to the newline-delimited payload string.
func EncodePayload(entries []PayloadEntry) (string, error) {
	var buf bytes.Buffer
	for _, entry := range entries {
		if err := WriteEntry(&buf, entry); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
