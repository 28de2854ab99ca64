package routetree

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Rendering-mode markers carried in serialized router state.
const (
	markerPage    = "page"
	markerLayout  = "layout"
	markerRefetch = "refetch"
)

// RouterState is a serializable mirror of the RouteTree subset actually
// rendered: the segment descriptor, the rendered parallel slots in order, a
// leaf/intermediate marker, and an optional refresh marker. It is sent to
// the client and replayed on later navigations to diff against.
type RouterState struct {
	Segment SegmentRef
	Slots   []StateSlot
	IsLeaf  bool
	Refresh bool
}

// StateSlot pairs a parallel slot name with its child state.
type StateSlot struct {
	Name  string
	State *RouterState
}

// Slot returns the child state for the named slot, or nil.
func (s *RouterState) Slot(name string) *RouterState {
	for _, e := range s.Slots {
		if e.Name == name {
			return e.State
		}
	}
	return nil
}

// MarshalJSON encodes the state as the wire tuple
// [segment, {slot: child, ...}, marker, "refetch"?].
func (s *RouterState) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	seg, err := json.Marshal(s.Segment)
	if err != nil {
		return nil, err
	}
	buf.Write(seg)

	buf.WriteString(",{")
	for i, slot := range s.Slots {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(slot.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		child, err := json.Marshal(slot.State)
		if err != nil {
			return nil, err
		}
		buf.Write(child)
	}
	buf.WriteByte('}')

	marker := markerLayout
	if s.IsLeaf {
		marker = markerPage
	}
	fmt.Fprintf(&buf, ",%q", marker)
	if s.Refresh {
		fmt.Fprintf(&buf, ",%q", markerRefetch)
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the wire tuple, preserving slot order as it appears
// in the serialized object.
func (s *RouterState) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("routetree: invalid router state: %w", err)
	}
	if len(parts) < 2 {
		return fmt.Errorf("routetree: router state tuple too short (%d elements)", len(parts))
	}

	out := RouterState{}
	if err := json.Unmarshal(parts[0], &out.Segment); err != nil {
		return err
	}

	slots, err := decodeSlots(parts[1])
	if err != nil {
		return err
	}
	out.Slots = slots

	if len(parts) > 2 {
		var marker string
		if err := json.Unmarshal(parts[2], &marker); err != nil {
			return err
		}
		out.IsLeaf = marker == markerPage
	}
	if len(parts) > 3 {
		var refresh string
		if err := json.Unmarshal(parts[3], &refresh); err != nil {
			return err
		}
		out.Refresh = refresh == markerRefetch
	}

	*s = out
	return nil
}

// decodeSlots decodes the slot object with a token decoder so that slot
// iteration order survives the round trip. Order matters: the fallback scan
// in segment addressing is first-match-wins.
func decodeSlots(data json.RawMessage) ([]StateSlot, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("routetree: router state slots must be an object")
	}

	var slots []StateSlot
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("routetree: slot name must be a string")
		}
		var child RouterState
		if err := dec.Decode(&child); err != nil {
			return nil, err
		}
		slots = append(slots, StateSlot{Name: name, State: &child})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return slots, nil
}

// Resolver resolves a segment to its dynamic parameter, or nil for literal
// segments. BuildRouterState and the tree walks depend on it instead of the
// raw parameter mapping so addressing stays in one place.
type Resolver func(seg Segment) *DynamicParam

// BuildRouterState derives the serializable router state for a route tree.
// Deterministic: identical tree, resolver, and query inputs produce
// structurally identical states. The query string is folded into leaf
// segments so that page renders with different search parameters diff as
// changed.
func BuildRouterState(tree *RouteTree, resolve Resolver, query string) *RouterState {
	ref := segmentRef(tree.Segment, resolve)

	isLeaf := tree.IsLeaf() || (tree.Module != nil && tree.Module.IsPage)
	if isLeaf && query != "" {
		// The encoded value percent-escapes "?", so the separator is
		// unambiguous. decodeValue strips the suffix before unescaping.
		if ref.IsDynamic() {
			ref.Value += "?" + query
		} else {
			ref.Literal += "?" + query
		}
	}

	state := &RouterState{
		Segment: ref,
		IsLeaf:  isLeaf,
	}
	for _, slot := range tree.Slots {
		state.Slots = append(state.Slots, StateSlot{
			Name:  slot.Name,
			State: BuildRouterState(slot.Tree, resolve, query),
		})
	}
	return state
}

// segmentRef resolves a segment to its serialized descriptor.
func segmentRef(seg Segment, resolve Resolver) SegmentRef {
	if resolve != nil {
		if dp := resolve(seg); dp != nil {
			return dp.TreeSegment
		}
	}
	if seg.IsDynamic() {
		// Unresolvable dynamic segment: serialize with an empty value so the
		// descriptor still round-trips structurally.
		return SegmentRef{Param: seg.Value, Kind: seg.Kind}
	}
	return LiteralRef(seg.Value)
}
