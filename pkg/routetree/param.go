package routetree

import "strings"

// EmptyParamMarker is the sentinel value used by intercepted routes for
// parameters that have no path-derived value. ResolveSegment treats it as
// absent.
const EmptyParamMarker = "__PARAM_EMPTY__"

// ParamValue is the raw value of one route parameter: a single string, or an
// array of strings for catch-all segments. The zero value with Multi set
// represents an absent optional catch-all.
type ParamValue struct {
	Value  string
	Values []string
	Multi  bool
}

// SingleValue creates a single-segment parameter value.
func SingleValue(v string) ParamValue {
	return ParamValue{Value: v}
}

// MultiValue creates a catch-all parameter value.
func MultiValue(vs ...string) ParamValue {
	return ParamValue{Multi: true, Values: vs}
}

// Absent reports whether the value carries no data.
func (v ParamValue) Absent() bool {
	if v.Multi {
		return len(v.Values) == 0
	}
	return v.Value == "" || v.Value == EmptyParamMarker
}

// Params maps route parameter names to raw values. The mapping is owned by
// the request; tree walks clone before merging resolved segments in.
type Params map[string]ParamValue

// Clone returns a shallow copy of the mapping.
func (p Params) Clone() Params {
	out := make(Params, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// DynamicParam is the resolved value of one dynamic route segment: the raw
// value seen by application code plus the serialized descriptor it
// round-trips through router state as.
type DynamicParam struct {
	Param       string
	Value       ParamValue
	Kind        SegmentKind
	TreeSegment SegmentRef
}

// ResolveSegment resolves a route-tree segment against the request's
// parameter mapping. Literal segments resolve to nil. An absent value for an
// optional catch-all degrades to a nil value with an empty descriptor; an
// absent value for any other dynamic kind falls back to scanning the
// previously provided router state for a compatible segment (intercepted
// routes carry the value only in the client's current state).
func ResolveSegment(seg Segment, params Params, provided *RouterState) *DynamicParam {
	if !seg.IsDynamic() {
		return nil
	}

	value, ok := params[seg.Value]
	if ok && !value.Multi && value.Value == EmptyParamMarker {
		ok = false
	}
	if !ok {
		if seg.Kind == SegmentOptionalCatchAll {
			return &DynamicParam{
				Param:       seg.Value,
				Value:       ParamValue{Multi: true},
				Kind:        seg.Kind,
				TreeSegment: SegmentRef{Param: seg.Value, Value: "", Kind: seg.Kind},
			}
		}
		return findFromProvidedState(seg, provided)
	}

	if value.Multi != seg.Kind.Multi() {
		// Coerce shape mismatches rather than failing: a single value for a
		// catch-all becomes a one-element array, and vice versa.
		if seg.Kind.Multi() {
			value = ParamValue{Multi: true, Values: []string{value.Value}}
		} else if len(value.Values) > 0 {
			value = ParamValue{Value: value.Values[0]}
		} else {
			value = ParamValue{}
		}
	}

	return &DynamicParam{
		Param:       seg.Value,
		Value:       value,
		Kind:        seg.Kind,
		TreeSegment: SegmentRef{Param: seg.Value, Value: encodeValue(value), Kind: seg.Kind},
	}
}

// findFromProvidedState scans the provided router state depth-first across
// all parallel slots for a segment compatible with seg. First match in
// slot-iteration order wins; no match returns nil.
func findFromProvidedState(seg Segment, state *RouterState) *DynamicParam {
	if state == nil {
		return nil
	}
	if state.Segment.CompatibleWith(seg) {
		value, err := decodeValue(state.Segment.Value, state.Segment.Kind.Multi())
		if err != nil {
			return nil
		}
		// Leaf descriptors carry the query of the request that produced
		// them; the resolved segment must not.
		ref := state.Segment
		if i := strings.IndexByte(ref.Value, '?'); i >= 0 {
			ref.Value = ref.Value[:i]
		}
		return &DynamicParam{
			Param:       seg.Value,
			Value:       value,
			Kind:        state.Segment.Kind,
			TreeSegment: ref,
		}
	}
	for _, slot := range state.Slots {
		if dp := findFromProvidedState(seg, slot.State); dp != nil {
			return dp
		}
	}
	return nil
}
