package routetree

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// SegmentKind is the closed set of route segment kinds.
type SegmentKind uint8

const (
	SegmentLiteral          SegmentKind = iota // "blog"
	SegmentDynamic                             // [slug]
	SegmentCatchAll                            // [...slug]
	SegmentOptionalCatchAll                    // [[...slug]]
)

// String returns the string representation of the SegmentKind.
func (k SegmentKind) String() string {
	switch k {
	case SegmentLiteral:
		return "literal"
	case SegmentDynamic:
		return "dynamic"
	case SegmentCatchAll:
		return "catch-all"
	case SegmentOptionalCatchAll:
		return "optional-catch-all"
	default:
		return "unknown"
	}
}

// Multi reports whether the kind carries an array value.
func (k SegmentKind) Multi() bool {
	return k == SegmentCatchAll || k == SegmentOptionalCatchAll
}

// code is the wire code used in serialized segment descriptors.
func (k SegmentKind) code() string {
	switch k {
	case SegmentDynamic:
		return "d"
	case SegmentCatchAll:
		return "c"
	case SegmentOptionalCatchAll:
		return "oc"
	default:
		return ""
	}
}

// kindFromCode is the inverse of code.
func kindFromCode(code string) (SegmentKind, bool) {
	switch code {
	case "d":
		return SegmentDynamic, true
	case "c":
		return SegmentCatchAll, true
	case "oc":
		return SegmentOptionalCatchAll, true
	default:
		return SegmentLiteral, false
	}
}

// Segment is one path component of a route: a literal string, or a dynamic
// placeholder whose Value is the parameter name.
type Segment struct {
	Kind  SegmentKind
	Value string
}

// Literal creates a literal segment.
func Literal(s string) Segment {
	return Segment{Kind: SegmentLiteral, Value: s}
}

// Dynamic creates a single-value dynamic segment ([name]).
func Dynamic(name string) Segment {
	return Segment{Kind: SegmentDynamic, Value: name}
}

// CatchAll creates a catch-all segment ([...name]).
func CatchAll(name string) Segment {
	return Segment{Kind: SegmentCatchAll, Value: name}
}

// OptionalCatchAll creates an optional catch-all segment ([[...name]]).
func OptionalCatchAll(name string) Segment {
	return Segment{Kind: SegmentOptionalCatchAll, Value: name}
}

// IsDynamic reports whether the segment is a dynamic placeholder.
func (s Segment) IsDynamic() bool {
	return s.Kind != SegmentLiteral
}

// String returns the segment in route-pattern notation.
func (s Segment) String() string {
	switch s.Kind {
	case SegmentDynamic:
		return "[" + s.Value + "]"
	case SegmentCatchAll:
		return "[..." + s.Value + "]"
	case SegmentOptionalCatchAll:
		return "[[..." + s.Value + "]]"
	default:
		return s.Value
	}
}

// SegmentRef is the serialized descriptor of one rendered segment: either a
// literal string, or a (param, encoded value, kind) triple for dynamic
// segments. It is the unit the router state is built from.
type SegmentRef struct {
	Literal string
	Param   string
	Value   string // percent-encoded; "" for an absent optional catch-all
	Kind    SegmentKind
}

// LiteralRef creates a descriptor for a literal segment.
func LiteralRef(s string) SegmentRef {
	return SegmentRef{Literal: s}
}

// IsDynamic reports whether the descriptor is a dynamic triple.
func (r SegmentRef) IsDynamic() bool {
	return r.Param != ""
}

// Key returns a canonical string form used in payload paths.
func (r SegmentRef) Key() string {
	if !r.IsDynamic() {
		return r.Literal
	}
	return r.Param + "|" + r.Value + "|" + r.Kind.code()
}

// Equal reports whether two descriptors denote the same rendered segment.
func (r SegmentRef) Equal(other SegmentRef) bool {
	return r == other
}

// CompatibleWith reports whether the descriptor could satisfy the given
// dynamic segment: same parameter name and same single/array shape.
func (r SegmentRef) CompatibleWith(seg Segment) bool {
	if !r.IsDynamic() || !seg.IsDynamic() {
		return false
	}
	return r.Param == seg.Value && r.Kind.Multi() == seg.Kind.Multi()
}

// MarshalJSON encodes a literal as a bare string and a dynamic descriptor as
// the [param, value, kind] triple.
func (r SegmentRef) MarshalJSON() ([]byte, error) {
	if !r.IsDynamic() {
		return json.Marshal(r.Literal)
	}
	return json.Marshal([3]string{r.Param, r.Value, r.Kind.code()})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *SegmentRef) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var lit string
		if err := json.Unmarshal(data, &lit); err != nil {
			return err
		}
		*r = SegmentRef{Literal: lit}
		return nil
	}
	var triple [3]string
	if err := json.Unmarshal(data, &triple); err != nil {
		return fmt.Errorf("routetree: invalid segment descriptor: %w", err)
	}
	kind, ok := kindFromCode(triple[2])
	if !ok {
		return fmt.Errorf("routetree: unknown segment kind code %q", triple[2])
	}
	*r = SegmentRef{Param: triple[0], Value: triple[1], Kind: kind}
	return nil
}

// encodeValue percent-encodes a raw parameter value for serialization.
// Array values are encoded element-wise and joined with "/".
func encodeValue(v ParamValue) string {
	if v.Multi {
		parts := make([]string, len(v.Values))
		for i, s := range v.Values {
			parts[i] = url.PathEscape(s)
		}
		return strings.Join(parts, "/")
	}
	return url.PathEscape(v.Value)
}

// decodeValue is the inverse of encodeValue for the given shape. Leaf
// descriptors carry the request query after a "?"; encodeValue escapes the
// character, so everything from the first bare "?" is dropped.
func decodeValue(encoded string, multi bool) (ParamValue, error) {
	if i := strings.IndexByte(encoded, '?'); i >= 0 {
		encoded = encoded[:i]
	}
	if !multi {
		raw, err := url.PathUnescape(encoded)
		if err != nil {
			return ParamValue{}, err
		}
		return ParamValue{Value: raw}, nil
	}
	if encoded == "" {
		return ParamValue{Multi: true}, nil
	}
	parts := strings.Split(encoded, "/")
	values := make([]string, len(parts))
	for i, p := range parts {
		raw, err := url.PathUnescape(p)
		if err != nil {
			return ParamValue{}, err
		}
		values[i] = raw
	}
	return ParamValue{Multi: true, Values: values}, nil
}
