package routetree

import (
	"encoding/json"
	"reflect"
	"testing"
)

// testTree builds a small tree: root layout with a "children" slot holding a
// dynamic [slug] page and a "sidebar" slot holding a literal page.
func testTree() *RouteTree {
	return &RouteTree{
		Segment: Literal(""),
		Module:  &SegmentModule{Name: "root"},
		Slots: []SlotEntry{
			{Name: DefaultSlot, Tree: &RouteTree{
				Segment: Dynamic("slug"),
				Module:  &SegmentModule{Name: "post", IsPage: true},
			}},
			{Name: "sidebar", Tree: &RouteTree{
				Segment: Literal("recent"),
				Module:  &SegmentModule{Name: "recent", IsPage: true},
			}},
		},
	}
}

func testResolver(params Params) Resolver {
	return func(seg Segment) *DynamicParam {
		return ResolveSegment(seg, params, nil)
	}
}

func TestBuildRouterStateMirrorsTree(t *testing.T) {
	state := BuildRouterState(testTree(), testResolver(Params{"slug": SingleValue("hello")}), "")

	if state.IsLeaf {
		t.Error("root should not be a leaf")
	}
	if len(state.Slots) != 2 {
		t.Fatalf("len(Slots) = %d, want 2", len(state.Slots))
	}
	if state.Slots[0].Name != DefaultSlot || state.Slots[1].Name != "sidebar" {
		t.Errorf("slot order = [%s %s], want [children sidebar]", state.Slots[0].Name, state.Slots[1].Name)
	}

	child := state.Slot(DefaultSlot)
	if !child.IsLeaf {
		t.Error("page node should be a leaf")
	}
	if child.Segment.Param != "slug" || child.Segment.Value != "hello" {
		t.Errorf("segment = %+v, want slug=hello", child.Segment)
	}
}

func TestBuildRouterStateIdempotent(t *testing.T) {
	resolve := testResolver(Params{"slug": SingleValue("hello")})
	a := BuildRouterState(testTree(), resolve, "q=1")
	b := BuildRouterState(testTree(), resolve, "q=1")
	if !reflect.DeepEqual(a, b) {
		t.Errorf("two builds differ:\n%+v\n%+v", a, b)
	}
}

func TestBuildRouterStateQueryFoldedIntoLeaf(t *testing.T) {
	state := BuildRouterState(testTree(), testResolver(Params{"slug": SingleValue("x")}), "page=2")
	sidebar := state.Slot("sidebar")
	if got, want := sidebar.Segment.Literal, "recent?page=2"; got != want {
		t.Errorf("leaf literal = %q, want %q", got, want)
	}
	if state.Segment.Literal != "" {
		t.Errorf("layout literal = %q, want empty (query only folds into leaves)", state.Segment.Literal)
	}
}

func TestBuildRouterStateQueryFoldedIntoDynamicLeaf(t *testing.T) {
	resolve := testResolver(Params{"slug": SingleValue("hello")})
	withQuery := BuildRouterState(testTree(), resolve, "page=2").Slot(DefaultSlot)
	without := BuildRouterState(testTree(), resolve, "").Slot(DefaultSlot)

	if got, want := withQuery.Segment.Value, "hello?page=2"; got != want {
		t.Errorf("leaf value = %q, want %q", got, want)
	}
	if withQuery.Segment.Equal(without.Segment) {
		t.Error("query change left the dynamic leaf descriptor unchanged")
	}
	if withQuery.Segment.Key() == without.Segment.Key() {
		t.Errorf("keys collide: %q", withQuery.Segment.Key())
	}
}

func TestQueryFoldedValueResolvesWithoutQuery(t *testing.T) {
	// Replaying a query-carrying descriptor as provided state must resolve
	// to the raw parameter value, not the value plus query suffix.
	state := BuildRouterState(testTree(), testResolver(Params{"slug": SingleValue("a?b")}), "q=1")

	dp := ResolveSegment(Dynamic("slug"), Params{}, state)
	if dp == nil {
		t.Fatal("provided state did not resolve the segment")
	}
	if dp.Value.Value != "a?b" {
		t.Errorf("resolved value = %q, want %q", dp.Value.Value, "a?b")
	}
}

func TestRouterStateJSONRoundTrip(t *testing.T) {
	state := BuildRouterState(testTree(), testResolver(Params{"slug": SingleValue("a b")}), "q=1")

	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var back RouterState
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(state, &back) {
		t.Errorf("round trip changed state:\n%+v\n%+v", state, &back)
	}
}

func TestRouterStateRoundTripPreservesParamValue(t *testing.T) {
	// A descriptor serialized into router state must resolve back to the
	// same value when that state is replayed as provided state.
	params := Params{"slug": SingleValue("a/b c")}
	state := BuildRouterState(testTree(), testResolver(params), "")

	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var provided RouterState
	if err := json.Unmarshal(data, &provided); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	dp := ResolveSegment(Dynamic("slug"), Params{}, &provided)
	if dp == nil {
		t.Fatal("replayed state did not resolve the segment")
	}
	if dp.Value.Value != "a/b c" {
		t.Errorf("replayed value = %q, want %q", dp.Value.Value, "a/b c")
	}
}

func TestRouterStateUnmarshalInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{"},
		{"too short", `["seg"]`},
		{"bad slots", `["seg", [], "page"]`},
		{"bad kind code", `[["id","1","zz"], {}, "page"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s RouterState
			if err := json.Unmarshal([]byte(tt.data), &s); err == nil {
				t.Errorf("Unmarshal(%q) succeeded, want error", tt.data)
			}
		})
	}
}

func TestSegmentRefJSON(t *testing.T) {
	tests := []struct {
		name string
		ref  SegmentRef
		want string
	}{
		{"literal", LiteralRef("blog"), `"blog"`},
		{"dynamic", SegmentRef{Param: "id", Value: "7", Kind: SegmentDynamic}, `["id","7","d"]`},
		{"catch-all", SegmentRef{Param: "rest", Value: "a/b", Kind: SegmentCatchAll}, `["rest","a/b","c"]`},
		{"optional", SegmentRef{Param: "rest", Value: "", Kind: SegmentOptionalCatchAll}, `["rest","","oc"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.ref)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal = %s, want %s", data, tt.want)
			}
			var back SegmentRef
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if back != tt.ref {
				t.Errorf("round trip = %+v, want %+v", back, tt.ref)
			}
		})
	}
}
