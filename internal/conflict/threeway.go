package conflict

import (
	"reflect"
	"sort"
)

type ThreeWayResult struct {
	Merged map[string]any
	// Conflicts lists the fields both sides changed differently, sorted.
	// The merged value for those fields is the server's.
	Conflicts []string
}

type fieldValue struct {
	present bool
	value   any
}

func lookup(m map[string]any, key string) fieldValue {
	v, ok := m[key]
	return fieldValue{present: ok, value: v}
}

func (a fieldValue) equal(b fieldValue) bool {
	return a.present == b.present && reflect.DeepEqual(a.value, b.value)
}

// MergeThreeWay reconciles client and server against their common ancestor.
// A field absent from a side counts as a value of its own, so a deletion on
// one side is carried into the result when the other side left the field
// untouched.
func MergeThreeWay(ancestor, client, server map[string]any) ThreeWayResult {
	keys := make(map[string]struct{}, len(ancestor)+len(client)+len(server))
	for _, m := range []map[string]any{ancestor, client, server} {
		for k := range m {
			keys[k] = struct{}{}
		}
	}

	result := ThreeWayResult{Merged: make(map[string]any, len(keys))}
	for k := range keys {
		base, c, s := lookup(ancestor, k), lookup(client, k), lookup(server, k)

		var pick fieldValue
		switch {
		case s.equal(base):
			pick = c
		case c.equal(base):
			pick = s
		case c.equal(s):
			pick = s
		default:
			pick = s
			result.Conflicts = append(result.Conflicts, k)
		}
		if pick.present {
			result.Merged[k] = pick.value
		}
	}
	sort.Strings(result.Conflicts)
	return result
}
