package diffmap

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Null is how a missing or nil value is rendered by [Difference].
const Null = "null"

// Difference calculates a difference between two maps which is suitable for logging.
//
// A nil map is treated like an empty one. The result contains one entry per
// key whose value differs:
//
//	removed:  "<before> -> null"
//	changed:  "<before> -> <after>"
//	added:    "null -> <after>"
//
// Keys are rendered with [fmt.Sprint]. If two distinct keys render to the same
// string, one of the entries is overwritten and which one survives is
// unspecified, since map iteration order is random.
func Difference[K comparable, V any](before, after map[K]V) map[string]string {
	diff := make(map[string]string)

	for key, beforeValue := range before {
		afterValue, ok := after[key]
		if !ok {
			diff[fmt.Sprint(key)] = render(beforeValue) + " -> " + Null
			continue
		}
		if !equalFast(beforeValue, afterValue) {
			diff[fmt.Sprint(key)] = render(beforeValue) + " -> " + render(afterValue)
		}
	}

	for key, afterValue := range after {
		if _, ok := before[key]; !ok {
			diff[fmt.Sprint(key)] = Null + " -> " + render(afterValue)
		}
	}

	return diff
}

// Format renders the result of [Difference] on a single line, sorted by key:
//
//	firstName: Jupp -> Hansi, team: null -> 3
func Format(diff map[string]string) string {
	keys := make([]string, 0, len(diff))
	for k := range diff {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(diff[k])
	}
	return sb.String()
}

// render turns v into its string form, using [Null] for nil values,
// including typed nils hidden inside an interface.
func render(v any) string {
	if isNil(v) {
		return Null
	}
	return fmt.Sprint(v)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
