// Package diffmap computes differences between two maps.
//
// [Difference] produces a flat, human-readable summary suitable for logging:
// every key whose value changed, appeared or disappeared is mapped to a
// "<before> -> <after>" description, with "null" standing in for a missing
// side.
//
// [Diff] computes the change-set that would turn map [a] into map [b]. A
// change-set is itself a [map[string]any] that contains only the keys that
// differ. Added keys get their new value, removed keys get a nil value, and
// modified nested-maps are expressed recursively. [Apply] replays it.
package diffmap

type DiffMap = map[string]any
