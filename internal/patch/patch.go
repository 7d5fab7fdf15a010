// Package patch implements RFC 6902 JSON Patch support for entities.
package patch

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/wI2L/jsondiff"
)

// MediaType is the content type of JSON Patch request bodies.
const MediaType = "application/json-patch+json"

// Diff returns a list of operations describing the changes needed to transform [oldObj] into [newObj]
func Diff(oldObj, newObj map[string]any) (jsondiff.Patch, error) {
	return jsondiff.Compare(oldObj, newObj)
}

// Apply applies the JSON encoded operations in [ops] to [target], which must be a
// pointer to a JSON (un)marshalable value. [target] is only modified if the
// patch applies cleanly and the result decodes.
func Apply(target any, ops []byte) error {
	p, err := jsonpatch.DecodePatch(ops)
	if err != nil {
		return fmt.Errorf("cannot decode patch: %w", err)
	}
	doc, err := json.Marshal(target)
	if err != nil {
		return err
	}
	patched, err := p.Apply(doc)
	if err != nil {
		return fmt.Errorf("cannot apply patch: %w", err)
	}
	return json.Unmarshal(patched, target)
}
