package report

import (
	"github.com/wI2L/jsondiff"
)

// volatile pointers change on every run and are left out of comparisons.
var volatile = []string{"/summary/generated_at", "/summary/run_id"}

// Diff compares two report documents and returns the JSON Patch turning a
// into b.
func Diff(a, b []byte) (jsondiff.Patch, error) {
	return jsondiff.CompareJSON(a, b, jsondiff.Ignores(volatile...))
}
