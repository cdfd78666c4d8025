package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// maxKeyLength bounds cache key size; longer keys are collapsed to a hash so
// the SQLite backend never sees unbounded key strings.
const maxKeyLength = 200

// Key builds a deterministic cache key from an operation name and its
// parameters. Parameter order never affects the result: names are sorted,
// nil-valued parameters are omitted so semantically equivalent calls hash
// identically, and string slices are sorted before rendering.
func Key(op string, params map[string]any) string {
	names := make([]string, 0, len(params))
	for name, value := range params {
		if isNil(value) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names)+1)
	parts = append(parts, op)
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%s", name, renderValue(params[name])))
	}

	key := strings.Join(parts, ":")
	if len(key) > maxKeyLength {
		sum := sha256.Sum256([]byte(key))
		return op + ":" + hex.EncodeToString(sum[:16])
	}
	return key
}

// isNil reports whether v is nil, including typed nil pointers and slices
// carried in an interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// renderValue stringifies a parameter value. Slices are sorted copies so
// argument order cannot change the key; pointers render their pointee.
func renderValue(v any) string {
	switch val := v.(type) {
	case []string:
		sorted := make([]string, len(val))
		copy(sorted, val)
		sort.Strings(sorted)
		return "[" + strings.Join(sorted, ",") + "]"
	case *bool:
		return fmt.Sprintf("%t", *val)
	case *int:
		return fmt.Sprintf("%d", *val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
