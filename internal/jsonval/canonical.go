package jsonval

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
)

// Canonicalize returns the unique canonical JSON string for v: object keys
// sorted ascending by code unit, numbers rendered per ES6 Number.toString
// (via RFC 8785 JCS), no trailing whitespace, array order preserved.
//
// encoding/json already sorts map[string]any keys and rejects NaN/Inf with an
// error; jsoncanonicalizer.Transform re-renders numbers to the JCS form so
// that the byte output matches other JCS implementations bit-for-bit (the
// property logHash/manifestHash depend on across reruns and across tools).
func Canonicalize(v Value) (string, error) {
	if err := validate(v, nil); err != nil {
		return "", &ErrInvalidJSON{Reason: err.Error()}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", &ErrInvalidJSON{Reason: err.Error()}
	}
	canon, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return "", &ErrInvalidJSON{Reason: err.Error()}
	}
	return string(canon), nil
}

// CanonicalizeJSONL concatenates the canonicalization of each value with "\n",
// with a single trailing "\n".
func CanonicalizeJSONL(vs []Value) (string, error) {
	var b strings.Builder
	for _, v := range vs {
		line, err := Canonicalize(v)
		if err != nil {
			return "", err
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// validate rejects non-finite numbers, function values, cycles, and anything
// that isn't a plain JSON-compatible value. stack holds the pointer identity
// of maps/slices currently being walked, so a true cycle (a value containing
// itself) is rejected while a DAG (the same sub-value reachable twice) is not.
func validate(v any, stack []uintptr) error {
	switch t := v.(type) {
	case nil, bool, string:
		return nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("non-finite number")
		}
		return nil
	case int, int64, int32:
		return nil
	case map[string]any:
		ptr := reflect.ValueOf(t).Pointer()
		for _, p := range stack {
			if p == ptr {
				return fmt.Errorf("cyclic object reference")
			}
		}
		stack = append(stack, ptr)
		for _, val := range t {
			if err := validate(val, stack); err != nil {
				return err
			}
		}
		return nil
	case []any:
		ptr := reflect.ValueOf(t).Pointer()
		for _, p := range stack {
			if p == ptr {
				return fmt.Errorf("cyclic array reference")
			}
		}
		stack = append(stack, ptr)
		for _, val := range t {
			if err := validate(val, stack); err != nil {
				return err
			}
		}
		return nil
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(t, &decoded); err != nil {
			return fmt.Errorf("invalid raw json: %w", err)
		}
		return validate(decoded, stack)
	default:
		return fmt.Errorf("unsupported type %T", v)
	}
}
