package neo4jdb

import (
	"fmt"
)

// NormalizeID collapses every numeric representation the driver may hand back
// for a node identity into one int64. Callers never see driver-native types.
func NormalizeID(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case float64:
		return int64(t), nil
	default:
		return 0, fmt.Errorf("neo4jdb: value %v (%T) is not an identity", v, v)
	}
}

// StringVal coerces a record value into a string, tolerating nil.
func StringVal(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// IntVal coerces a record value into an int, tolerating nil and the driver's
// int64 defaults. Missing quarter and similar optional numerics become 0.
func IntVal(v any) int {
	switch t := v.(type) {
	case nil:
		return 0
	case int64:
		return int(t)
	case int:
		return t
	case float64:
		return int(t)
	default:
		return 0
	}
}

// IDList normalizes a collected list of identities.
func IDList(v any) ([]int64, error) {
	if v == nil {
		return nil, nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("neo4jdb: value %v (%T) is not an identity list", v, v)
	}
	out := make([]int64, 0, len(raw))
	for _, item := range raw {
		id, err := NormalizeID(item)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
