package utils

import (
	"github.com/pkg/errors"
)

// AttributeMap is a loosely typed bag of settings as decoded from YAML or JSON. Getters return a
// default when the key is absent and an error when the value has the wrong type.
type AttributeMap map[string]interface{}

// Has reports whether name is set.
func (am AttributeMap) Has(name string) bool {
	_, has := am[name]
	return has
}

// String returns the string at name, or def.
func (am AttributeMap) String(name, def string) (string, error) {
	x, has := am[name]
	if !has {
		return def, nil
	}
	s, ok := x.(string)
	if !ok {
		return "", errors.Wrapf(NewUnexpectedTypeError("", x), "attribute %q", name)
	}
	return s, nil
}

// Bool returns the bool at name, or def.
func (am AttributeMap) Bool(name string, def bool) (bool, error) {
	x, has := am[name]
	if !has {
		return def, nil
	}
	b, ok := x.(bool)
	if !ok {
		return false, errors.Wrapf(NewUnexpectedTypeError(false, x), "attribute %q", name)
	}
	return b, nil
}

// Float64 returns the number at name, or def. Integers are accepted.
func (am AttributeMap) Float64(name string, def float64) (float64, error) {
	x, has := am[name]
	if !has {
		return def, nil
	}
	f, ok := toFloat64(x)
	if !ok {
		return 0, errors.Wrapf(NewUnexpectedTypeError(0.0, x), "attribute %q", name)
	}
	return f, nil
}

// Float64Slice returns the list of numbers at name, or nil when absent.
func (am AttributeMap) Float64Slice(name string) ([]float64, error) {
	x, has := am[name]
	if !has {
		return nil, nil
	}
	switch v := x.(type) {
	case []float64:
		return v, nil
	case []interface{}:
		out := make([]float64, len(v))
		for i, item := range v {
			f, ok := toFloat64(item)
			if !ok {
				return nil, errors.Wrapf(NewUnexpectedTypeError(0.0, item), "attribute %q[%d]", name, i)
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, errors.Wrapf(NewUnexpectedTypeError([]float64(nil), x), "attribute %q", name)
	}
}

// BoolSlice returns the list of bools at name, or nil when absent.
func (am AttributeMap) BoolSlice(name string) ([]bool, error) {
	x, has := am[name]
	if !has {
		return nil, nil
	}
	switch v := x.(type) {
	case []bool:
		return v, nil
	case []interface{}:
		out := make([]bool, len(v))
		for i, item := range v {
			b, ok := item.(bool)
			if !ok {
				return nil, errors.Wrapf(NewUnexpectedTypeError(false, item), "attribute %q[%d]", name, i)
			}
			out[i] = b
		}
		return out, nil
	default:
		return nil, errors.Wrapf(NewUnexpectedTypeError([]bool(nil), x), "attribute %q", name)
	}
}

func toFloat64(x interface{}) (float64, bool) {
	switch v := x.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
