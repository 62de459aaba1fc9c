/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package coreutils

import "fmt"

// MapObject is the generic JSON-compatible object the engines operate on:
// configuration descriptors, converter workpieces and projected view rows
// are all MapObjects. Absence of a key is reported through ok == false,
// a present key of the wrong type is an error.
type MapObject map[string]interface{}

func (m MapObject) AsString(name string) (val string, ok bool, err error) {
	switch v := m[name].(type) {
	case nil:
		return "", false, nil
	case string:
		return v, true, nil
	default:
		return "", true, fmt.Errorf("field '%s' must be a string: %w", name, ErrFieldTypeMismatch)
	}
}

func (m MapObject) AsStringRequired(name string) (val string, err error) {
	val, ok, err := m.AsString(name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("field '%s' missing: %w", name, ErrFieldsMissed)
	}
	return val, nil
}

func (m MapObject) AsObject(name string) (val MapObject, ok bool, err error) {
	switch v := m[name].(type) {
	case nil:
		return nil, false, nil
	case map[string]interface{}:
		return MapObject(v), true, nil
	case MapObject:
		return v, true, nil
	default:
		return nil, true, fmt.Errorf("field '%s' must be an object: %w", name, ErrFieldTypeMismatch)
	}
}

func (m MapObject) AsObjectRequired(name string) (val MapObject, err error) {
	val, ok, err := m.AsObject(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("field '%s' missing: %w", name, ErrFieldsMissed)
	}
	return val, nil
}

func (m MapObject) AsInt64(name string) (val int64, ok bool, err error) {
	switch v := m[name].(type) {
	case nil:
		return 0, false, nil
	case float64:
		return int64(v), true, nil
	case int:
		return int64(v), true, nil
	case int64:
		return v, true, nil
	default:
		return 0, true, fmt.Errorf("field '%s' must be an int64: %w", name, ErrFieldTypeMismatch)
	}
}

func (m MapObject) AsInt64Required(name string) (val int64, err error) {
	val, ok, err := m.AsInt64(name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("field '%s' missing: %w", name, ErrFieldsMissed)
	}
	return val, nil
}

func (m MapObject) AsFloat64(name string) (val float64, ok bool, err error) {
	switch v := m[name].(type) {
	case nil:
		return 0, false, nil
	case float64:
		return v, true, nil
	case int:
		return float64(v), true, nil
	case int64:
		return float64(v), true, nil
	default:
		return 0, true, fmt.Errorf("field '%s' must be a float64: %w", name, ErrFieldTypeMismatch)
	}
}

func (m MapObject) AsBoolean(name string) (val bool, ok bool, err error) {
	switch v := m[name].(type) {
	case nil:
		return false, false, nil
	case bool:
		return v, true, nil
	default:
		return false, true, fmt.Errorf("field '%s' must be a boolean: %w", name, ErrFieldTypeMismatch)
	}
}

func (m MapObject) AsObjects(name string) (val []interface{}, ok bool, err error) {
	switch v := m[name].(type) {
	case nil:
		return nil, false, nil
	case []interface{}:
		return v, true, nil
	default:
		return nil, true, fmt.Errorf("field '%s' must be an array: %w", name, ErrFieldTypeMismatch)
	}
}

func (m MapObject) AsStrings(name string) (val []string, ok bool, err error) {
	raw, ok, err := m.AsObjects(name)
	if err != nil || !ok {
		// a single string is accepted as a one-element list
		if s, sok, serr := m.AsString(name); serr == nil && sok {
			return []string{s}, true, nil
		}
		return nil, ok, err
	}
	val = make([]string, len(raw))
	for i, e := range raw {
		s, sok := e.(string)
		if !sok {
			return nil, true, fmt.Errorf("field '%s' must be an array of strings: %w", name, ErrFieldTypeMismatch)
		}
		val[i] = s
	}
	return val, true, nil
}

// Clone returns a shallow copy. Converter steps that reshape objects work
// on clones so earlier steps' results stay observable to later steps only
// through the threaded collection.
func (m MapObject) Clone() MapObject {
	res := make(MapObject, len(m))
	for k, v := range m {
		res[k] = v
	}
	return res
}
