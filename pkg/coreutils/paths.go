/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package coreutils

// GetPath walks a chain of nested object keys starting from v.
// ok == false means some segment was absent or a non-object was hit
// before the last segment.
func GetPath(v interface{}, path ...string) (val interface{}, ok bool) {
	cur := v
	for _, seg := range path {
		var m MapObject
		switch o := cur.(type) {
		case MapObject:
			m = o
		case map[string]interface{}:
			m = MapObject(o)
		default:
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// SetPath stores val under the chained key path, creating intermediate
// objects as needed. Panics on an empty path.
func SetPath(m MapObject, val interface{}, path ...string) {
	if len(path) == 0 {
		panic("coreutils.SetPath: empty path")
	}
	cur := m
	for _, seg := range path[:len(path)-1] {
		next, ok, _ := cur.AsObject(seg)
		if !ok {
			next = MapObject{}
			cur[seg] = next
		}
		cur = next
	}
	cur[path[len(path)-1]] = val
}

// DeletePath removes the value under the chained key path. Intermediate
// objects are left in place even when emptied.
func DeletePath(m MapObject, path ...string) {
	if len(path) == 0 {
		return
	}
	cur := m
	for _, seg := range path[:len(path)-1] {
		next, ok, _ := cur.AsObject(seg)
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, path[len(path)-1])
}
