/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package fieldconv

import (
	"context"
	"errors"

	"github.com/rpmsoftware/integration-common-sub000/pkg/coreutils"
	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
)

// FieldMap pairs a source getter with a destination setter per target
// field. It drives form creation and updates: read off the source,
// convert, emit patches.
type FieldMap struct {
	entries []fieldMapEntry
}

type fieldMapEntry struct {
	getter *Getter
	setter *Setter
}

// InitFieldMap compiles a write fieldMap. The descriptor maps each
// destination field name to a getter descriptor for the source value; a
// bare string names the source field (or, with no source schema, the
// source property). Setter options ride along under the reserved keys
// "setter" (strategy name, or an options object) and "condition" (write
// condition tag); everything else belongs to the getter.
func InitFieldMap(ctx context.Context, d coreutils.MapObject, srcEnv, dstEnv *Env) (*FieldMap, error) {
	fm := &FieldMap{entries: make([]fieldMapEntry, 0, len(d))}
	for _, dest := range sortedKeys(d) {
		var gd coreutils.MapObject
		switch v := d[dest].(type) {
		case string:
			if srcEnv != nil && srcEnv.proc != nil {
				gd = coreutils.MapObject{"field": v}
			} else {
				gd = coreutils.MapObject{"property": v}
			}
		case map[string]interface{}:
			gd = coreutils.MapObject(v).Clone()
		case coreutils.MapObject:
			gd = v.Clone()
		default:
			return nil, rpm.ErrConfiguration("fieldMap entry «%v» must be a source name or descriptor", dest)
		}

		sd := coreutils.MapObject{}
		switch sv := gd["setter"].(type) {
		case nil:
		case string:
			sd["setter"] = sv
		case map[string]interface{}:
			sd = coreutils.MapObject(sv)
		case coreutils.MapObject:
			sd = sv
		default:
			return nil, rpm.ErrConfiguration("fieldMap entry «%v»: unexpected setter descriptor %v", dest, sv)
		}
		delete(gd, "setter")
		if wc, ok := gd["condition"].(string); ok {
			sd["condition"] = wc
			delete(gd, "condition")
		}

		setter, err := initFieldFor(ctx, sd, dest, dstEnv)
		if err != nil {
			return nil, rpm.EnrichError(err, "fieldMap entry «%v»", dest)
		}
		getter, err := InitGetter(ctx, gd, srcEnv)
		if err != nil {
			return nil, rpm.EnrichError(err, "fieldMap entry «%v»", dest)
		}
		fm.entries = append(fm.entries, fieldMapEntry{getter: getter, setter: setter})
	}
	return fm, nil
}

// Patches runs the map over one source object. A nil getter result
// skips its entry. A value error on either side lands as an Errors
// annotation on that field's patch and the rest of the map still runs;
// structural errors abort.
func (fm *FieldMap) Patches(ctx context.Context, src any, existing *rpm.FormView) ([]rpm.FieldPatch, error) {
	res := make([]rpm.FieldPatch, 0, len(fm.entries))
	for i := range fm.entries {
		e := &fm.entries[i]
		v, err := e.getter.Get(ctx, src)
		if err != nil {
			if errors.Is(err, rpm.ErrValueError) {
				res = append(res, rpm.FieldPatch{
					Uid:    e.setter.field.Uid,
					Field:  e.setter.field.Name,
					Errors: err.Error(),
				})
				continue
			}
			return nil, err
		}
		if v == nil {
			continue
		}
		patch, err := e.setter.Set(ctx, v, existing)
		if err != nil {
			return nil, err
		}
		if patch != nil {
			res = append(res, *patch)
		}
	}
	return res, nil
}
