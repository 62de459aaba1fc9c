/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package fieldconv

import (
	"context"
	"fmt"

	"github.com/rpmsoftware/integration-common-sub000/pkg/conditions"
	"github.com/rpmsoftware/integration-common-sub000/pkg/coreutils"
	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
)

// Getter is a compiled read accessor. Immutable after InitGetter, safe
// for concurrent reuse; network calls happen only where a strategy
// intentionally dereferences other forms.
type Getter struct {
	env      *Env
	field    *rpm.ProcessField
	fullType rpm.FullType
	strategy *getterStrategy
	cfg      any
	cond     conditions.Condition
}

// Field returns the resolved source field, nil for field-less strategies.
func (g *Getter) Field() *rpm.ProcessField { return g.field }

type getterInit func(ctx context.Context, d coreutils.MapObject, g *Getter) error

type getterGet func(ctx context.Context, g *Getter, target any) (any, error)

type getterStrategy struct {
	name string
	init getterInit // optional
	get  getterGet
}

var (
	namedGetters   = map[string]*getterStrategy{}
	typedGetters   = map[rpm.FullType]map[string]*getterStrategy{}
	defaultGetters = map[rpm.FullType]*getterStrategy{}
)

func registerGetter(name string, s *getterStrategy) {
	if _, dup := namedGetters[name]; dup {
		panic("duplicate getter " + name)
	}
	s.name = name
	namedGetters[name] = s
}

// registerTypedGetter binds a named strategy variant to one full type.
func registerTypedGetter(ft rpm.FullType, name string, s *getterStrategy) {
	if !rpm.IsKnownFullType(ft) {
		panic(fmt.Sprintf("typed getter %s: unknown full type %v", name, ft))
	}
	m := typedGetters[ft]
	if m == nil {
		m = map[string]*getterStrategy{}
		typedGetters[ft] = m
	}
	if _, dup := m[name]; dup {
		panic(fmt.Sprintf("duplicate typed getter %s for %v", name, ft))
	}
	s.name = name
	m[name] = s
}

func registerDefaultGetter(ft rpm.FullType, s *getterStrategy) {
	if !rpm.IsKnownFullType(ft) {
		panic(fmt.Sprintf("default getter: unknown full type %v", ft))
	}
	if _, dup := defaultGetters[ft]; dup {
		panic(fmt.Sprintf("duplicate default getter for %v", ft))
	}
	defaultGetters[ft] = s
}

// asFormView widens the accepted target shapes: a view, a bare form, or
// a generic object carrying an attached form under "Form".
func asFormView(target any) (rpm.FormView, bool) {
	switch t := target.(type) {
	case rpm.FormView:
		return t, true
	case *rpm.Form:
		return rpm.NewFormView(t, nil), true
	case coreutils.MapObject:
		switch f := t["Form"].(type) {
		case *rpm.Form:
			return rpm.NewFormView(f, nil), true
		case rpm.FormView:
			return f, true
		}
	}
	return rpm.FormView{}, false
}

// InitGetter compiles a descriptor against the Env's schema. The source
// field is named by "field" (display name or Uid); the strategy by
// "getter", defaulting to the field type's strategy, then to the generic
// raw-value read. May fetch sibling schemas for cross-reference
// strategies.
func InitGetter(ctx context.Context, d coreutils.MapObject, env *Env) (*Getter, error) {
	g := &Getter{env: env}

	fieldRef, hasField, err := d.AsString("field")
	if err != nil {
		return nil, rpm.ErrConfiguration("getter: %v", err)
	}
	if hasField {
		if env == nil || env.proc == nil {
			return nil, rpm.ErrConfiguration("getter for field «%v» compiled without a process schema", fieldRef)
		}
		def, ok := env.proc.Field(fieldRef)
		if !ok {
			return nil, rpm.ErrFieldNotFound(fieldRef)
		}
		g.field = def
		g.fullType = def.FullType()
	}

	name, hasName, err := d.AsString("getter")
	if err != nil {
		return nil, rpm.ErrConfiguration("getter: %v", err)
	}
	switch {
	case hasName:
		if s, ok := typedGetters[g.fullType][name]; ok {
			g.strategy = s
		} else if s, ok := namedGetters[name]; ok {
			g.strategy = s
		} else {
			return nil, rpm.ErrConfiguration("unknown getter «%v» (descriptor: %v)", name, map[string]interface{}(d))
		}
	case g.field != nil:
		if s, ok := defaultGetters[g.fullType]; ok {
			g.strategy = s
		} else {
			g.strategy = valueGetter
		}
	case d["value"] != nil:
		g.strategy = namedGetters["constant"]
	case d["property"] != nil:
		g.strategy = namedGetters["property"]
	default:
		return nil, rpm.ErrConfiguration("getter has no resolvable source field or property (descriptor: %v)", map[string]interface{}(d))
	}

	if g.strategy.init != nil {
		if err := g.strategy.init(ctx, d, g); err != nil {
			return nil, err
		}
	}

	if condD, ok, err := d.AsObject("condition"); err != nil {
		return nil, rpm.ErrConfiguration("getter condition: %v", err)
	} else if ok {
		var condEnv conditions.Env
		if env != nil && env.proc != nil {
			condEnv = env.proc
		}
		if g.cond, err = conditions.Compile(condD, condEnv); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Get extracts the value from a form or generic object. A compiled
// condition gates the read: when it fails the getter yields nil.
// Missing/null values yield nil rather than erroring unless the
// strategy's options demand otherwise.
func (g *Getter) Get(ctx context.Context, target any) (any, error) {
	if g.cond != nil {
		ok, err := g.cond.Eval(target)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
	}
	return g.strategy.get(ctx, g, target)
}

// rawValue reads the getter's source field value entry off the target.
func (g *Getter) rawValue(target any) (*rpm.FieldValue, bool) {
	if g.field == nil {
		return nil, false
	}
	view, ok := asFormView(target)
	if !ok {
		return nil, false
	}
	return view.FieldByUid(g.field.Uid)
}

// valueGetter is the generic fallback: the field's raw Value as a
// string, nil when null.
var valueGetter = &getterStrategy{
	name: "value",
	get: func(_ context.Context, g *Getter, target any) (any, error) {
		fv, ok := g.rawValue(target)
		if !ok || fv.Value == nil {
			return nil, nil
		}
		return *fv.Value, nil
	},
}

// GetterMap projects a form into a plain object: destination property
// to compiled getter. Descriptor values may be full descriptor objects
// or a bare string naming the source field.
type GetterMap struct {
	keys    []string
	getters map[string]*Getter
}

// InitGetterMap compiles a fieldMap descriptor.
func InitGetterMap(ctx context.Context, d coreutils.MapObject, env *Env) (*GetterMap, error) {
	gm := &GetterMap{getters: map[string]*Getter{}}
	for _, key := range sortedKeys(d) {
		var gd coreutils.MapObject
		switch v := d[key].(type) {
		case string:
			gd = coreutils.MapObject{"field": v}
		case map[string]interface{}:
			gd = coreutils.MapObject(v)
		case coreutils.MapObject:
			gd = v
		default:
			return nil, rpm.ErrConfiguration("fieldMap entry «%v» must be a field name or descriptor", key)
		}
		g, err := InitGetter(ctx, gd, env)
		if err != nil {
			return nil, rpm.ErrConfiguration("fieldMap entry «%v»: %v", key, err)
		}
		gm.keys = append(gm.keys, key)
		gm.getters[key] = g
	}
	return gm, nil
}

// Project applies every getter and assembles the result object. Nil
// results are omitted.
func (gm *GetterMap) Project(ctx context.Context, target any) (coreutils.MapObject, error) {
	res := make(coreutils.MapObject, len(gm.keys))
	for _, key := range gm.keys {
		v, err := gm.getters[key].Get(ctx, target)
		if err != nil {
			return nil, err
		}
		if v != nil {
			res[key] = v
		}
	}
	return res, nil
}
