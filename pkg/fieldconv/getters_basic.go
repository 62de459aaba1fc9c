/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package fieldconv

import (
	"context"
	"strings"
	"sync"

	"github.com/untillpro/goutils/logger"

	"github.com/rpmsoftware/integration-common-sub000/pkg/coreutils"
	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
)

func init() {
	registerGetter("value", valueGetter)
	registerGetter("property", propertyGetter)
	registerGetter("constant", constantGetter)
	registerGetter("getFormNumber", formMetaGetter(func(f *rpm.Form) any { return f.Number }))
	registerGetter("getFormStarted", formMetaGetter(func(f *rpm.Form) any { return f.Started }))
	registerGetter("getFormModified", formMetaGetter(func(f *rpm.Form) any { return f.Modified }))
	registerGetter("getFormOwner", newOwnerGetter())
	registerGetter("getIfField", ifFieldGetter)
	registerGetter("getDeep", deepGetter)
}

type propertyCfg struct {
	path   []string
	demand bool
}

// propertyGetter reads an arbitrary nested property path off the target:
// object keys for generic objects, well-known metadata for forms. With
// demand set an absent property is an error instead of nil.
var propertyGetter = &getterStrategy{
	init: func(_ context.Context, d coreutils.MapObject, g *Getter) error {
		path, ok, err := d.AsStrings("property")
		if err != nil || !ok {
			return rpm.ErrConfiguration("property getter needs a property path: %v", err)
		}
		if len(path) == 1 {
			path = strings.Split(path[0], ".")
		}
		demand, _, err := d.AsBoolean("demand")
		if err != nil {
			return rpm.ErrConfiguration("property getter: %v", err)
		}
		g.cfg = &propertyCfg{path: path, demand: demand}
		return nil
	},
	get: func(_ context.Context, g *Getter, target any) (any, error) {
		cfg := g.cfg.(*propertyCfg)
		var val any
		var ok bool
		switch t := target.(type) {
		case coreutils.MapObject:
			val, ok = coreutils.GetPath(t, cfg.path...)
		case map[string]interface{}:
			val, ok = coreutils.GetPath(coreutils.MapObject(t), cfg.path...)
		default:
			if view, isForm := asFormView(target); isForm && len(cfg.path) == 1 {
				val, ok = formMetaProperty(view.Form(), cfg.path[0])
			}
		}
		if !ok {
			return nil, demandMiss(cfg.demand, cfg.path)
		}
		return val, nil
	},
}

func demandMiss(demand bool, path []string) error {
	if demand {
		return rpm.ErrValue("demanded property «%v» is absent", strings.Join(path, "."))
	}
	return nil
}

func formMetaProperty(f *rpm.Form, name string) (any, bool) {
	switch name {
	case "FormID":
		return f.FormID, true
	case "ProcessID":
		return f.ProcessID, true
	case "Number":
		return f.Number, true
	case "Owner":
		return f.Owner, true
	case "Started":
		return f.Started, true
	case "Modified":
		return f.Modified, true
	case "Status":
		return f.Status, true
	case "StatusID":
		return f.StatusID, true
	}
	return nil, false
}

var constantGetter = &getterStrategy{
	init: func(_ context.Context, d coreutils.MapObject, g *Getter) error {
		v, ok := d["value"]
		if !ok {
			return rpm.ErrConfiguration("constant getter needs a value")
		}
		g.cfg = v
		return nil
	},
	get: func(_ context.Context, g *Getter, _ any) (any, error) {
		return g.cfg, nil
	},
}

func formMetaGetter(read func(*rpm.Form) any) *getterStrategy {
	return &getterStrategy{
		get: func(_ context.Context, g *Getter, target any) (any, error) {
			view, ok := asFormView(target)
			if !ok {
				return nil, nil
			}
			return read(view.Form()), nil
		},
	}
}

// newOwnerGetter resolves the form owner's staff entity through the
// directory. Resolved owners are memoized on the compiled strategy; the
// fill is idempotent and guarded for concurrent first use.
func newOwnerGetter() *getterStrategy {
	var mu sync.Mutex
	cache := map[string]*rpm.Entity{}
	return &getterStrategy{
		get: func(ctx context.Context, g *Getter, target any) (any, error) {
			view, ok := asFormView(target)
			if !ok {
				return nil, nil
			}
			owner := view.Form().Owner
			if owner == "" {
				return nil, nil
			}
			mu.Lock()
			e, hit := cache[owner]
			mu.Unlock()
			if !hit {
				staff, err := g.env.api.GetEntities(ctx, rpm.EntityType_Staff)
				if err != nil {
					return nil, err
				}
				for i := range staff {
					if staff[i].Name == owner {
						e = &staff[i]
						break
					}
				}
				mu.Lock()
				cache[owner] = e // nil marks a known miss
				mu.Unlock()
			}
			if e == nil {
				if logger.IsVerbose() {
					logger.Verbose("getFormOwner: staff «" + owner + "» not in directory")
				}
				return owner, nil
			}
			return coreutils.MapObject{"ID": e.EntityID, "Name": e.Name}, nil
		},
	}
}

type ifFieldCfg struct {
	ifUid   string
	allowed map[string]bool
}

// ifFieldGetter returns the source field's value only when a second
// field's value is in the allowed set.
var ifFieldGetter = &getterStrategy{
	init: func(_ context.Context, d coreutils.MapObject, g *Getter) error {
		if g.field == nil {
			return rpm.ErrConfiguration("getIfField needs a source field")
		}
		ifName, err := d.AsStringRequired("ifField")
		if err != nil {
			return rpm.ErrConfiguration("getIfField: %v", err)
		}
		ifDef, ok := g.env.proc.Field(ifName)
		if !ok {
			return rpm.ErrFieldNotFound(ifName)
		}
		allowed, ok, err := d.AsStrings("allowed")
		if err != nil || !ok {
			return rpm.ErrConfiguration("getIfField needs an allowed list: %v", err)
		}
		cfg := &ifFieldCfg{ifUid: ifDef.Uid, allowed: map[string]bool{}}
		for _, a := range allowed {
			cfg.allowed[a] = true
		}
		g.cfg = cfg
		return nil
	},
	get: func(_ context.Context, g *Getter, target any) (any, error) {
		cfg := g.cfg.(*ifFieldCfg)
		view, ok := asFormView(target)
		if !ok {
			return nil, nil
		}
		ifVal, ok := view.FieldByUid(cfg.ifUid)
		if !ok || !cfg.allowed[ifVal.AsString()] {
			return nil, nil
		}
		fv, ok := g.rawValue(target)
		if !ok || fv.Value == nil {
			return nil, nil
		}
		return *fv.Value, nil
	},
}

type deepCfg struct {
	hops   []hop
	nested *Getter
}

type hop struct {
	uid  string
	proc *rpm.Process
}

// deepGetter follows a chain of restricted-reference fields across
// forms, then applies a nested getter to the final form.
var deepGetter = &getterStrategy{
	init: func(ctx context.Context, d coreutils.MapObject, g *Getter) error {
		hopNames, ok, err := d.AsStrings("fields")
		if err != nil || !ok || len(hopNames) == 0 {
			return rpm.ErrConfiguration("getDeep needs a fields chain: %v", err)
		}
		cfg := &deepCfg{}
		cur := g.env.proc
		for _, name := range hopNames {
			def, found := cur.Field(name)
			if !found {
				return rpm.ErrFieldNotFound(name)
			}
			if def.FieldType != rpm.ObjectType_FormReference || def.ReferencedProcessID == 0 {
				return rpm.ErrConfiguration("getDeep hop «%v» is not a reference field", name)
			}
			next, err := g.env.Sibling(ctx, def.ReferencedProcessID)
			if err != nil {
				return err
			}
			cfg.hops = append(cfg.hops, hop{uid: def.Uid, proc: next})
			cur = next
		}
		nestedD, err := d.AsObjectRequired("nested")
		if err != nil {
			return rpm.ErrConfiguration("getDeep: %v", err)
		}
		if cfg.nested, err = InitGetter(ctx, nestedD, g.env.subEnv(cur)); err != nil {
			return err
		}
		g.cfg = cfg
		return nil
	},
	get: func(ctx context.Context, g *Getter, target any) (any, error) {
		cfg := g.cfg.(*deepCfg)
		cur, ok := asFormView(target)
		if !ok {
			return nil, nil
		}
		for _, h := range cfg.hops {
			fv, ok := cur.FieldByUid(h.uid)
			if !ok || fv.ID == 0 {
				return nil, nil
			}
			next, err := g.env.api.GetForm(ctx, fv.ID)
			if err != nil {
				return nil, err
			}
			if next == nil {
				return nil, nil
			}
			cur = rpm.NewFormView(next, h.proc)
		}
		return cfg.nested.Get(ctx, cur)
	},
}
