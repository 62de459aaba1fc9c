/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package converters

import (
	"context"
	"fmt"
	"strings"

	"github.com/rpmsoftware/integration-common-sub000/pkg/conditions"
	"github.com/rpmsoftware/integration-common-sub000/pkg/coreutils"
	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
	"github.com/rpmsoftware/integration-common-sub000/pkg/views"
)

func init() {
	registerConverter("filter", filterStep)
	registerConverter("flatten", flattenStep)
	registerConverter("extractChildren", extractChildrenStep)
	registerConverter("totals", totalsStep)
	registerConverter("arrayTotals", arrayTotalsStep)
	registerConverter("uniqueConstraint", uniqueConstraintStep)
	registerConverter("addChildren", addChildrenStep)
}

// filter keeps the elements its condition accepts.
type filterCfg struct {
	cond conditions.Condition
}

var filterStep = &strategy{
	init: func(ctx context.Context, d coreutils.MapObject, s *Step) error {
		condD, err := d.AsObjectRequired("condition")
		if err != nil {
			return rpm.ErrConfiguration("filter: %v", err)
		}
		var condEnv conditions.Env
		if ref, found := d["process"]; found {
			proc, err := resolveProcess(ctx, s.api, ref)
			if err != nil {
				return err
			}
			condEnv = proc
		}
		cond, err := conditions.Compile(condD, condEnv)
		if err != nil {
			return err
		}
		s.cfg = &filterCfg{cond: cond}
		return nil
	},
	convert: func(_ context.Context, s *Step, _ *Run, coll []coreutils.MapObject) ([]coreutils.MapObject, error) {
		cfg := s.cfg.(*filterCfg)
		res := coll[:0]
		for _, el := range coll {
			keep, err := conditions.EvalOptional(cfg.cond, el)
			if err != nil {
				return nil, err
			}
			if keep {
				res = append(res, el)
			}
		}
		return res, nil
	},
}

// flatten turns one map-valued property into one element per entry,
// each cloned from the parent. Object entry values merge into the
// clone; scalar values land under valueProperty.
type flattenCfg struct {
	property      string
	keyProperty   string
	valueProperty string
}

var flattenStep = &strategy{
	init: func(_ context.Context, d coreutils.MapObject, s *Step) error {
		cfg := &flattenCfg{}
		var err error
		if cfg.property, err = d.AsStringRequired("property"); err != nil {
			return rpm.ErrConfiguration("flatten: %v", err)
		}
		if cfg.keyProperty, _, err = d.AsString("keyProperty"); err != nil {
			return rpm.ErrConfiguration("flatten: %v", err)
		}
		if cfg.keyProperty == "" {
			cfg.keyProperty = "Key"
		}
		if cfg.valueProperty, _, err = d.AsString("valueProperty"); err != nil {
			return rpm.ErrConfiguration("flatten: %v", err)
		}
		if cfg.valueProperty == "" {
			cfg.valueProperty = "Value"
		}
		s.cfg = cfg
		return nil
	},
	convert: func(_ context.Context, s *Step, _ *Run, coll []coreutils.MapObject) ([]coreutils.MapObject, error) {
		cfg := s.cfg.(*flattenCfg)
		var res []coreutils.MapObject
		for _, el := range coll {
			entries, ok := asElement(el[cfg.property])
			if !ok {
				if el[cfg.property] != nil {
					return nil, rpm.ErrValue("flatten: «%v» is not a map", cfg.property)
				}
				continue
			}
			for _, key := range sortedKeys(entries) {
				child := parentClone(el, cfg.property)
				child[cfg.keyProperty] = key
				if obj, ok := asElement(entries[key]); ok {
					for k, v := range obj {
						child[k] = v
					}
				} else {
					child[cfg.valueProperty] = entries[key]
				}
				res = append(res, child)
			}
		}
		return res, nil
	},
}

// extractChildren turns one array-valued property into one element per
// item, each cloned from the parent.
type extractChildrenCfg struct {
	property      string
	valueProperty string
}

var extractChildrenStep = &strategy{
	init: func(_ context.Context, d coreutils.MapObject, s *Step) error {
		cfg := &extractChildrenCfg{}
		var err error
		if cfg.property, err = d.AsStringRequired("property"); err != nil {
			return rpm.ErrConfiguration("extractChildren: %v", err)
		}
		if cfg.valueProperty, _, err = d.AsString("valueProperty"); err != nil {
			return rpm.ErrConfiguration("extractChildren: %v", err)
		}
		if cfg.valueProperty == "" {
			cfg.valueProperty = "Value"
		}
		s.cfg = cfg
		return nil
	},
	convert: func(_ context.Context, s *Step, _ *Run, coll []coreutils.MapObject) ([]coreutils.MapObject, error) {
		cfg := s.cfg.(*extractChildrenCfg)
		var res []coreutils.MapObject
		for _, el := range coll {
			raw := el[cfg.property]
			if raw == nil {
				continue
			}
			items, ok := raw.([]interface{})
			if !ok {
				return nil, rpm.ErrValue("extractChildren: «%v» is not an array", cfg.property)
			}
			for _, item := range items {
				child := parentClone(el, cfg.property)
				if obj, ok := asElement(item); ok {
					for k, v := range obj {
						child[k] = v
					}
				} else {
					child[cfg.valueProperty] = item
				}
				res = append(res, child)
			}
		}
		return res, nil
	},
}

func parentClone(el coreutils.MapObject, drop string) coreutils.MapObject {
	child := make(coreutils.MapObject, len(el))
	for k, v := range el {
		if k != drop {
			child[k] = v
		}
	}
	return child
}

// totals replaces the collection with one element per group key,
// summing the configured numeric properties.
type totalsCfg struct {
	keyProperty string
	sums        map[string]string
	order       []string
}

var totalsStep = &strategy{
	init: func(_ context.Context, d coreutils.MapObject, s *Step) error {
		cfg := &totalsCfg{sums: map[string]string{}}
		var err error
		if cfg.keyProperty, err = d.AsStringRequired("key"); err != nil {
			return rpm.ErrConfiguration("totals: %v", err)
		}
		if cfg.sums, cfg.order, err = sumSpec(d); err != nil {
			return rpm.ErrConfiguration("totals: %v", err)
		}
		s.cfg = cfg
		return nil
	},
	convert: func(_ context.Context, s *Step, _ *Run, coll []coreutils.MapObject) ([]coreutils.MapObject, error) {
		cfg := s.cfg.(*totalsCfg)
		groups := map[string]coreutils.MapObject{}
		var order []string
		for _, el := range coll {
			key := coerceKey(el[cfg.keyProperty])
			g, found := groups[key]
			if !found {
				g = coreutils.MapObject{cfg.keyProperty: el[cfg.keyProperty]}
				for _, dest := range cfg.order {
					g[dest] = float64(0)
				}
				groups[key] = g
				order = append(order, key)
			}
			for _, dest := range cfg.order {
				n, err := coerceSummand(el[cfg.sums[dest]])
				if err != nil {
					return nil, err
				}
				g[dest] = g[dest].(float64) + n
			}
		}
		res := make([]coreutils.MapObject, len(order))
		for i, key := range order {
			res[i] = groups[key]
		}
		return res, nil
	},
}

// arrayTotals sums over an array-valued property within each element
// and writes the sums onto the element itself.
type arrayTotalsCfg struct {
	property string
	sums     map[string]string
	order    []string
}

var arrayTotalsStep = &strategy{
	init: func(_ context.Context, d coreutils.MapObject, s *Step) error {
		cfg := &arrayTotalsCfg{}
		var err error
		if cfg.property, err = d.AsStringRequired("property"); err != nil {
			return rpm.ErrConfiguration("arrayTotals: %v", err)
		}
		if cfg.sums, cfg.order, err = sumSpec(d); err != nil {
			return rpm.ErrConfiguration("arrayTotals: %v", err)
		}
		s.cfg = cfg
		return nil
	},
	convert: func(_ context.Context, s *Step, _ *Run, coll []coreutils.MapObject) ([]coreutils.MapObject, error) {
		cfg := s.cfg.(*arrayTotalsCfg)
		for _, el := range coll {
			sums := make(map[string]float64, len(cfg.order))
			if items, ok := el[cfg.property].([]interface{}); ok {
				for _, item := range items {
					obj, ok := asElement(item)
					if !ok {
						continue
					}
					for _, dest := range cfg.order {
						n, err := coerceSummand(obj[cfg.sums[dest]])
						if err != nil {
							return nil, err
						}
						sums[dest] += n
					}
				}
			}
			for _, dest := range cfg.order {
				el[dest] = sums[dest]
			}
		}
		return coll, nil
	},
}

func sumSpec(d coreutils.MapObject) (sums map[string]string, order []string, err error) {
	spec, err := d.AsObjectRequired("totals")
	if err != nil {
		return nil, nil, err
	}
	sums = make(map[string]string, len(spec))
	for _, dest := range sortedKeys(spec) {
		src, ok := spec[dest].(string)
		if !ok {
			return nil, nil, rpm.ErrConfiguration("total «%v» must name a source property", dest)
		}
		sums[dest] = src
		order = append(order, dest)
	}
	return sums, order, nil
}

func coerceSummand(v any) (float64, error) {
	if v == nil {
		return 0, nil
	}
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	}
	return 0, rpm.ErrValue("not a number: «%v»", v)
}

func coerceKey(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// uniqueConstraint hashes a projection of properties per element and
// fails the batch when two elements collide.
type uniqueConstraintCfg struct {
	properties []string
}

var uniqueConstraintStep = &strategy{
	init: func(_ context.Context, d coreutils.MapObject, s *Step) error {
		props, ok, err := d.AsStrings("fields")
		if err != nil || !ok || len(props) == 0 {
			return rpm.ErrConfiguration("uniqueConstraint: a fields list is required")
		}
		s.cfg = &uniqueConstraintCfg{properties: props}
		return nil
	},
	convert: func(_ context.Context, s *Step, _ *Run, coll []coreutils.MapObject) ([]coreutils.MapObject, error) {
		cfg := s.cfg.(*uniqueConstraintCfg)
		seen := make(map[string]int, len(coll))
		for i, el := range coll {
			parts := make([]string, len(cfg.properties))
			for j, p := range cfg.properties {
				parts[j] = coerceKey(el[p])
			}
			key := strings.Join(parts, "\x1f")
			if prev, dup := seen[key]; dup {
				return nil, rpm.ErrAssertion("elements %d and %d violate uniqueness over %v", prev, i, cfg.properties)
			}
			seen[key] = i
		}
		return coll, nil
	},
}

// addChildren fetches a view once per run and attaches its rows to the
// elements they join to.
type addChildrenCfg struct {
	view      *views.View
	property  string
	parentKey string
	childKey  string
}

var addChildrenStep = &strategy{
	init: func(ctx context.Context, d coreutils.MapObject, s *Step) error {
		cfg := &addChildrenCfg{}
		viewD, err := d.AsObjectRequired("view")
		if err != nil {
			return rpm.ErrConfiguration("addChildren: %v", err)
		}
		if cfg.view, err = views.Init(ctx, viewD, s.api); err != nil {
			return err
		}
		if cfg.parentKey, err = d.AsStringRequired("parentKey"); err != nil {
			return rpm.ErrConfiguration("addChildren: %v", err)
		}
		if cfg.childKey, _, err = d.AsString("childKey"); err != nil {
			return rpm.ErrConfiguration("addChildren: %v", err)
		}
		if cfg.childKey == "" {
			cfg.childKey = cfg.parentKey
		}
		if cfg.property, _, err = d.AsString("property"); err != nil {
			return rpm.ErrConfiguration("addChildren: %v", err)
		}
		if cfg.property == "" {
			cfg.property = "Children"
		}
		s.cfg = cfg
		return nil
	},
	convert: func(ctx context.Context, s *Step, _ *Run, coll []coreutils.MapObject) ([]coreutils.MapObject, error) {
		cfg := s.cfg.(*addChildrenCfg)
		rows, err := cfg.view.GetForms(ctx)
		if err != nil {
			return nil, err
		}
		byKey := map[string][]interface{}{}
		for _, row := range rows {
			key := coerceKey(row[cfg.childKey])
			if key == "" {
				continue
			}
			byKey[key] = append(byKey[key], row)
		}
		for _, el := range coll {
			children := byKey[coerceKey(el[cfg.parentKey])]
			if children == nil {
				children = []interface{}{}
			}
			el[cfg.property] = children
		}
		return coll, nil
	},
}
