/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package converters

import (
	"context"

	"github.com/dop251/goja"

	"github.com/rpmsoftware/integration-common-sub000/pkg/coreutils"
	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
)

func init() {
	registerConverter("script", scriptStep)
	registerConverter("method", methodStep)
}

// script evaluates a user-authored ECMAScript program per element. The
// element is bound as "obj" and may be mutated in place; the program's
// completion value is stored under "property" when one is configured.
// The program compiles once at init; each element gets a fresh vm, so
// scripts cannot leak state across elements.
type scriptCfg struct {
	prog     *goja.Program
	property string
}

var scriptStep = &strategy{
	init: func(_ context.Context, d coreutils.MapObject, s *Step) error {
		src, err := d.AsStringRequired("script")
		if err != nil {
			return rpm.ErrConfiguration("script: %v", err)
		}
		prog, err := goja.Compile("script", src, true)
		if err != nil {
			return rpm.ErrConfiguration("script does not compile: %v", err)
		}
		cfg := &scriptCfg{prog: prog}
		if cfg.property, _, err = d.AsString("property"); err != nil {
			return rpm.ErrConfiguration("script: %v", err)
		}
		s.cfg = cfg
		return nil
	},
	convert: func(ctx context.Context, s *Step, run *Run, coll []coreutils.MapObject) ([]coreutils.MapObject, error) {
		cfg := s.cfg.(*scriptCfg)
		err := s.forEach(ctx, run, coll, func(el coreutils.MapObject) error {
			vm := goja.New()
			if err := vm.Set("obj", map[string]interface{}(el)); err != nil {
				return rpm.ErrValue("script: %v", err)
			}
			v, err := vm.RunProgram(cfg.prog)
			if err != nil {
				return rpm.ErrValue("script failed: %v", err)
			}
			if cfg.property != "" && v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
				el[cfg.property] = v.Export()
			}
			return nil
		})
		return coll, err
	},
}

// Method is a registered callback the "method" strategy dispatches to.
// External bridge plugins (mailers, document generators, third-party
// API clients) hook into pipelines through this seam.
type Method func(ctx context.Context, api rpm.API, el coreutils.MapObject) error

var methods = map[string]Method{}

// RegisterMethod installs a named callback. Registration happens from
// init functions of plugin packages; a duplicate name is a programming
// error.
func RegisterMethod(name string, m Method) {
	if _, dup := methods[name]; dup {
		panic("duplicate method " + name)
	}
	methods[name] = m
}

type methodCfg struct {
	m Method
}

var methodStep = &strategy{
	init: func(_ context.Context, d coreutils.MapObject, s *Step) error {
		name, err := d.AsStringRequired("method")
		if err != nil {
			return rpm.ErrConfiguration("method: %v", err)
		}
		m, known := methods[name]
		if !known {
			return rpm.ErrConfiguration("unknown method «%v»", name)
		}
		s.cfg = &methodCfg{m: m}
		return nil
	},
	convert: func(ctx context.Context, s *Step, run *Run, coll []coreutils.MapObject) ([]coreutils.MapObject, error) {
		cfg := s.cfg.(*methodCfg)
		err := s.forEach(ctx, run, coll, func(el coreutils.MapObject) error {
			return cfg.m(ctx, s.api, el)
		})
		return coll, err
	},
}
