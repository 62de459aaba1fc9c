/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package converters

import (
	"context"

	"github.com/rpmsoftware/integration-common-sub000/pkg/coreutils"
	"github.com/rpmsoftware/integration-common-sub000/pkg/fieldconv"
	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
)

const (
	defaultFormIDProperty = "FormID"
	formProperty          = "Form"
)

func init() {
	registerConverter("getter", getterStep)
	registerConverter("attachForm", attachFormStep)
	registerConverter("form2object", form2objectStep)
	registerConverter("createForm", createFormStep)
	registerConverter("updateForm", updateFormStep)
}

func stepEnv(ctx context.Context, d coreutils.MapObject, s *Step) (*fieldconv.Env, error) {
	ref, found := d["process"]
	if !found {
		return fieldconv.NewEnv(s.api, nil), nil
	}
	proc, err := resolveProcess(ctx, s.api, ref)
	if err != nil {
		return nil, err
	}
	return fieldconv.NewEnv(s.api, proc), nil
}

// getter attaches projected properties onto each element. With a
// process configured the field getters read the element's attached
// form; without one only schema-free getters (property, constant,
// getDeep over attached forms) compile.
type getterCfg struct {
	gm *fieldconv.GetterMap
}

var getterStep = &strategy{
	init: func(ctx context.Context, d coreutils.MapObject, s *Step) error {
		env, err := stepEnv(ctx, d, s)
		if err != nil {
			return err
		}
		fields, err := d.AsObjectRequired("fields")
		if err != nil {
			return rpm.ErrConfiguration("getter: %v", err)
		}
		gm, err := fieldconv.InitGetterMap(ctx, fields, env)
		if err != nil {
			return err
		}
		s.cfg = &getterCfg{gm: gm}
		return nil
	},
	convert: func(ctx context.Context, s *Step, run *Run, coll []coreutils.MapObject) ([]coreutils.MapObject, error) {
		cfg := s.cfg.(*getterCfg)
		err := s.forEach(ctx, run, coll, func(el coreutils.MapObject) error {
			proj, err := cfg.gm.Project(ctx, el)
			if err != nil {
				return err
			}
			for k, v := range proj {
				el[k] = v
			}
			return nil
		})
		return coll, err
	},
}

// attachForm dereferences a form ID held on the element and stores the
// loaded form under "Form" for downstream field getters. Elements
// without the ID property are left alone.
type attachFormCfg struct {
	idProperty string
	demand     bool
	proc       *rpm.Process
}

var attachFormStep = &strategy{
	init: func(ctx context.Context, d coreutils.MapObject, s *Step) error {
		cfg := &attachFormCfg{}
		var err error
		if cfg.idProperty, _, err = d.AsString("formIDProperty"); err != nil {
			return rpm.ErrConfiguration("attachForm: %v", err)
		}
		if cfg.idProperty == "" {
			cfg.idProperty = defaultFormIDProperty
		}
		if cfg.demand, _, err = d.AsBoolean("demand"); err != nil {
			return rpm.ErrConfiguration("attachForm: %v", err)
		}
		if ref, found := d["process"]; found {
			if cfg.proc, err = resolveProcess(ctx, s.api, ref); err != nil {
				return err
			}
		}
		s.cfg = cfg
		return nil
	},
	convert: func(ctx context.Context, s *Step, run *Run, coll []coreutils.MapObject) ([]coreutils.MapObject, error) {
		cfg := s.cfg.(*attachFormCfg)
		err := s.forEach(ctx, run, coll, func(el coreutils.MapObject) error {
			raw, found := el[cfg.idProperty]
			if !found || raw == nil {
				return nil
			}
			id, ok := asID(raw)
			if !ok {
				return rpm.ErrValue("attachForm: «%v» is not a form ID", raw)
			}
			var form *rpm.Form
			var err error
			if cfg.demand {
				form, err = s.api.DemandForm(ctx, id)
			} else {
				form, err = s.api.GetForm(ctx, id)
			}
			if err != nil {
				return err
			}
			if form == nil {
				return nil
			}
			el[formProperty] = rpm.NewFormView(form, cfg.proc)
			return nil
		})
		return coll, err
	},
}

// form2object replaces each element with a projection of its attached
// form. The form stays attached so later steps can keep reading it.
type form2objectCfg struct {
	gm *fieldconv.GetterMap
}

var form2objectStep = &strategy{
	init: func(ctx context.Context, d coreutils.MapObject, s *Step) error {
		env, err := stepEnv(ctx, d, s)
		if err != nil {
			return err
		}
		fields, err := d.AsObjectRequired("fields")
		if err != nil {
			return rpm.ErrConfiguration("form2object: %v", err)
		}
		gm, err := fieldconv.InitGetterMap(ctx, fields, env)
		if err != nil {
			return err
		}
		s.cfg = &form2objectCfg{gm: gm}
		return nil
	},
	convert: func(ctx context.Context, s *Step, run *Run, coll []coreutils.MapObject) ([]coreutils.MapObject, error) {
		cfg := s.cfg.(*form2objectCfg)
		res := make([]coreutils.MapObject, len(coll))
		for i, el := range coll {
			proj, err := cfg.gm.Project(ctx, el)
			if err != nil {
				return nil, err
			}
			if form, found := el[formProperty]; found {
				proj[formProperty] = form
			}
			res[i] = proj
		}
		return res, nil
	},
}

// createForm starts a new form per element and attaches it.
type createFormCfg struct {
	proc *rpm.Process
	fm   *fieldconv.FieldMap
}

var createFormStep = &strategy{
	init: func(ctx context.Context, d coreutils.MapObject, s *Step) error {
		ref, found := d["process"]
		if !found {
			return rpm.ErrConfiguration("createForm: a process is required")
		}
		proc, err := resolveProcess(ctx, s.api, ref)
		if err != nil {
			return err
		}
		fields, err := d.AsObjectRequired("fields")
		if err != nil {
			return rpm.ErrConfiguration("createForm: %v", err)
		}
		fm, err := fieldconv.InitFieldMap(ctx, fields, nil, fieldconv.NewEnv(s.api, proc))
		if err != nil {
			return err
		}
		s.cfg = &createFormCfg{proc: proc, fm: fm}
		return nil
	},
	convert: func(ctx context.Context, s *Step, run *Run, coll []coreutils.MapObject) ([]coreutils.MapObject, error) {
		cfg := s.cfg.(*createFormCfg)
		err := s.forEach(ctx, run, coll, func(el coreutils.MapObject) error {
			patches, err := cfg.fm.Patches(ctx, el, nil)
			if err != nil {
				return err
			}
			form, err := s.api.CreateForm(ctx, cfg.proc.ProcessID, patches)
			if err != nil {
				return err
			}
			el[defaultFormIDProperty] = form.FormID
			el[formProperty] = rpm.NewFormView(form, cfg.proc)
			return nil
		})
		return coll, err
	},
}

// updateForm patches an existing form referenced from the element.
// Elements without the form ID are silently skipped; a no-op patch set
// skips the write.
type updateFormCfg struct {
	idProperty string
	proc       *rpm.Process
	fm         *fieldconv.FieldMap
}

var updateFormStep = &strategy{
	init: func(ctx context.Context, d coreutils.MapObject, s *Step) error {
		cfg := &updateFormCfg{}
		var err error
		if cfg.idProperty, _, err = d.AsString("formIDProperty"); err != nil {
			return rpm.ErrConfiguration("updateForm: %v", err)
		}
		if cfg.idProperty == "" {
			cfg.idProperty = defaultFormIDProperty
		}
		ref, found := d["process"]
		if !found {
			return rpm.ErrConfiguration("updateForm: a process is required")
		}
		if cfg.proc, err = resolveProcess(ctx, s.api, ref); err != nil {
			return err
		}
		fields, err := d.AsObjectRequired("fields")
		if err != nil {
			return rpm.ErrConfiguration("updateForm: %v", err)
		}
		if cfg.fm, err = fieldconv.InitFieldMap(ctx, fields, nil, fieldconv.NewEnv(s.api, cfg.proc)); err != nil {
			return err
		}
		s.cfg = cfg
		return nil
	},
	convert: func(ctx context.Context, s *Step, run *Run, coll []coreutils.MapObject) ([]coreutils.MapObject, error) {
		cfg := s.cfg.(*updateFormCfg)
		err := s.forEach(ctx, run, coll, func(el coreutils.MapObject) error {
			raw, found := el[cfg.idProperty]
			if !found || raw == nil {
				return nil
			}
			id, ok := asID(raw)
			if !ok {
				return rpm.ErrValue("updateForm: «%v» is not a form ID", raw)
			}
			form, err := s.api.DemandForm(ctx, id)
			if err != nil {
				return err
			}
			existing := rpm.NewFormView(form, cfg.proc)
			patches, err := cfg.fm.Patches(ctx, el, &existing)
			if err != nil {
				return err
			}
			if len(patches) == 0 {
				return nil
			}
			updated, err := s.api.EditForm(ctx, id, patches)
			if err != nil {
				return err
			}
			el[formProperty] = rpm.NewFormView(updated, cfg.proc)
			return nil
		})
		return coll, err
	},
}
