/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package converters

import (
	"context"
	"strings"

	"github.com/rpmsoftware/integration-common-sub000/pkg/coreutils"
	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
)

func init() {
	registerConverter("updateBasicEntity", newEntityStep(0, ""))
	registerConverter("updateCustomer", newEntityStep(rpm.EntityType_Customer, "Customer"))
	registerConverter("updateAccount", newEntityStep(rpm.EntityType_CustomerAccount, "Account"))
	registerConverter("updateRep", newEntityStep(rpm.EntityType_AgentRep, "Rep"))
}

// entityStepCfg drives the find-or-create directory updaters. An
// element lacking the name property is skipped, not failed; batches
// routinely mix records with and without directory links.
type entityStepCfg struct {
	et           rpm.EntityType
	nameProperty string
	property     string
	create       bool
}

// newEntityStep builds a directory updater. The generic form
// (updateBasicEntity) requires an "entityType" in the descriptor; the
// specialized forms fix the directory and the default property names.
func newEntityStep(et rpm.EntityType, defaultProperty string) *strategy {
	return &strategy{
		init: func(_ context.Context, d coreutils.MapObject, s *Step) error {
			cfg := &entityStepCfg{et: et}
			var err error
			if et == 0 {
				typeName, err := d.AsStringRequired("entityType")
				if err != nil {
					return rpm.ErrConfiguration("updateBasicEntity: %v", err)
				}
				var known bool
				if cfg.et, known = rpm.EntityTypeByName(typeName); !known {
					return rpm.ErrConfiguration("unknown entity type «%v»", typeName)
				}
			}
			if cfg.property, _, err = d.AsString("property"); err != nil {
				return rpm.ErrConfiguration("%v", err)
			}
			if cfg.property == "" {
				cfg.property = defaultProperty
			}
			if cfg.property == "" {
				cfg.property = cfg.et.String()
			}
			if cfg.nameProperty, _, err = d.AsString("nameProperty"); err != nil {
				return rpm.ErrConfiguration("%v", err)
			}
			if cfg.nameProperty == "" {
				cfg.nameProperty = cfg.property
			}
			if cfg.create, _, err = d.AsBoolean("create"); err != nil {
				return rpm.ErrConfiguration("%v", err)
			}
			s.cfg = cfg
			return nil
		},
		convert: func(ctx context.Context, s *Step, run *Run, coll []coreutils.MapObject) ([]coreutils.MapObject, error) {
			cfg := s.cfg.(*entityStepCfg)
			err := s.forEach(ctx, run, coll, func(el coreutils.MapObject) error {
				name := entityName(el[cfg.nameProperty])
				if name == "" {
					return nil
				}
				ent, err := findOrCreateEntity(ctx, s.api, cfg.et, name, cfg.create)
				if err != nil {
					return err
				}
				if ent == nil {
					return rpm.ErrValue("no %v «%v»", cfg.et, name)
				}
				el[cfg.property] = coreutils.MapObject{"ID": ent.EntityID, "Name": ent.Name}
				return nil
			})
			return coll, err
		},
	}
}

func entityName(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case coreutils.MapObject:
		name, _, _ := t.AsString("Name")
		return strings.TrimSpace(name)
	case map[string]interface{}:
		return entityName(coreutils.MapObject(t))
	}
	return ""
}

func findOrCreateEntity(ctx context.Context, api rpm.API, et rpm.EntityType, name string, create bool) (*rpm.Entity, error) {
	entities, err := api.GetEntities(ctx, et)
	if err != nil {
		return nil, err
	}
	for i := range entities {
		if strings.EqualFold(entities[i].Name, name) {
			return &entities[i], nil
		}
	}
	if !create {
		return nil, nil
	}
	return api.CreateEntity(ctx, et, name)
}
