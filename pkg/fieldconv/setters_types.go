/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package fieldconv

import (
	"context"
	"strconv"
	"strings"

	"github.com/untillpro/goutils/logger"

	"github.com/rpmsoftware/integration-common-sub000/pkg/coreutils"
	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
)

func init() {
	registerDefaultSetter(cfType(rpm.FieldSubType_Number), numberSetter)
	registerDefaultSetter(cfType(rpm.FieldSubType_FixedNumber), numberSetter)
	registerDefaultSetter(cfType(rpm.FieldSubType_Decimal), numberSetter)
	registerDefaultSetter(cfType(rpm.FieldSubType_Money), moneySetter)
	registerDefaultSetter(cfType(rpm.FieldSubType_Money4), moneySetter)
	registerDefaultSetter(cfType(rpm.FieldSubType_Percent), percentSetter)
	registerDefaultSetter(cfType(rpm.FieldSubType_Date), dateSetter)
	registerDefaultSetter(cfType(rpm.FieldSubType_DateTime), dateTimeSetter)
	registerDefaultSetter(cfType(rpm.FieldSubType_YesNo), yesNoSetter)
	registerDefaultSetter(cfType(rpm.FieldSubType_List), listSetter)
	registerDefaultSetter(cfType(rpm.FieldSubType_ListMultiSelect), multiListSetter)

	registerDefaultSetter(cfType(rpm.FieldSubType_FieldTable), tableSetter)
	registerDefaultSetter(cfType(rpm.FieldSubType_DescriptionTable), tableSetter)
	registerDefaultSetter(cfType(rpm.FieldSubType_DeprecatedTable), delimitedTableSetter)
	registerDefaultSetter(cfType(rpm.FieldSubType_FieldTableDefinedRow), definedRowSetter)

	registerDefaultSetter(refType(rpm.RefSubType_Customer), newEntitySetter(rpm.EntityType_Customer))
	registerDefaultSetter(refType(rpm.RefSubType_CustomerLocation), newEntitySetter(rpm.EntityType_CustomerLocation))
	registerDefaultSetter(refType(rpm.RefSubType_CustomerAccount), newEntitySetter(rpm.EntityType_CustomerAccount))
	registerDefaultSetter(refType(rpm.RefSubType_Staff), newEntitySetter(rpm.EntityType_Staff))
	registerDefaultSetter(refType(rpm.RefSubType_AgentCompany), newEntitySetter(rpm.EntityType_AgentCompany))
	registerDefaultSetter(refType(rpm.RefSubType_AgentRep), newEntitySetter(rpm.EntityType_AgentRep))
	registerDefaultSetter(refType(rpm.RefSubType_RestrictedReference), restrictedRefSetter)

	registerSetter("text", textSetter)
	registerSetter("number", numberSetter)
	registerSetter("customer", newEntitySetter(rpm.EntityType_Customer))
	registerSetter("customerAccount", newEntitySetter(rpm.EntityType_CustomerAccount))
	registerSetter("agentCompany", newEntitySetter(rpm.EntityType_AgentCompany))
	registerSetter("agentRep", newEntitySetter(rpm.EntityType_AgentRep))
	registerSetter("staff", newEntitySetter(rpm.EntityType_Staff))
}

func clearPatch() *rpm.FieldPatch { return &rpm.FieldPatch{} }

func valuePatch(s string) *rpm.FieldPatch { return &rpm.FieldPatch{Value: rpm.StrPtr(s)} }

// textSetter writes the string rendering of the source value. It is the
// fallback for every text-like type with no stricter conversion.
var textSetter = &setterStrategy{
	convert: func(_ context.Context, _ *Setter, data any, _ *rpm.FormView) (*rpm.FieldPatch, error) {
		if data == nil {
			return clearPatch(), nil
		}
		return valuePatch(asString(data)), nil
	},
}

var numberSetter = &setterStrategy{
	convert: func(_ context.Context, _ *Setter, data any, _ *rpm.FormView) (*rpm.FieldPatch, error) {
		if isEmptyValue(data) {
			return clearPatch(), nil
		}
		n, err := asFloat(data)
		if err != nil {
			return nil, err
		}
		return valuePatch(strconv.FormatFloat(n, 'f', -1, 64)), nil
	},
}

var moneySetter = &setterStrategy{
	convert: func(_ context.Context, _ *Setter, data any, _ *rpm.FormView) (*rpm.FieldPatch, error) {
		if isEmptyValue(data) {
			return clearPatch(), nil
		}
		n, err := asFloat(data)
		if err != nil {
			return nil, err
		}
		return valuePatch(strconv.FormatFloat(n, 'f', 2, 64)), nil
	},
}

// percentSetter takes a decimal fraction and writes the percent
// rendering the platform stores, so 0.5 goes out as "50%".
var percentSetter = &setterStrategy{
	convert: func(_ context.Context, s *Setter, data any, _ *rpm.FormView) (*rpm.FieldPatch, error) {
		if isEmptyValue(data) {
			return clearPatch(), nil
		}
		n, err := asFloat(data)
		if err != nil {
			return nil, err
		}
		if s.env.inTable {
			// table cells store the whole percentage as a bare number
			return valuePatch(strconv.FormatFloat(n*100, 'f', -1, 64)), nil
		}
		return valuePatch(strconv.FormatFloat(n*100, 'f', -1, 64) + "%"), nil
	},
}

var dateSetter = &setterStrategy{
	convert: func(_ context.Context, _ *Setter, data any, _ *rpm.FormView) (*rpm.FieldPatch, error) {
		if isEmptyValue(data) {
			return clearPatch(), nil
		}
		t, err := asDate(data, rpm.DateFormat)
		if err != nil {
			return nil, err
		}
		return valuePatch(formatDateValue(t)), nil
	},
}

var dateTimeSetter = &setterStrategy{
	convert: func(_ context.Context, _ *Setter, data any, _ *rpm.FormView) (*rpm.FieldPatch, error) {
		if isEmptyValue(data) {
			return clearPatch(), nil
		}
		t, err := asDate(data, rpm.DateTimeFormat)
		if err != nil {
			return nil, err
		}
		return valuePatch(formatDateTimeValue(t)), nil
	},
}

var yesNoSetter = &setterStrategy{
	convert: func(_ context.Context, _ *Setter, data any, _ *rpm.FormView) (*rpm.FieldPatch, error) {
		switch t := data.(type) {
		case nil:
			return clearPatch(), nil
		case bool:
			return valuePatch(formatYesNo(t)), nil
		case string:
			if t == "" {
				return clearPatch(), nil
			}
			b, err := parseYesNo(t)
			if err != nil {
				return nil, err
			}
			return valuePatch(formatYesNo(b)), nil
		}
		return nil, rpm.ErrValue("not a yes/no value: «%v»", data)
	},
}

type listSetterCfg struct {
	options map[string]int64 // option text, case-folded
	demand  bool
}

// listSetter resolves the source text against the field's allowed
// options. Unknown text is a value error with demand set, otherwise the
// raw text goes out and the platform decides.
var listSetter = &setterStrategy{
	init: func(_ context.Context, d coreutils.MapObject, s *Setter) error {
		cfg := &listSetterCfg{options: make(map[string]int64, len(s.field.Options))}
		for _, o := range s.field.Options {
			cfg.options[strings.ToLower(o.Text)] = o.ID
		}
		var err error
		if cfg.demand, _, err = d.AsBoolean("demand"); err != nil {
			return rpm.ErrConfiguration("setter «%v»: %v", s.field.Name, err)
		}
		s.cfg = cfg
		return nil
	},
	convert: func(_ context.Context, s *Setter, data any, _ *rpm.FormView) (*rpm.FieldPatch, error) {
		cfg := s.cfg.(*listSetterCfg)
		text := asString(data)
		if text == "" {
			return clearPatch(), nil
		}
		if id, ok := cfg.options[strings.ToLower(text)]; ok {
			return &rpm.FieldPatch{ID: id, Value: rpm.StrPtr(text)}, nil
		}
		if cfg.demand {
			return nil, rpm.ErrValue("«%v» is not an option of «%v»", text, s.field.Name)
		}
		logger.Verbose("field", s.field.Name, "unknown option", text)
		return valuePatch(text), nil
	},
}

var multiListSetter = &setterStrategy{
	convert: func(_ context.Context, s *Setter, data any, _ *rpm.FormView) (*rpm.FieldPatch, error) {
		var vals []string
		switch t := data.(type) {
		case nil:
			return clearPatch(), nil
		case string:
			vals = splitMultiList(t)
		case []string:
			vals = t
		case []interface{}:
			for _, v := range t {
				vals = append(vals, asString(v))
			}
		default:
			return nil, rpm.ErrValue("not a value list: «%v»", data)
		}
		if len(vals) == 0 {
			return clearPatch(), nil
		}
		return valuePatch(joinMultiList(vals)), nil
	},
}

type entitySetterCfg struct {
	et     rpm.EntityType
	create bool
	demand bool
}

// newEntitySetter builds a setter that resolves the source name against
// a platform directory. With create set a missing name is added to the
// directory first; with demand set it is a value error; with neither
// the bare name goes out for the platform to match.
func newEntitySetter(et rpm.EntityType) *setterStrategy {
	return &setterStrategy{
		init: func(_ context.Context, d coreutils.MapObject, s *Setter) error {
			cfg := &entitySetterCfg{et: et}
			var err error
			if cfg.create, _, err = d.AsBoolean("create"); err != nil {
				return rpm.ErrConfiguration("setter «%v»: %v", s.field.Name, err)
			}
			if cfg.demand, _, err = d.AsBoolean("demand"); err != nil {
				return rpm.ErrConfiguration("setter «%v»: %v", s.field.Name, err)
			}
			s.cfg = cfg
			return nil
		},
		convert: func(ctx context.Context, s *Setter, data any, _ *rpm.FormView) (*rpm.FieldPatch, error) {
			cfg := s.cfg.(*entitySetterCfg)
			name := asString(data)
			if name == "" {
				return clearPatch(), nil
			}
			entities, err := s.env.API().GetEntities(ctx, cfg.et)
			if err != nil {
				return nil, err
			}
			for i := range entities {
				if strings.EqualFold(entities[i].Name, name) {
					return &rpm.FieldPatch{ID: entities[i].EntityID, Value: rpm.StrPtr(entities[i].Name)}, nil
				}
			}
			if cfg.create {
				e, err := s.env.API().CreateEntity(ctx, cfg.et, name)
				if err != nil {
					return nil, err
				}
				return &rpm.FieldPatch{ID: e.EntityID, Value: rpm.StrPtr(e.Name)}, nil
			}
			if cfg.demand {
				return nil, rpm.ErrValue("no %v named «%v»", cfg.et, name)
			}
			return valuePatch(name), nil
		},
	}
}

// restrictedRefSetter links a form of the referenced process by its
// numeric ID. The source may be a bare ID or a projected object
// carrying one.
var restrictedRefSetter = &setterStrategy{
	convert: func(ctx context.Context, s *Setter, data any, _ *rpm.FormView) (*rpm.FieldPatch, error) {
		if isEmptyValue(data) {
			return clearPatch(), nil
		}
		if obj, ok := data.(coreutils.MapObject); ok {
			id, hasID, err := obj.AsInt64("ID")
			if err != nil || !hasID {
				return nil, rpm.ErrValue("not a form reference: «%v»", data)
			}
			data = id
		}
		n, err := asFloat(data)
		if err != nil {
			return nil, err
		}
		formID := int64(n)
		form, err := s.env.API().GetForm(ctx, formID)
		if err != nil {
			return nil, err
		}
		if form == nil {
			return nil, rpm.ErrValue("no form %d to reference from «%v»", formID, s.field.Name)
		}
		return &rpm.FieldPatch{ID: formID}, nil
	},
}
