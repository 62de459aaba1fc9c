/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package fieldconv

import (
	"context"

	"github.com/rpmsoftware/integration-common-sub000/pkg/coreutils"
	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
)

func cfType(st rpm.FieldSubType) rpm.FullType {
	return rpm.MakeFullType(rpm.ObjectType_CustomField, st)
}

func refType(st rpm.FieldSubType) rpm.FullType {
	return rpm.MakeFullType(rpm.ObjectType_FormReference, st)
}

func init() {
	for _, st := range []rpm.FieldSubType{
		rpm.FieldSubType_Text,
		rpm.FieldSubType_Http,
		rpm.FieldSubType_Link,
		rpm.FieldSubType_TextArea,
		rpm.FieldSubType_Description,
		rpm.FieldSubType_SpecialPhone,
		rpm.FieldSubType_LocationLatLong,
		rpm.FieldSubType_Label,
		rpm.FieldSubType_Divider,
		rpm.FieldSubType_List,
	} {
		registerDefaultGetter(cfType(st), valueGetter)
	}

	for _, st := range []rpm.FieldSubType{
		rpm.FieldSubType_Number,
		rpm.FieldSubType_FixedNumber,
		rpm.FieldSubType_Decimal,
		rpm.FieldSubType_Formula,
		rpm.FieldSubType_DeprecatedFormula,
		rpm.FieldSubType_Money,
		rpm.FieldSubType_Money4,
	} {
		registerDefaultGetter(cfType(st), numberGetter)
	}

	registerDefaultGetter(cfType(rpm.FieldSubType_Percent), percentGetter)
	registerDefaultGetter(cfType(rpm.FieldSubType_Date), dateGetter)
	registerDefaultGetter(cfType(rpm.FieldSubType_DateTime), dateTimeGetter)
	registerDefaultGetter(cfType(rpm.FieldSubType_YesNo), yesNoGetter)
	registerDefaultGetter(cfType(rpm.FieldSubType_ListMultiSelect), multiListGetter)

	registerDefaultGetter(cfType(rpm.FieldSubType_FieldTable), tableGetter)
	registerDefaultGetter(cfType(rpm.FieldSubType_DescriptionTable), tableGetter)
	registerDefaultGetter(cfType(rpm.FieldSubType_DeprecatedTable), delimitedTableGetter)
	registerDefaultGetter(cfType(rpm.FieldSubType_FieldTableDefinedRow), definedRowGetter)

	// reference fields read their display text by default; dereferencing
	// is opt-in via getReferencedObject
	for _, st := range []rpm.FieldSubType{
		rpm.RefSubType_Customer,
		rpm.RefSubType_CustomerLocation,
		rpm.RefSubType_CustomerAccount,
		rpm.RefSubType_Staff,
		rpm.RefSubType_RestrictedReference,
		rpm.RefSubType_AgentCompany,
		rpm.RefSubType_AgentRep,
	} {
		registerDefaultGetter(refType(st), valueGetter)
	}

	registerTypedGetter(refType(rpm.RefSubType_RestrictedReference), "getReferencedObject", referencedFormGetter)
	registerTypedGetter(refType(rpm.RefSubType_CustomerLocation), "getReferencedObject", customerLocationGetter)
}

// rawString reads the source field, distinguishing null (nil, false)
// from a present value.
func rawString(g *Getter, target any) (string, bool) {
	fv, ok := g.rawValue(target)
	if !ok || fv.Value == nil {
		return "", false
	}
	return *fv.Value, true
}

var numberGetter = &getterStrategy{
	get: func(_ context.Context, g *Getter, target any) (any, error) {
		s, ok := rawString(g, target)
		if !ok || s == "" {
			return nil, nil
		}
		return parseNumber(s)
	},
}

// percentGetter normalizes to a decimal fraction. Raw decimals and
// "NN%" renderings both appear in the wild; table cells carry whole
// percentages.
var percentGetter = &getterStrategy{
	get: func(_ context.Context, g *Getter, target any) (any, error) {
		s, ok := rawString(g, target)
		if !ok || s == "" {
			return nil, nil
		}
		return parsePercent(s, g.env.inTable)
	},
}

var dateGetter = &getterStrategy{
	get: func(_ context.Context, g *Getter, target any) (any, error) {
		s, ok := rawString(g, target)
		if !ok || s == "" {
			return nil, nil
		}
		t, err := parseDateValue(s, rpm.DateFormat)
		if err != nil {
			return nil, err
		}
		return t, nil
	},
}

var dateTimeGetter = &getterStrategy{
	get: func(_ context.Context, g *Getter, target any) (any, error) {
		s, ok := rawString(g, target)
		if !ok || s == "" {
			return nil, nil
		}
		t, err := parseDateValue(s, rpm.DateTimeFormat)
		if err != nil {
			return nil, err
		}
		return t, nil
	},
}

var yesNoGetter = &getterStrategy{
	get: func(_ context.Context, g *Getter, target any) (any, error) {
		s, ok := rawString(g, target)
		if !ok || s == "" {
			return nil, nil
		}
		return parseYesNo(s)
	},
}

var multiListGetter = &getterStrategy{
	get: func(_ context.Context, g *Getter, target any) (any, error) {
		s, ok := rawString(g, target)
		if !ok {
			return nil, nil
		}
		return splitMultiList(s), nil
	},
}

type referencedFormCfg struct {
	proc     *rpm.Process
	fieldMap *GetterMap
	demand   bool
}

// referencedFormGetter dereferences a restricted-reference link and
// projects a sub-fieldMap of the referenced form.
var referencedFormGetter = &getterStrategy{
	init: func(ctx context.Context, d coreutils.MapObject, g *Getter) error {
		if g.field == nil || g.field.ReferencedProcessID == 0 {
			return rpm.ErrConfiguration("getReferencedObject needs a reference field")
		}
		proc, err := g.env.Sibling(ctx, g.field.ReferencedProcessID)
		if err != nil {
			return err
		}
		fmD, err := d.AsObjectRequired("fieldMap")
		if err != nil {
			return rpm.ErrConfiguration("getReferencedObject: %v", err)
		}
		fieldMap, err := InitGetterMap(ctx, fmD, g.env.subEnv(proc))
		if err != nil {
			return err
		}
		demand, _, err := d.AsBoolean("demand")
		if err != nil {
			return rpm.ErrConfiguration("getReferencedObject: %v", err)
		}
		g.cfg = &referencedFormCfg{proc: proc, fieldMap: fieldMap, demand: demand}
		return nil
	},
	get: func(ctx context.Context, g *Getter, target any) (any, error) {
		cfg := g.cfg.(*referencedFormCfg)
		fv, ok := g.rawValue(target)
		if !ok || fv.ID == 0 {
			if cfg.demand {
				return nil, rpm.ErrValue("demanded reference «%v» is empty", g.field.Name)
			}
			return nil, nil
		}
		var form *rpm.Form
		var err error
		if cfg.demand {
			form, err = g.env.api.DemandForm(ctx, fv.ID)
		} else {
			form, err = g.env.api.GetForm(ctx, fv.ID)
		}
		if err != nil {
			return nil, err
		}
		if form == nil {
			return nil, nil
		}
		return cfg.fieldMap.Project(ctx, rpm.NewFormView(form, cfg.proc))
	},
}

// customerLocationGetter dereferences a location sub-entity owned by a
// customer.
var customerLocationGetter = &getterStrategy{
	get: func(ctx context.Context, g *Getter, target any) (any, error) {
		fv, ok := g.rawValue(target)
		if !ok || fv.ID == 0 {
			return nil, nil
		}
		e, err := g.env.api.GetEntity(ctx, rpm.EntityType_CustomerLocation, fv.ID)
		if err != nil {
			return nil, err
		}
		return coreutils.MapObject{
			"ID":         e.EntityID,
			"Name":       e.Name,
			"CustomerID": e.ParentID,
		}, nil
	},
}
