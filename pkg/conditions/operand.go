/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package conditions

import (
	"strconv"
	"strings"

	"github.com/rpmsoftware/integration-common-sub000/pkg/coreutils"
	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
)

// operand is a compiled value source: a form field (resolved to its Uid
// at compile time), a nested property path, or a constant. An operand
// descriptor that is not an object is taken as a constant.
type operand struct {
	fieldUid  string
	fieldName string
	property  []string
	constant  any
	isConst   bool
}

func compileOperand(raw any, env Env) (*operand, error) {
	d, isObj := raw.(map[string]interface{})
	if !isObj {
		if m, ok := raw.(coreutils.MapObject); ok {
			d, isObj = m, true
		}
	}
	if !isObj {
		return &operand{constant: raw, isConst: true}, nil
	}
	m := coreutils.MapObject(d)

	if field, ok, err := m.AsString("field"); err != nil {
		return nil, rpm.ErrConfiguration("operand: %v", err)
	} else if ok {
		op := &operand{fieldName: field}
		if env != nil {
			def, found := env.Field(field)
			if !found {
				return nil, rpm.ErrFieldNotFound(field)
			}
			op.fieldUid = def.Uid
			op.fieldName = def.Name
		}
		return op, nil
	}

	if path, ok, err := m.AsStrings("property"); err != nil {
		return nil, rpm.ErrConfiguration("operand: %v", err)
	} else if ok {
		return &operand{property: path}, nil
	}

	if v, ok := m["value"]; ok {
		return &operand{constant: v, isConst: true}, nil
	}
	return nil, rpm.ErrConfiguration("operand needs field, property or value: %v", raw)
}

// resolve reads the operand's current value off the target, which may be
// an rpm.FormView, a *rpm.Form or a generic object.
func (op *operand) resolve(target any) any {
	if op.isConst {
		return op.constant
	}
	switch t := target.(type) {
	case rpm.FormView:
		return op.resolveForm(t)
	case *rpm.Form:
		return op.resolveForm(rpm.NewFormView(t, nil))
	case coreutils.MapObject:
		return op.resolveObject(t)
	case map[string]interface{}:
		return op.resolveObject(coreutils.MapObject(t))
	}
	return nil
}

func (op *operand) resolveForm(v rpm.FormView) any {
	if len(op.property) > 0 {
		return formProperty(v.Form(), op.property)
	}
	var fv *rpm.FieldValue
	var ok bool
	if op.fieldUid != "" {
		fv, ok = v.FieldByUid(op.fieldUid)
	} else {
		fv, ok = v.FieldByName(op.fieldName)
	}
	if !ok || fv.Value == nil {
		return nil
	}
	return *fv.Value
}

func (op *operand) resolveObject(m coreutils.MapObject) any {
	path := op.property
	if len(path) == 0 {
		path = []string{op.fieldName}
	}
	val, ok := coreutils.GetPath(m, path...)
	if !ok {
		return nil
	}
	return val
}

// formProperty reads the well-known record metadata by name.
func formProperty(f *rpm.Form, path []string) any {
	if len(path) != 1 {
		return nil
	}
	switch path[0] {
	case "FormID":
		return f.FormID
	case "Number":
		return f.Number
	case "Owner":
		return f.Owner
	case "Started":
		return f.Started
	case "Modified":
		return f.Modified
	case "Status":
		return f.Status
	}
	return nil
}

// coerceBool follows the platform's value conventions: nil, false, zero,
// the empty string and the literal No/false strings are false, anything
// else is true.
func coerceBool(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "", "no", "false", "0":
			return false
		}
		return true
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	}
	return true
}

// coerceNumber parses a numeric operand, tolerating currency/thousand
// separators the platform renders into values.
func coerceNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimPrefix(s, "$")
		s = strings.ReplaceAll(s, ",", "")
		n, err := strconv.ParseFloat(s, 64)
		return n, err == nil
	}
	return 0, false
}

func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		if t {
			return "true"
		}
		return "false"
	}
	return ""
}
