/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package conditions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpmsoftware/integration-common-sub000/pkg/coreutils"
	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
)

func mustCompile(t *testing.T, d coreutils.MapObject, env Env) Condition {
	t.Helper()
	c, err := Compile(d, env)
	require.NoError(t, err)
	return c
}

func TestEmptyCondition(t *testing.T) {
	require := require.New(t)
	c := mustCompile(t, coreutils.MapObject{
		"operator": "empty",
		"operand":  map[string]interface{}{"property": "Name"},
		"trim":     true,
	}, nil)

	res, err := c.Eval(coreutils.MapObject{"Name": "  "})
	require.NoError(err)
	require.True(res)

	res, err = c.Eval(coreutils.MapObject{"Name": "x"})
	require.NoError(err)
	require.False(res)

	res, err = c.Eval(coreutils.MapObject{})
	require.NoError(err)
	require.True(res, "absent value is empty")
}

func TestAndWithEmptyOperandsIsFalse(t *testing.T) {
	require := require.New(t)
	c := mustCompile(t, coreutils.MapObject{
		"operator": "and",
		"operands": []interface{}{},
	}, nil)
	res, err := c.Eval(coreutils.MapObject{"anything": 1})
	require.NoError(err)
	require.False(res, "and over zero operands must be false, not vacuous truth")
}

func TestAndOrShortCircuit(t *testing.T) {
	require := require.New(t)
	sub := func(op string, val any) map[string]interface{} {
		return map[string]interface{}{
			"operator": op,
			"operand":  map[string]interface{}{"value": val},
		}
	}
	c := mustCompile(t, coreutils.MapObject{
		"operator": "and",
		"operands": []interface{}{sub("true", true), sub("true", "yes")},
	}, nil)
	res, err := c.Eval(coreutils.MapObject{})
	require.NoError(err)
	require.True(res)

	c = mustCompile(t, coreutils.MapObject{
		"operator": "or",
		"operands": []interface{}{sub("true", false), sub("true", "x")},
	}, nil)
	res, err = c.Eval(coreutils.MapObject{})
	require.NoError(err)
	require.True(res)
}

func TestNotFlag(t *testing.T) {
	require := require.New(t)
	c := mustCompile(t, coreutils.MapObject{
		"operator": "empty",
		"operand":  map[string]interface{}{"property": "Name"},
		"not":      true,
	}, nil)
	res, err := c.Eval(coreutils.MapObject{"Name": "x"})
	require.NoError(err)
	require.True(res)
}

func TestDisabledConditionCompilesToNil(t *testing.T) {
	require := require.New(t)
	c, err := Compile(coreutils.MapObject{
		"operator": "empty",
		"enabled":  false,
	}, nil)
	require.NoError(err)
	require.Nil(c)

	res, err := EvalOptional(c, coreutils.MapObject{})
	require.NoError(err)
	require.True(res)
}

func TestUnknownOperatorFailsFast(t *testing.T) {
	_, err := Compile(coreutils.MapObject{"operator": "doesNotExist"}, nil)
	require.ErrorIs(t, err, rpm.ErrConfigurationError)
}

func TestRelationalConditions(t *testing.T) {
	tests := []struct {
		op   string
		l, r any
		want bool
	}{
		{"eq2", "5", float64(5), true},
		{"eq2", "a", "a", true},
		{"eq2", "a", "b", false},
		{"neq2", "5", float64(6), true},
		{"gt2", "$1,200", float64(1000), true},
		{"gt2", "5", "5", false},
		{"lt2", "4", "5", true},
		{"gte2", "5", "5", true},
		{"lte2", "6", "5", false},
		{"gt2", "abc", "5", false}, // non-numeric side never compares greater
	}
	for _, tt := range tests {
		c := mustCompile(t, coreutils.MapObject{
			"operator": tt.op,
			"operands": []interface{}{
				map[string]interface{}{"value": tt.l},
				map[string]interface{}{"value": tt.r},
			},
		}, nil)
		res, err := c.Eval(coreutils.MapObject{})
		require.NoError(t, err)
		require.Equal(t, tt.want, res, "%v %v %v", tt.l, tt.op, tt.r)
	}
}

func TestFieldOperandAgainstForm(t *testing.T) {
	require := require.New(t)
	proc := &rpm.Process{
		Fields: []rpm.ProcessField{
			{Uid: "u1", Name: "Total", FieldType: rpm.ObjectType_CustomField, SubType: rpm.FieldSubType_Number},
		},
	}
	c := mustCompile(t, coreutils.MapObject{
		"operator": "gt2",
		"operands": []interface{}{
			map[string]interface{}{"field": "Total"},
			map[string]interface{}{"value": float64(100)},
		},
	}, proc)

	form := &rpm.Form{Fields: []rpm.FieldValue{{Uid: "u1", Value: rpm.StrPtr("150")}}}
	res, err := c.Eval(rpm.NewFormView(form, proc))
	require.NoError(err)
	require.True(res)

	// unresolvable field name is a configuration error at compile time
	_, err = Compile(coreutils.MapObject{
		"operator": "true",
		"operand":  map[string]interface{}{"field": "Nope"},
	}, proc)
	require.ErrorIs(err, rpm.ErrConfigurationError)
}

func TestExpired(t *testing.T) {
	require := require.New(t)
	restore := timeNow
	timeNow = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }
	defer func() { timeNow = restore }()

	c := mustCompile(t, coreutils.MapObject{
		"operator": "expired",
		"operand":  map[string]interface{}{"property": "Due"},
	}, nil)

	res, err := c.Eval(coreutils.MapObject{"Due": "3/1/2024"})
	require.NoError(err)
	require.True(res)

	res, err = c.Eval(coreutils.MapObject{"Due": "4/1/2024"})
	require.NoError(err)
	require.False(res)

	res, err = c.Eval(coreutils.MapObject{"Due": "not a date"})
	require.NoError(err)
	require.False(res)

	// increment shifts the deadline
	c = mustCompile(t, coreutils.MapObject{
		"operator":  "expired",
		"operand":   map[string]interface{}{"property": "Due"},
		"increment": map[string]interface{}{"value": float64(30)},
	}, nil)
	res, err = c.Eval(coreutils.MapObject{"Due": "3/1/2024"})
	require.NoError(err)
	require.False(res, "3/1 + 30 days is past now")
}

func TestFormStatus(t *testing.T) {
	require := require.New(t)
	proc := &rpm.Process{
		StatusLevels: []rpm.StatusLevel{{ID: 1, Text: "Open"}, {ID: 2, Text: "Closed"}},
	}
	c := mustCompile(t, coreutils.MapObject{
		"operator": "formStatus",
		"statuses": []interface{}{"Open"},
	}, proc)

	form := &rpm.Form{StatusID: 1}
	res, err := c.Eval(rpm.NewFormView(form, proc))
	require.NoError(err)
	require.True(res)

	form = &rpm.Form{StatusID: 2}
	res, err = c.Eval(rpm.NewFormView(form, proc))
	require.NoError(err)
	require.False(res)

	_, err = Compile(coreutils.MapObject{
		"operator": "formStatus",
		"statuses": []interface{}{"Unheard Of"},
	}, proc)
	require.ErrorIs(err, rpm.ErrConfigurationError)
}
