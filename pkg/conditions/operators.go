/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package conditions

import (
	"strings"
	"time"

	"github.com/untillpro/goutils/logger"

	"github.com/rpmsoftware/integration-common-sub000/pkg/coreutils"
	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
)

func init() {
	registerOperator("and", compileAnd)
	registerOperator("or", compileOr)
	registerOperator("true", compileTruthy(false))
	registerOperator("false", compileTruthy(true))
	registerOperator("empty", compileEmpty)
	registerOperator("expired", compileExpired)
	registerOperator("formStatus", compileFormStatus)
	registerOperator("eq2", compileRelational(relEq))
	registerOperator("neq2", compileRelational(relNeq))
	registerOperator("gt2", compileRelational(relGt))
	registerOperator("lt2", compileRelational(relLt))
	registerOperator("gte2", compileRelational(relGte))
	registerOperator("lte2", compileRelational(relLte))
}

func compileSubConditions(d coreutils.MapObject, env Env) ([]Condition, error) {
	raw, _, err := d.AsObjects("operands")
	if err != nil {
		return nil, rpm.ErrConfiguration("condition operands: %v", err)
	}
	res := make([]Condition, 0, len(raw))
	for _, r := range raw {
		sub, ok := r.(map[string]interface{})
		if !ok {
			return nil, rpm.ErrConfiguration("condition operand must be an object: %v", r)
		}
		c, err := Compile(coreutils.MapObject(sub), env)
		if err != nil {
			return nil, err
		}
		if c != nil { // disabled sub-conditions act as absent
			res = append(res, c)
		}
	}
	return res, nil
}

type andCondition struct{ subs []Condition }

// Eval over zero operands is false, not vacuous truth. Production configs
// rely on this to disable a gate by emptying its operand list.
func (c *andCondition) Eval(target any) (bool, error) {
	if len(c.subs) == 0 {
		return false, nil
	}
	for _, s := range c.subs {
		res, err := s.Eval(target)
		if err != nil {
			return false, err
		}
		if !res {
			return false, nil
		}
	}
	return true, nil
}

func compileAnd(d coreutils.MapObject, env Env) (Condition, error) {
	subs, err := compileSubConditions(d, env)
	if err != nil {
		return nil, err
	}
	return &andCondition{subs: subs}, nil
}

type orCondition struct{ subs []Condition }

func (c *orCondition) Eval(target any) (bool, error) {
	for _, s := range c.subs {
		res, err := s.Eval(target)
		if err != nil {
			return false, err
		}
		if res {
			return true, nil
		}
	}
	return false, nil
}

func compileOr(d coreutils.MapObject, env Env) (Condition, error) {
	subs, err := compileSubConditions(d, env)
	if err != nil {
		return nil, err
	}
	return &orCondition{subs: subs}, nil
}

type truthyCondition struct {
	op     *operand
	negate bool
}

func (c *truthyCondition) Eval(target any) (bool, error) {
	res := coerceBool(c.op.resolve(target))
	if c.negate {
		res = !res
	}
	return res, nil
}

func compileTruthy(negate bool) compiler {
	return func(d coreutils.MapObject, env Env) (Condition, error) {
		op, err := compileOperand(d["operand"], env)
		if err != nil {
			return nil, err
		}
		return &truthyCondition{op: op, negate: negate}, nil
	}
}

type emptyCondition struct {
	op   *operand
	trim bool
}

func (c *emptyCondition) Eval(target any) (bool, error) {
	v := c.op.resolve(target)
	if v == nil {
		return true, nil
	}
	s, isStr := v.(string)
	if !isStr {
		return false, nil
	}
	if c.trim {
		s = strings.TrimSpace(s)
	}
	return s == "", nil
}

func compileEmpty(d coreutils.MapObject, env Env) (Condition, error) {
	op, err := compileOperand(d["operand"], env)
	if err != nil {
		return nil, err
	}
	trim, _, err := d.AsBoolean("trim")
	if err != nil {
		return nil, rpm.ErrConfiguration("empty condition: %v", err)
	}
	return &emptyCondition{op: op, trim: trim}, nil
}

type expiredCondition struct {
	op        *operand
	increment *operand
	format    string
}

func (c *expiredCondition) Eval(target any) (bool, error) {
	raw := coerceString(c.op.resolve(target))
	if raw == "" {
		return false, nil
	}
	at, ok := parseDate(raw, c.format)
	if !ok {
		// unparseable dates do not expire, they are a data-quality problem
		if logger.IsVerbose() {
			logger.Verbose("expired: unparseable date «" + raw + "»")
		}
		return false, nil
	}
	if c.increment != nil {
		if days, ok := coerceNumber(c.increment.resolve(target)); ok {
			at = at.Add(time.Duration(days * 24 * float64(time.Hour)))
		}
	}
	return !timeNow().Before(at), nil
}

func compileExpired(d coreutils.MapObject, env Env) (Condition, error) {
	op, err := compileOperand(d["operand"], env)
	if err != nil {
		return nil, err
	}
	format, ok, err := d.AsString("format")
	if err != nil {
		return nil, rpm.ErrConfiguration("expired condition: %v", err)
	}
	if !ok {
		format = rpm.DateFormat
	}
	res := &expiredCondition{op: op, format: format}
	if inc, present := d["increment"]; present {
		if res.increment, err = compileOperand(inc, env); err != nil {
			return nil, err
		}
	}
	return res, nil
}

type formStatusCondition struct {
	ids   map[int64]bool
	texts map[string]bool
}

func (c *formStatusCondition) Eval(target any) (bool, error) {
	switch t := target.(type) {
	case rpm.FormView:
		return c.ids[t.Form().StatusID] || c.texts[t.StatusText()], nil
	case *rpm.Form:
		return c.ids[t.StatusID] || c.texts[t.Status], nil
	case coreutils.MapObject:
		if id, ok, _ := t.AsInt64("StatusID"); ok && c.ids[id] {
			return true, nil
		}
		s, _, _ := t.AsString("Status")
		return c.texts[s], nil
	}
	return false, nil
}

func compileFormStatus(d coreutils.MapObject, env Env) (Condition, error) {
	raw, ok, err := d.AsObjects("statuses")
	if err != nil || !ok {
		return nil, rpm.ErrConfiguration("formStatus condition needs statuses: %v", err)
	}
	res := &formStatusCondition{ids: map[int64]bool{}, texts: map[string]bool{}}
	for _, r := range raw {
		if env != nil {
			sl, found := env.StatusLevel(r)
			if !found {
				return nil, rpm.ErrConfiguration("unknown status «%v»", r)
			}
			res.ids[sl.ID] = true
			res.texts[sl.Text] = true
			continue
		}
		switch s := r.(type) {
		case string:
			res.texts[s] = true
		case float64:
			res.ids[int64(s)] = true
		}
	}
	return res, nil
}

type relOp int

const (
	relEq relOp = iota
	relNeq
	relGt
	relLt
	relGte
	relLte
)

type relationalCondition struct {
	op   relOp
	l, r *operand
}

func (c *relationalCondition) Eval(target any) (bool, error) {
	lv := c.l.resolve(target)
	rv := c.r.resolve(target)
	switch c.op {
	case relEq, relNeq:
		eq := looseEqual(lv, rv)
		if c.op == relNeq {
			eq = !eq
		}
		return eq, nil
	}
	ln, lok := coerceNumber(lv)
	rn, rok := coerceNumber(rv)
	if !lok || !rok {
		return false, nil
	}
	switch c.op {
	case relGt:
		return ln > rn, nil
	case relLt:
		return ln < rn, nil
	case relGte:
		return ln >= rn, nil
	case relLte:
		return ln <= rn, nil
	}
	return false, nil
}

// looseEqual compares numerically when both sides parse as numbers,
// by string rendering otherwise.
func looseEqual(l, r any) bool {
	if ln, lok := coerceNumber(l); lok {
		if rn, rok := coerceNumber(r); rok {
			return ln == rn
		}
	}
	return coerceString(l) == coerceString(r)
}

func compileRelational(op relOp) compiler {
	return func(d coreutils.MapObject, env Env) (Condition, error) {
		raw, ok, err := d.AsObjects("operands")
		if err != nil || !ok || len(raw) != 2 {
			return nil, rpm.ErrConfiguration("relational condition needs exactly 2 operands")
		}
		l, err := compileOperand(raw[0], env)
		if err != nil {
			return nil, err
		}
		r, err := compileOperand(raw[1], env)
		if err != nil {
			return nil, err
		}
		return &relationalCondition{op: op, l: l, r: r}, nil
	}
}

func parseDate(s, format string) (time.Time, bool) {
	for _, f := range []string{format, rpm.DateTimeFormat, rpm.ISODateFormat, time.RFC3339} {
		if t, err := time.Parse(f, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
