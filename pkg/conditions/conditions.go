/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

// Package conditions compiles declarative boolean predicates over forms
// and generic objects. A descriptor is a tagged union discriminated by
// its "operator" key; compilation resolves field names against the
// process schema once, evaluation is pure (the expired operator reads
// the wall clock) and free of network calls.
package conditions

import (
	"time"

	"github.com/untillpro/goutils/logger"

	"github.com/rpmsoftware/integration-common-sub000/pkg/coreutils"
	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
)

// Condition is a compiled predicate. Implementations are immutable and
// safe for reuse across concurrent evaluations.
type Condition interface {
	Eval(target any) (bool, error)
}

// Env resolves schema references during compilation. *rpm.Process
// implements it.
type Env interface {
	Field(nameOrUid string) (*rpm.ProcessField, bool)
	StatusLevel(v any) (*rpm.StatusLevel, bool)
}

// overridable in tests of the expired operator
var timeNow = time.Now

type compiler func(d coreutils.MapObject, env Env) (Condition, error)

var operators = map[string]compiler{}

func registerOperator(name string, c compiler) {
	if _, dup := operators[name]; dup {
		panic("duplicate condition operator " + name)
	}
	operators[name] = c
}

// Compile turns a descriptor into a predicate. A descriptor with
// enabled == false compiles to nil, which callers treat as always true
// (see EvalOptional). Unknown operators are configuration errors.
func Compile(d coreutils.MapObject, env Env) (Condition, error) {
	if d == nil {
		return nil, nil
	}
	if enabled, ok, err := d.AsBoolean("enabled"); err != nil {
		return nil, rpm.ErrConfiguration("condition: %v", err)
	} else if ok && !enabled {
		return nil, nil
	}
	op, err := d.AsStringRequired("operator")
	if err != nil {
		return nil, rpm.ErrConfiguration("condition: %v", err)
	}
	c, ok := operators[op]
	if !ok {
		return nil, rpm.ErrConfiguration("unknown condition operator «%v»", op)
	}
	cond, err := c(d, env)
	if err != nil {
		return nil, err
	}
	not, _, err := d.AsBoolean("not")
	if err != nil {
		return nil, rpm.ErrConfiguration("condition: %v", err)
	}
	message, _, err := d.AsString("message")
	if err != nil {
		return nil, rpm.ErrConfiguration("condition: %v", err)
	}
	if not || message != "" {
		cond = &outerCondition{inner: cond, not: not, message: message}
	}
	return cond, nil
}

// EvalOptional treats a nil compiled condition as true.
func EvalOptional(c Condition, target any) (bool, error) {
	if c == nil {
		return true, nil
	}
	return c.Eval(target)
}

// outerCondition applies the not flag and logs the diagnostic message
// when the final result is false. The message has no behavioral effect.
type outerCondition struct {
	inner   Condition
	not     bool
	message string
}

func (c *outerCondition) Eval(target any) (bool, error) {
	res, err := c.inner.Eval(target)
	if err != nil {
		return false, err
	}
	if c.not {
		res = !res
	}
	if !res && c.message != "" && logger.IsVerbose() {
		logger.Verbose("condition failed: " + c.message)
	}
	return res, nil
}
