/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package fieldconv

import (
	"context"
	"errors"
	"fmt"

	"github.com/rpmsoftware/integration-common-sub000/pkg/coreutils"
	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
)

// Setter is a compiled write accessor: it converts a source value into a
// field update patch. Immutable after InitField, safe for concurrent
// reuse.
type Setter struct {
	env       *Env
	field     *rpm.ProcessField
	fullType  rpm.FullType
	strategy  *setterStrategy
	cfg       any
	writeCond writeCondition
}

// Field returns the resolved destination field.
func (s *Setter) Field() *rpm.ProcessField { return s.field }

type setterInit func(ctx context.Context, d coreutils.MapObject, s *Setter) error

type setterConvert func(ctx context.Context, s *Setter, data any, existing *rpm.FormView) (*rpm.FieldPatch, error)

type setterStrategy struct {
	name    string
	init    setterInit // optional
	convert setterConvert
}

var (
	namedSetters   = map[string]*setterStrategy{}
	defaultSetters = map[rpm.FullType]*setterStrategy{}
)

func registerSetter(name string, s *setterStrategy) {
	if _, dup := namedSetters[name]; dup {
		panic("duplicate setter " + name)
	}
	s.name = name
	namedSetters[name] = s
}

func registerDefaultSetter(ft rpm.FullType, s *setterStrategy) {
	if !rpm.IsKnownFullType(ft) {
		panic(fmt.Sprintf("default setter: unknown full type %v", ft))
	}
	if _, dup := defaultSetters[ft]; dup {
		panic(fmt.Sprintf("duplicate default setter for %v", ft))
	}
	defaultSetters[ft] = s
}

// writeCondition decides, from the source value and the field's current
// value on the existing form, whether to emit a patch at all.
type writeCondition int

const (
	writeAlways writeCondition = iota
	// writeGt emits only when the source is numerically greater than the
	// current value ("only update if increased").
	writeGt
	// writeNe emits only when the source differs from the current value.
	writeNe
	// writeEmptySource emits only when the source value is empty, for
	// propagating upstream clears.
	writeEmptySource
	// writeEmptyDestination emits only when the destination field is
	// currently empty ("only fill if currently empty").
	writeEmptyDestination
)

var writeConditions = map[string]writeCondition{
	"gt":               writeGt,
	"ne":               writeNe,
	"emptySource":      writeEmptySource,
	"emptyDestination": writeEmptyDestination,
}

func isTableType(ft rpm.FullType) bool {
	switch ft {
	case cfType(rpm.FieldSubType_FieldTable),
		cfType(rpm.FieldSubType_DescriptionTable),
		cfType(rpm.FieldSubType_DeprecatedTable),
		cfType(rpm.FieldSubType_FieldTableDefinedRow):
		return true
	}
	return false
}

// InitField compiles a setter descriptor against the destination field
// named by fieldRef ("" takes the descriptor's "field" key). The target
// must be writable; the strategy is the descriptor's "setter" name or
// the type default.
func InitField(ctx context.Context, d coreutils.MapObject, env *Env) (*Setter, error) {
	fieldRef, err := d.AsStringRequired("field")
	if err != nil {
		return nil, rpm.ErrConfiguration("setter: %v", err)
	}
	return initFieldFor(ctx, d, fieldRef, env)
}

func initFieldFor(ctx context.Context, d coreutils.MapObject, fieldRef string, env *Env) (*Setter, error) {
	s := &Setter{env: env}

	def, ok := env.proc.Field(fieldRef)
	if !ok {
		return nil, rpm.ErrFieldNotFound(fieldRef)
	}
	if !def.UserCanEdit {
		return nil, rpm.ErrReadOnlyField(def.Name)
	}
	s.field = def
	s.fullType = def.FullType()

	name, hasName, err := d.AsString("setter")
	if err != nil {
		return nil, rpm.ErrConfiguration("setter: %v", err)
	}
	if hasName {
		if s.strategy, ok = namedSetters[name]; !ok {
			return nil, rpm.ErrConfiguration("unknown setter «%v» (descriptor: %v)", name, map[string]interface{}(d))
		}
	} else if s.strategy, ok = defaultSetters[s.fullType]; !ok {
		s.strategy = textSetter
	}

	if condName, hasCond, err := d.AsString("condition"); err != nil {
		return nil, rpm.ErrConfiguration("setter: %v", err)
	} else if hasCond {
		wc, known := writeConditions[condName]
		if !known {
			return nil, rpm.ErrConfiguration("unknown setter condition «%v»", condName)
		}
		if isTableType(s.fullType) {
			return nil, rpm.ErrAssertion("setter condition «%v» on table field «%v»", condName, def.Name)
		}
		s.writeCond = wc
	}

	if s.strategy.init != nil {
		if err := s.strategy.init(ctx, d, s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Set converts a source value into a field update patch. A nil patch
// with nil error means the write condition suppressed the update. A
// failure tagged as a value error, whether from the write-condition
// evaluation or from the conversion itself, becomes an Errors
// annotation on the patch so sibling fields in the batch still get
// evaluated; every other failure propagates.
func (s *Setter) Set(ctx context.Context, data any, existing *rpm.FormView) (*rpm.FieldPatch, error) {
	emit, err := s.shouldWrite(data, existing)
	if err == nil && !emit {
		return nil, nil
	}
	var patch *rpm.FieldPatch
	if err == nil {
		patch, err = s.strategy.convert(ctx, s, data, existing)
	}
	if err != nil {
		if errors.Is(err, rpm.ErrValueError) {
			return &rpm.FieldPatch{
				Uid:    s.field.Uid,
				Field:  s.field.Name,
				Errors: err.Error(),
			}, nil
		}
		return nil, err
	}
	if patch == nil {
		return nil, nil
	}
	patch.Uid = s.field.Uid
	patch.Field = s.field.Name
	return patch, nil
}

func (s *Setter) shouldWrite(data any, existing *rpm.FormView) (bool, error) {
	if s.writeCond == writeAlways {
		return true, nil
	}
	var current string
	if existing != nil {
		if fv, ok := existing.FieldByUid(s.field.Uid); ok {
			current = fv.AsString()
		}
	}
	switch s.writeCond {
	case writeGt:
		src, err := asFloat(data)
		if err != nil {
			return false, err
		}
		if current == "" {
			return true, nil
		}
		cur, err := parseNumber(current)
		if err != nil {
			return true, nil // unreadable current value loses
		}
		return src > cur, nil
	case writeNe:
		return asString(data) != current, nil
	case writeEmptySource:
		return isEmptyValue(data), nil
	case writeEmptyDestination:
		return current == "", nil
	}
	return true, nil
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	}
	return false
}

// SetBatch applies one setter per value pair and collects the emitted
// patches. Value-error patches come back annotated, they never abort
// the batch; structural errors do.
func SetBatch(ctx context.Context, setters []*Setter, values []any, existing *rpm.FormView) ([]rpm.FieldPatch, error) {
	if len(setters) != len(values) {
		return nil, rpm.ErrAssertion("SetBatch: %d setters, %d values", len(setters), len(values))
	}
	res := make([]rpm.FieldPatch, 0, len(setters))
	for i, s := range setters {
		patch, err := s.Set(ctx, values[i], existing)
		if err != nil {
			return nil, err
		}
		if patch != nil {
			res = append(res, *patch)
		}
	}
	return res, nil
}
