/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

// Package converters composes field accessors, conditions and platform
// calls into multi-step transformations over collections of plain
// objects. A pipeline compiles once from step descriptors and threads
// the collection through its steps in strict order; compiled pipelines
// are immutable and safe for concurrent reuse.
package converters

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/untillpro/goutils/logger"

	"github.com/rpmsoftware/integration-common-sub000/pkg/coreutils"
	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
)

// Step is one compiled pipeline step. Immutable after Init.
type Step struct {
	name          string
	api           rpm.API
	strategy      *strategy
	cfg           any
	parallel      bool
	errorProperty string
}

type strategy struct {
	name string
	init func(ctx context.Context, d coreutils.MapObject, s *Step) error
	// convert transforms the threaded collection. Attaching strategies
	// mutate elements in place; reshaping strategies return a new
	// collection.
	convert func(ctx context.Context, s *Step, run *Run, coll []coreutils.MapObject) ([]coreutils.MapObject, error)
}

var strategies = map[string]*strategy{}

func registerConverter(name string, s *strategy) {
	if _, dup := strategies[name]; dup {
		panic("duplicate converter " + name)
	}
	s.name = name
	strategies[name] = s
}

// Run identifies one Convert invocation; its ID is stamped on log lines
// and captured error annotations.
type Run struct {
	ID      string
	Started time.Time
}

var timeNow = time.Now

// Pipeline is a compiled step sequence.
type Pipeline struct {
	steps []*Step
}

// Init compiles step descriptors in order. A descriptor names its
// strategy under "converter" ("getter" when unnamed); enabled:false
// skips the step; an unknown strategy name fails with the offending
// descriptor in the error.
func Init(ctx context.Context, descriptors []interface{}, api rpm.API) (*Pipeline, error) {
	p := &Pipeline{}
	for i, raw := range descriptors {
		var d coreutils.MapObject
		switch t := raw.(type) {
		case coreutils.MapObject:
			d = t
		case map[string]interface{}:
			d = coreutils.MapObject(t)
		default:
			return nil, rpm.ErrConfiguration("step %d: descriptor must be an object, got «%v»", i, raw)
		}

		if enabled, ok, err := d.AsBoolean("enabled"); err != nil {
			return nil, rpm.ErrConfiguration("step %d: %v", i, err)
		} else if ok && !enabled {
			continue
		}

		name, ok, err := d.AsString("converter")
		if err != nil {
			return nil, rpm.ErrConfiguration("step %d: %v", i, err)
		}
		if !ok {
			name = "getter"
		}
		strat, known := strategies[name]
		if !known {
			return nil, rpm.ErrConfiguration("unknown converter «%v» (descriptor: %v)", name, map[string]interface{}(d))
		}

		s := &Step{name: name, api: api, strategy: strat}
		if s.parallel, _, err = d.AsBoolean("parallel"); err != nil {
			return nil, rpm.ErrConfiguration("step %d: %v", i, err)
		}
		if s.errorProperty, _, err = d.AsString("errorProperty"); err != nil {
			return nil, rpm.ErrConfiguration("step %d: %v", i, err)
		}
		if strat.init != nil {
			if err := strat.init(ctx, d, s); err != nil {
				return nil, rpm.EnrichError(err, "step %d («%v»)", i, name)
			}
		}
		p.steps = append(p.steps, s)
	}
	return p, nil
}

// Convert threads data through every step. A single input object yields
// a single output object when the collection still holds exactly one
// element at the end; collections stay collections.
func (p *Pipeline) Convert(ctx context.Context, data any) (any, error) {
	run := &Run{ID: uuid.NewString(), Started: timeNow()}
	coll, single, err := normalize(data)
	if err != nil {
		return nil, err
	}
	for _, s := range p.steps {
		if logger.IsVerbose() {
			logger.Verbose("run", run.ID, "step", s.name, "elements", strconv.Itoa(len(coll)))
		}
		coll, err = s.strategy.convert(ctx, s, run, coll)
		if err != nil {
			return nil, rpm.EnrichError(err, "converter «%v» (run %v)", s.name, run.ID)
		}
	}
	if single && len(coll) == 1 {
		return coll[0], nil
	}
	res := make([]interface{}, len(coll))
	for i := range coll {
		res[i] = coll[i]
	}
	return res, nil
}

func normalize(data any) (coll []coreutils.MapObject, single bool, err error) {
	switch t := data.(type) {
	case nil:
		return nil, false, nil
	case coreutils.MapObject:
		return []coreutils.MapObject{t}, true, nil
	case map[string]interface{}:
		return []coreutils.MapObject{coreutils.MapObject(t)}, true, nil
	case []coreutils.MapObject:
		return t, false, nil
	case []interface{}:
		coll = make([]coreutils.MapObject, 0, len(t))
		for i, raw := range t {
			el, ok := asElement(raw)
			if !ok {
				return nil, false, rpm.ErrValue("element %d is not an object: «%v»", i, raw)
			}
			coll = append(coll, el)
		}
		return coll, false, nil
	}
	return nil, false, rpm.ErrValue("not an object or collection: «%v»", data)
}

func asElement(v any) (coreutils.MapObject, bool) {
	switch t := v.(type) {
	case coreutils.MapObject:
		return t, true
	case map[string]interface{}:
		return coreutils.MapObject(t), true
	}
	return nil, false
}

// forEach applies f per element, sequentially or through the bounded
// parallel runner when the step opted in. With errorProperty configured
// a data or remote failure is captured onto the element as
// {Error, Time, RunID} and the batch continues; configuration and
// assertion failures always propagate.
func (s *Step) forEach(ctx context.Context, run *Run, coll []coreutils.MapObject, f func(el coreutils.MapObject) error) error {
	apply := func(el coreutils.MapObject) error {
		err := f(el)
		if err == nil {
			return nil
		}
		if s.errorProperty == "" ||
			errors.Is(err, rpm.ErrConfigurationError) ||
			errors.Is(err, rpm.ErrAssertionError) {
			return err
		}
		logger.Error("converter", s.name, "element failed:", err.Error())
		el[s.errorProperty] = coreutils.MapObject{
			"Error": err.Error(),
			"Time":  timeNow().UTC().Format(time.RFC3339),
			"RunID": run.ID,
		}
		return nil
	}
	if s.parallel {
		return coreutils.ScatterGather(ctx, coll, coreutils.MaxParallelCalls,
			func(el coreutils.MapObject) (struct{}, error) { return struct{}{}, apply(el) },
			func(struct{}) {})
	}
	for _, el := range coll {
		if err := apply(el); err != nil {
			return err
		}
	}
	return nil
}

// resolveProcess loads a process schema by ID or by directory name.
func resolveProcess(ctx context.Context, api rpm.API, ref any) (*rpm.Process, error) {
	switch t := ref.(type) {
	case float64:
		return api.GetFields(ctx, int64(t))
	case int:
		return api.GetFields(ctx, int64(t))
	case int64:
		return api.GetFields(ctx, t)
	case string:
		procs, err := api.GetProcesses(ctx)
		if err != nil {
			return nil, err
		}
		for i := range procs {
			if procs[i].Process == t {
				return api.GetFields(ctx, procs[i].ProcessID)
			}
		}
		return nil, rpm.ErrConfiguration("process «%v» not found", t)
	}
	return nil, rpm.ErrConfiguration("a process name or ID is required, got «%v»", ref)
}

func asID(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		return n, err == nil
	}
	return 0, false
}
