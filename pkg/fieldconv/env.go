/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

// Package fieldconv compiles declarative field descriptors into reusable
// accessors converting between the platform's field representation and
// plain data values. One engine serves both directions: getters read and
// derive values off forms, setters turn source values into field update
// patches. Table fields are handled by a sub-engine shared by both
// directions. Dispatch runs over the closed type registry of pkg/rpm.
package fieldconv

import (
	"context"
	"sync"

	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
)

// siblingCache memoizes foreign process schemas. The fill is monotonic
// and idempotent, guarded for concurrent first use.
type siblingCache struct {
	mu sync.Mutex
	m  map[int64]*rpm.Process
}

// Env is the compilation and dispatch context shared by every accessor
// compiled for one process. Compiled accessors hold their Env; the
// sibling-schema cache is the only mutable state, so compiled accessors
// stay safe for concurrent reuse.
type Env struct {
	api      rpm.API
	proc     *rpm.Process
	siblings *siblingCache
	// inTable marks an Env synthesized for table rows; a few per-type
	// parsers (Percent) read cell values differently from field values.
	inTable bool
}

func NewEnv(api rpm.API, proc *rpm.Process) *Env {
	return &Env{api: api, proc: proc, siblings: &siblingCache{m: map[int64]*rpm.Process{}}}
}

func (e *Env) API() rpm.API { return e.api }

func (e *Env) Process() *rpm.Process { return e.proc }

// Sibling loads and memoizes another process's schema, for
// cross-reference lookups (getDeep hops, referenced-object projections).
func (e *Env) Sibling(ctx context.Context, processID int64) (*rpm.Process, error) {
	e.siblings.mu.Lock()
	if p, ok := e.siblings.m[processID]; ok {
		e.siblings.mu.Unlock()
		return p, nil
	}
	e.siblings.mu.Unlock()

	p, err := e.api.GetFields(ctx, processID)
	if err != nil {
		return nil, err
	}
	e.siblings.mu.Lock()
	if prev, ok := e.siblings.m[processID]; ok {
		p = prev // a concurrent first use won
	} else {
		e.siblings.m[processID] = p
	}
	e.siblings.mu.Unlock()
	return p, nil
}

// subEnv derives an Env for a synthesized sub-schema (table rows,
// referenced processes), sharing the API handle and the sibling cache.
func (e *Env) subEnv(proc *rpm.Process) *Env {
	return &Env{api: e.api, proc: proc, siblings: e.siblings}
}

// subTableEnv derives an Env for pseudo-records synthesized from table
// rows.
func (e *Env) subTableEnv(proc *rpm.Process) *Env {
	sub := e.subEnv(proc)
	sub.inTable = true
	return sub
}
