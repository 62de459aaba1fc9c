/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

// Package rpmtest provides an in-memory rpm.API for tests.
package rpmtest

import (
	"context"
	"sync"

	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
)

// API implements rpm.API over in-memory maps and counts calls per method
// so tests can assert on memoization and call fan-out.
type API struct {
	mu        sync.Mutex
	Processes map[int64]*rpm.Process
	Forms     map[int64]*rpm.Form
	Entities  map[rpm.EntityType][]rpm.Entity
	FormLists map[int64]map[int64]*rpm.FormList
	Calls     map[string]int
	nextID    int64
}

func New() *API {
	return &API{
		Processes: map[int64]*rpm.Process{},
		Forms:     map[int64]*rpm.Form{},
		Entities:  map[rpm.EntityType][]rpm.Entity{},
		FormLists: map[int64]map[int64]*rpm.FormList{},
		Calls:     map[string]int{},
		nextID:    1000,
	}
}

func (a *API) count(method string) {
	a.mu.Lock()
	a.Calls[method]++
	a.mu.Unlock()
}

// CallCount returns how many times method was invoked.
func (a *API) CallCount(method string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Calls[method]
}

func (a *API) allocID() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	return a.nextID
}

func (a *API) GetProcesses(context.Context) ([]rpm.ProcInfo, error) {
	a.count("GetProcesses")
	res := make([]rpm.ProcInfo, 0, len(a.Processes))
	for _, p := range a.Processes {
		res = append(res, rpm.ProcInfo{ProcessID: p.ProcessID, Process: p.Process, Enabled: true})
	}
	return res, nil
}

func (a *API) GetFields(_ context.Context, processID int64) (*rpm.Process, error) {
	a.count("GetFields")
	p, ok := a.Processes[processID]
	if !ok {
		return nil, rpm.ErrNotFound("process «%d»", processID)
	}
	return p, nil
}

func (a *API) GetForms(_ context.Context, processID, viewID int64) (*rpm.FormList, error) {
	a.count("GetForms")
	views, ok := a.FormLists[processID]
	if !ok {
		return nil, rpm.ErrNotFound("process «%d»", processID)
	}
	fl, ok := views[viewID]
	if !ok {
		return nil, rpm.ErrNotFound("view «%d» of process «%d»", viewID, processID)
	}
	return fl, nil
}

func (a *API) GetForm(_ context.Context, formID int64) (*rpm.Form, error) {
	a.count("GetForm")
	return a.Forms[formID], nil
}

func (a *API) DemandForm(_ context.Context, formID int64) (*rpm.Form, error) {
	a.count("DemandForm")
	f, ok := a.Forms[formID]
	if !ok {
		return nil, rpm.ErrFormNotFound(formID)
	}
	return f, nil
}

func (a *API) CreateForm(_ context.Context, processID int64, fields []rpm.FieldPatch) (*rpm.Form, error) {
	a.count("CreateForm")
	form := &rpm.Form{FormID: a.allocID(), ProcessID: processID}
	for _, p := range fields {
		form = rpm.NewFormView(form, a.Processes[processID]).ApplyPatch(p)
	}
	a.mu.Lock()
	a.Forms[form.FormID] = form
	a.mu.Unlock()
	return form, nil
}

func (a *API) EditForm(_ context.Context, formID int64, fields []rpm.FieldPatch) (*rpm.Form, error) {
	a.count("EditForm")
	form, ok := a.Forms[formID]
	if !ok {
		return nil, rpm.ErrFormNotFound(formID)
	}
	for _, p := range fields {
		form = rpm.NewFormView(form, a.Processes[form.ProcessID]).ApplyPatch(p)
	}
	a.mu.Lock()
	a.Forms[formID] = form
	a.mu.Unlock()
	return form, nil
}

func (a *API) GetStatus(_ context.Context, processID int64) ([]rpm.StatusLevel, error) {
	a.count("GetStatus")
	p, ok := a.Processes[processID]
	if !ok {
		return nil, rpm.ErrNotFound("process «%d»", processID)
	}
	return p.StatusLevels, nil
}

func (a *API) GetEntity(_ context.Context, typ rpm.EntityType, id int64) (*rpm.Entity, error) {
	a.count("GetEntity")
	for _, e := range a.Entities[typ] {
		if e.EntityID == id {
			e := e
			return &e, nil
		}
	}
	return nil, rpm.ErrNotFound("%v «%d»", typ, id)
}

func (a *API) GetEntities(_ context.Context, typ rpm.EntityType) ([]rpm.Entity, error) {
	a.count("GetEntities")
	return a.Entities[typ], nil
}

func (a *API) CreateEntity(_ context.Context, typ rpm.EntityType, name string) (*rpm.Entity, error) {
	a.count("CreateEntity")
	e := rpm.Entity{EntityID: a.allocID(), Name: name}
	a.mu.Lock()
	a.Entities[typ] = append(a.Entities[typ], e)
	a.mu.Unlock()
	return &e, nil
}
