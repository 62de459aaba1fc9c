/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package rpm

import "context"

// API is the platform handle every engine calls through. Implementations
// are externally supplied (the HTTP client, test fakes); a memoizing
// decorator may wrap the handle transparently, see rpmcache.
type API interface {
	// GetProcesses enumerates the process directory.
	GetProcesses(ctx context.Context) ([]ProcInfo, error)

	// GetFields fetches the full schema of one process.
	GetFields(ctx context.Context, processID int64) (*Process, error)

	// GetForms fetches a process's form list projected through a view.
	// viewID 0 selects the process's default view.
	GetForms(ctx context.Context, processID, viewID int64) (*FormList, error)

	// GetForm fetches one form, (nil, nil) when it does not exist.
	GetForm(ctx context.Context, formID int64) (*Form, error)

	// DemandForm fetches one form, failing with ErrNotFoundError when it
	// does not exist.
	DemandForm(ctx context.Context, formID int64) (*Form, error)

	// CreateForm starts a new form with the given field values.
	CreateForm(ctx context.Context, processID int64, fields []FieldPatch) (*Form, error)

	// EditForm applies field patches to an existing form and returns the
	// updated form.
	EditForm(ctx context.Context, formID int64, fields []FieldPatch) (*Form, error)

	// GetStatus fetches a process's status ladder.
	GetStatus(ctx context.Context, processID int64) ([]StatusLevel, error)

	// GetEntity fetches one directory entity.
	GetEntity(ctx context.Context, typ EntityType, id int64) (*Entity, error)

	// GetEntities enumerates a directory.
	GetEntities(ctx context.Context, typ EntityType) ([]Entity, error)

	// CreateEntity adds a directory entity with the given name.
	CreateEntity(ctx context.Context, typ EntityType, name string) (*Entity, error)
}
