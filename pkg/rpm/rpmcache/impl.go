/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package rpmcache

import (
	"context"
	"time"

	"github.com/erni27/imcache"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rpmsoftware/integration-common-sub000/pkg/coreutils"
	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
)

const (
	formsCacheSize   = 512
	schemaExpiration = 10 * time.Minute
)

// cachedAPI memoizes the idempotent reads of an rpm.API handle. Forms are
// kept under LRU pressure only; schema-shaped data (processes, fields,
// statuses, directories) expires, since schemas drift while a worker is
// running. Writes pass through and invalidate the touched form.
type cachedAPI struct {
	rpm.API
	forms    *lru.Cache[int64, *rpm.Form]
	procs    *imcache.Cache[int64, *rpm.Process]
	procList *imcache.Cache[struct{}, []rpm.ProcInfo]
	statuses *imcache.Cache[int64, []rpm.StatusLevel]
	entities *imcache.Cache[rpm.EntityType, []rpm.Entity]
}

// New wraps api with the memoizing decorator.
func New(api rpm.API) rpm.API {
	forms, err := lru.New[int64, *rpm.Form](formsCacheSize)
	if err != nil {
		panic(err)
	}
	return &cachedAPI{
		API:      api,
		forms:    forms,
		procs:    imcache.New(imcache.WithDefaultExpirationOption[int64, *rpm.Process](schemaExpiration)),
		procList: imcache.New(imcache.WithDefaultExpirationOption[struct{}, []rpm.ProcInfo](schemaExpiration)),
		statuses: imcache.New(imcache.WithDefaultExpirationOption[int64, []rpm.StatusLevel](schemaExpiration)),
		entities: imcache.New(imcache.WithDefaultExpirationOption[rpm.EntityType, []rpm.Entity](schemaExpiration)),
	}
}

func (c *cachedAPI) GetProcesses(ctx context.Context) ([]rpm.ProcInfo, error) {
	if v, ok := c.procList.Get(struct{}{}); ok {
		return v, nil
	}
	v, err := c.API.GetProcesses(ctx)
	if err != nil {
		return nil, err
	}
	c.procList.Set(struct{}{}, v, imcache.WithDefaultExpiration())
	return v, nil
}

func (c *cachedAPI) GetFields(ctx context.Context, processID int64) (*rpm.Process, error) {
	if v, ok := c.procs.Get(processID); ok {
		return v, nil
	}
	var v *rpm.Process
	err := coreutils.Retry(ctx, func() (err error) {
		v, err = c.API.GetFields(ctx, processID)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.procs.Set(processID, v, imcache.WithDefaultExpiration())
	return v, nil
}

func (c *cachedAPI) GetForm(ctx context.Context, formID int64) (*rpm.Form, error) {
	if v, ok := c.forms.Get(formID); ok {
		return v, nil
	}
	v, err := c.API.GetForm(ctx, formID)
	if err != nil || v == nil {
		return v, err
	}
	c.forms.Add(formID, v)
	return v, nil
}

func (c *cachedAPI) DemandForm(ctx context.Context, formID int64) (*rpm.Form, error) {
	if v, ok := c.forms.Get(formID); ok {
		return v, nil
	}
	v, err := c.API.DemandForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	c.forms.Add(formID, v)
	return v, nil
}

func (c *cachedAPI) CreateForm(ctx context.Context, processID int64, fields []rpm.FieldPatch) (*rpm.Form, error) {
	v, err := c.API.CreateForm(ctx, processID, fields)
	if err != nil {
		return nil, err
	}
	c.forms.Add(v.FormID, v)
	return v, nil
}

func (c *cachedAPI) EditForm(ctx context.Context, formID int64, fields []rpm.FieldPatch) (*rpm.Form, error) {
	v, err := c.API.EditForm(ctx, formID, fields)
	if err != nil {
		// the cached copy may be stale now
		c.forms.Remove(formID)
		return nil, err
	}
	c.forms.Add(formID, v)
	return v, nil
}

func (c *cachedAPI) GetStatus(ctx context.Context, processID int64) ([]rpm.StatusLevel, error) {
	if v, ok := c.statuses.Get(processID); ok {
		return v, nil
	}
	v, err := c.API.GetStatus(ctx, processID)
	if err != nil {
		return nil, err
	}
	c.statuses.Set(processID, v, imcache.WithDefaultExpiration())
	return v, nil
}

func (c *cachedAPI) GetEntities(ctx context.Context, typ rpm.EntityType) ([]rpm.Entity, error) {
	if v, ok := c.entities.Get(typ); ok {
		return v, nil
	}
	v, err := c.API.GetEntities(ctx, typ)
	if err != nil {
		return nil, err
	}
	c.entities.Set(typ, v, imcache.WithDefaultExpiration())
	return v, nil
}

func (c *cachedAPI) CreateEntity(ctx context.Context, typ rpm.EntityType, name string) (*rpm.Entity, error) {
	v, err := c.API.CreateEntity(ctx, typ, name)
	if err != nil {
		return nil, err
	}
	// the enumerated directory is stale now
	c.entities.Remove(typ)
	return v, nil
}
