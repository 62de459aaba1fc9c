/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package rpmcache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm/rpmtest"
)

func TestMemoizedReads(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	fake := rpmtest.New()
	fake.Processes[10] = &rpm.Process{ProcessID: 10, Process: "Orders"}
	fake.Forms[77] = &rpm.Form{FormID: 77, ProcessID: 10}

	api := New(fake)

	for i := 0; i < 3; i++ {
		p, err := api.GetFields(ctx, 10)
		require.NoError(err)
		require.Equal("Orders", p.Process)

		f, err := api.DemandForm(ctx, 77)
		require.NoError(err)
		require.Equal(int64(77), f.FormID)
	}
	require.Equal(1, fake.CallCount("GetFields"))
	require.Equal(1, fake.CallCount("DemandForm"))
}

func TestWriteThroughRefreshesForm(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	fake := rpmtest.New()
	fake.Processes[10] = &rpm.Process{ProcessID: 10}
	fake.Forms[77] = &rpm.Form{FormID: 77, ProcessID: 10,
		Fields: []rpm.FieldValue{{Uid: "u1", Value: rpm.StrPtr("old")}}}

	api := New(fake)

	f, err := api.GetForm(ctx, 77)
	require.NoError(err)
	require.Equal("old", f.Fields[0].AsString())

	_, err = api.EditForm(ctx, 77, []rpm.FieldPatch{{Uid: "u1", Value: rpm.StrPtr("new")}})
	require.NoError(err)

	f, err = api.GetForm(ctx, 77)
	require.NoError(err)
	require.Equal("new", f.Fields[0].AsString())
	require.Equal(1, fake.CallCount("GetForm"), "the edited form must come from the refreshed cache entry")
}

func TestDirectoryInvalidatedOnCreate(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	fake := rpmtest.New()
	fake.Entities[rpm.EntityType_Customer] = []rpm.Entity{{EntityID: 1, Name: "ACME"}}

	api := New(fake)

	es, err := api.GetEntities(ctx, rpm.EntityType_Customer)
	require.NoError(err)
	require.Len(es, 1)

	_, err = api.CreateEntity(ctx, rpm.EntityType_Customer, "Globex")
	require.NoError(err)

	es, err = api.GetEntities(ctx, rpm.EntityType_Customer)
	require.NoError(err)
	require.Len(es, 2)
	require.Equal(2, fake.CallCount("GetEntities"))
}
