/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package fieldconv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpmsoftware/integration-common-sub000/pkg/coreutils"
	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
)

func TestFieldMapPatches(t *testing.T) {
	require := require.New(t)
	env, _ := testEnv()

	fm, err := InitFieldMap(context.Background(), coreutils.MapObject{
		"Title": "name",
		"Qty":   map[string]interface{}{"property": "amount"},
		"Due":   "due",
		"Color": map[string]interface{}{"property": "color", "setter": map[string]interface{}{"demand": true}},
	}, nil, env)
	require.NoError(err)

	src := coreutils.MapObject{
		"name":   "Gizmo",
		"amount": float64(5),
		"color":  "Blue",
		// "due" absent: its entry is skipped
	}
	patches, err := fm.Patches(context.Background(), src, nil)
	require.NoError(err)
	require.Len(patches, 3)

	byField := map[string]rpm.FieldPatch{}
	for _, p := range patches {
		byField[p.Field] = p
	}
	require.Equal("Gizmo", *byField["Title"].Value)
	require.Equal("5", *byField["Qty"].Value)
	require.Equal(int64(2), byField["Color"].ID)
}

func TestFieldMapValueErrorIsolation(t *testing.T) {
	require := require.New(t)
	env, _ := testEnv()

	fm, err := InitFieldMap(context.Background(), coreutils.MapObject{
		"Due":   "due",
		"Title": "name",
	}, nil, env)
	require.NoError(err)

	patches, err := fm.Patches(context.Background(), coreutils.MapObject{
		"due":  "garbage",
		"name": "Still works",
	}, nil)
	require.NoError(err)
	require.Len(patches, 2)

	byField := map[string]rpm.FieldPatch{}
	for _, p := range patches {
		byField[p.Field] = p
	}
	require.NotEmpty(byField["Due"].Errors)
	require.Equal("Still works", *byField["Title"].Value)
}

func TestFieldMapWriteCondition(t *testing.T) {
	require := require.New(t)
	env, _ := testEnv()
	view := orderView()

	fm, err := InitFieldMap(context.Background(), coreutils.MapObject{
		"Title": map[string]interface{}{"property": "name", "condition": "ne"},
	}, nil, env)
	require.NoError(err)

	patches, err := fm.Patches(context.Background(), coreutils.MapObject{"name": "Widget"}, &view)
	require.NoError(err)
	require.Empty(patches) // unchanged value suppressed

	patches, err = fm.Patches(context.Background(), coreutils.MapObject{"name": "Gadget"}, &view)
	require.NoError(err)
	require.Len(patches, 1)
}

func TestFieldMapReadOnlyDestinationFailsFast(t *testing.T) {
	require := require.New(t)
	env, _ := testEnv()
	_, err := InitFieldMap(context.Background(), coreutils.MapObject{"Total": "x"}, nil, env)
	require.ErrorIs(err, rpm.ErrConfigurationError)
}
