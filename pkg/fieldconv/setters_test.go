/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package fieldconv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpmsoftware/integration-common-sub000/pkg/coreutils"
	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
)

func TestSetterTypes(t *testing.T) {
	env, _ := testEnv()

	tests := []struct {
		name  string
		field string
		data  any
		want  string
	}{
		{"text", "Title", "Hello", "Hello"},
		{"number", "Qty", float64(1200), "1200"},
		{"number from string", "Qty", "1,500", "1500"},
		{"money", "Price", 1234.5, "1234.50"},
		{"date", "Due", time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), "3/4/2026"},
		{"date from iso", "Due", "2026-03-04", "3/4/2026"},
		{"yesno", "Rush", true, "Yes"},
		{"percent", "Margin", 0.5, "50%"},
		{"multilist", "Tags", []string{"a", "b"}, "a, b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			s, err := InitField(context.Background(), coreutils.MapObject{"field": tt.field}, env)
			require.NoError(err)
			patch, err := s.Set(context.Background(), tt.data, nil)
			require.NoError(err)
			require.NotNil(patch)
			require.Empty(patch.Errors)
			require.NotNil(patch.Value)
			require.Equal(tt.want, *patch.Value)
		})
	}
}

func TestSetterList(t *testing.T) {
	require := require.New(t)
	env, _ := testEnv()

	s, err := InitField(context.Background(), coreutils.MapObject{"field": "Color"}, env)
	require.NoError(err)
	patch, err := s.Set(context.Background(), "Blue", nil)
	require.NoError(err)
	require.Equal(int64(2), patch.ID)
	require.Equal("Blue", *patch.Value)

	// unknown option passes through as raw text
	patch, err = s.Set(context.Background(), "Chartreuse", nil)
	require.NoError(err)
	require.Zero(patch.ID)
	require.Equal("Chartreuse", *patch.Value)

	// with demand set it is a value error, annotated on the patch
	s, err = InitField(context.Background(), coreutils.MapObject{"field": "Color", "demand": true}, env)
	require.NoError(err)
	patch, err = s.Set(context.Background(), "Chartreuse", nil)
	require.NoError(err)
	require.NotEmpty(patch.Errors)
	require.Nil(patch.Value)
}

func TestSetterReadOnlyField(t *testing.T) {
	require := require.New(t)
	env, _ := testEnv()
	_, err := InitField(context.Background(), coreutils.MapObject{"field": "Total"}, env)
	require.ErrorIs(err, rpm.ErrConfigurationError)
}

func TestSetterUnknownNameFailsFast(t *testing.T) {
	require := require.New(t)
	env, _ := testEnv()
	_, err := InitField(context.Background(), coreutils.MapObject{"field": "Title", "setter": "bogus"}, env)
	require.ErrorIs(err, rpm.ErrConfigurationError)
}

func TestSetterWriteConditions(t *testing.T) {
	env, _ := testEnv()
	view := orderView()

	tests := []struct {
		name  string
		field string
		cond  string
		data  any
		emit  bool
	}{
		{"gt lower", "Qty", "gt", float64(1000), false},
		{"gt higher", "Qty", "gt", float64(1500), true},
		{"ne same", "Title", "ne", "Widget", false},
		{"ne changed", "Title", "ne", "Gadget", true},
		{"emptyDestination occupied", "Title", "emptyDestination", "X", false},
		{"emptyDestination empty", "Client", "emptyDestination", "Acme", true},
		{"emptySource with value", "Title", "emptySource", "X", false},
		{"emptySource empty", "Title", "emptySource", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			s, err := InitField(context.Background(), coreutils.MapObject{"field": tt.field, "condition": tt.cond}, env)
			require.NoError(err)
			patch, err := s.Set(context.Background(), tt.data, &view)
			require.NoError(err)
			if tt.emit {
				require.NotNil(patch)
			} else {
				require.Nil(patch)
			}
		})
	}
}

func TestSetterWriteConditionValueError(t *testing.T) {
	require := require.New(t)
	env, _ := testEnv()
	view := orderView()

	// an unparseable source value on a conditioned field is a
	// data-quality failure, it annotates the patch instead of erroring
	s, err := InitField(context.Background(), coreutils.MapObject{"field": "Qty", "condition": "gt"}, env)
	require.NoError(err)
	patch, err := s.Set(context.Background(), "not-a-number", &view)
	require.NoError(err)
	require.NotNil(patch)
	require.NotEmpty(patch.Errors)
	require.Equal(uidQty, patch.Uid)
	require.Nil(patch.Value)

	// and it must not abort sibling fields in a batch
	title, err := InitField(context.Background(), coreutils.MapObject{"field": "Title"}, env)
	require.NoError(err)
	patches, err := SetBatch(context.Background(), []*Setter{s, title}, []any{"not-a-number", "OK"}, &view)
	require.NoError(err)
	require.Len(patches, 2)
	require.NotEmpty(patches[0].Errors)
	require.Equal("OK", *patches[1].Value)
}

func TestSetterConditionOnTableField(t *testing.T) {
	require := require.New(t)
	env, _ := testEnv()
	_, err := InitField(context.Background(), coreutils.MapObject{"field": "Items", "condition": "gt"}, env)
	require.ErrorIs(err, rpm.ErrAssertionError)
}

func TestSetterEntity(t *testing.T) {
	require := require.New(t)
	env, api := testEnv()

	s, err := InitField(context.Background(), coreutils.MapObject{"field": "Client"}, env)
	require.NoError(err)
	patch, err := s.Set(context.Background(), "Acme", nil)
	require.NoError(err)
	require.Equal(int64(400), patch.ID)
	require.Equal("Acme", *patch.Value)

	// create adds the missing entity to the directory
	s, err = InitField(context.Background(), coreutils.MapObject{"field": "Client", "create": true}, env)
	require.NoError(err)
	patch, err = s.Set(context.Background(), "NewCo", nil)
	require.NoError(err)
	require.NotZero(patch.ID)
	require.Equal("NewCo", *patch.Value)
	require.Equal(1, api.CallCount("CreateEntity"))

	// demand turns a miss into a value error
	s, err = InitField(context.Background(), coreutils.MapObject{"field": "Client", "demand": true}, env)
	require.NoError(err)
	patch, err = s.Set(context.Background(), "Nobody", nil)
	require.NoError(err)
	require.NotEmpty(patch.Errors)
	require.Equal(1, api.CallCount("CreateEntity"))
}

func TestSetterRestrictedReference(t *testing.T) {
	require := require.New(t)
	env, _ := testEnv()

	s, err := InitField(context.Background(), coreutils.MapObject{"field": "Parent"}, env)
	require.NoError(err)
	patch, err := s.Set(context.Background(), float64(projectFormID), nil)
	require.NoError(err)
	require.Equal(projectFormID, patch.ID)

	// linking a nonexistent form is a data problem, not a crash
	patch, err = s.Set(context.Background(), float64(123456), nil)
	require.NoError(err)
	require.NotEmpty(patch.Errors)
}

func TestSetBatchValueErrorIsolation(t *testing.T) {
	require := require.New(t)
	env, _ := testEnv()

	due, err := InitField(context.Background(), coreutils.MapObject{"field": "Due"}, env)
	require.NoError(err)
	title, err := InitField(context.Background(), coreutils.MapObject{"field": "Title"}, env)
	require.NoError(err)

	patches, err := SetBatch(context.Background(), []*Setter{due, title}, []any{"not-a-date", "OK"}, nil)
	require.NoError(err)
	require.Len(patches, 2)
	require.NotEmpty(patches[0].Errors)
	require.Nil(patches[0].Value)
	require.Equal("OK", *patches[1].Value)
}

func TestSetThenGetRoundTrip(t *testing.T) {
	env, _ := testEnv()

	tests := []struct {
		name  string
		field string
		data  any
		want  any
	}{
		{"text", "Title", "Hello", "Hello"},
		{"number", "Qty", float64(1500), float64(1500)},
		{"money", "Price", 99.5, float64(99.5)},
		{"percent", "Margin", 0.25, 0.25},
		{"date", "Due", "2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"yesno", "Rush", false, false},
		{"multilist", "Tags", []string{"x", "y"}, []string{"x", "y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			s, err := InitField(context.Background(), coreutils.MapObject{"field": tt.field}, env)
			require.NoError(err)
			patch, err := s.Set(context.Background(), tt.data, nil)
			require.NoError(err)
			require.Empty(patch.Errors)

			view := rpm.NewFormView(orderView().ApplyPatch(*patch), env.Process())
			g, err := InitGetter(context.Background(), coreutils.MapObject{"field": tt.field}, env)
			require.NoError(err)
			got, err := g.Get(context.Background(), view)
			require.NoError(err)
			require.Equal(tt.want, got)
		})
	}
}
