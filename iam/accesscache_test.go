package iam

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forbearing/surrealkv-core/catalog"
	"github.com/forbearing/surrealkv-core/types/consts"
)

func TestAccessCacheReusesDefinitionUntilGenerationBumps(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()

	signinExpr := "SELECT * FROM user WHERE name = $user AND pass = $pass"
	access := catalog.AccessMethodDefinition{
		Level: consts.LevelDatabase, Name: "user", Type: consts.AccessRecord,
		SigninExpr: &signinExpr,
	}
	require.NoError(t, view.PutAccess(ctx, "test", "test", access))

	cache := NewAccessCache()
	first, err := cache.Get(ctx, view, "db", "test", "test", "user")
	require.NoError(t, err)
	second, err := cache.Get(ctx, view, "db", "test", "test", "user")
	require.NoError(t, err)
	assert.Same(t, first, second)

	newExpr := "SELECT * FROM user WHERE name = $user AND pass = $pass AND active = true"
	access.SigninExpr = &newExpr
	require.NoError(t, view.PutAccess(ctx, "test", "test", access))

	third, err := cache.Get(ctx, view, "db", "test", "test", "user")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, newExpr, *third.SigninExpr)
}

func TestGetAccessFallsBackWithoutCache(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()

	access := catalog.AccessMethodDefinition{Level: consts.LevelDatabase, Name: "user", Type: consts.AccessRecord}
	require.NoError(t, view.PutAccess(ctx, "test", "test", access))

	deps := Deps{View: view}
	def, err := getAccess(ctx, deps, "db", "test", "test", "user")
	require.NoError(t, err)
	assert.Equal(t, "user", def.Name)
}
