package surrealdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemKVSetGet(t *testing.T) {
	db := testDB(t)
	store := NewSystemKVStore(db, testLogger())
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "schema_version", "1"))

	value, err := store.Get(ctx, "schema_version")
	require.NoError(t, err)
	assert.Equal(t, "1", value)
}

func TestSystemKVOverwrite(t *testing.T) {
	db := testDB(t)
	store := NewSystemKVStore(db, testLogger())
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "schema_version", "1"))
	require.NoError(t, store.Set(ctx, "schema_version", "2"))

	value, err := store.Get(ctx, "schema_version")
	require.NoError(t, err)
	assert.Equal(t, "2", value)
}

func TestSystemKVGetMissing(t *testing.T) {
	db := testDB(t)
	store := NewSystemKVStore(db, testLogger())

	_, err := store.Get(context.Background(), "nope")
	assert.Error(t, err)
}
