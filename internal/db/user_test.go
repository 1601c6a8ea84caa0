package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-dispatch/internal/models"
)

func TestMongoUserCollection_NilCollection(t *testing.T) {
	c := &MongoUserCollection{}
	ctx := context.Background()

	assert.ErrorIs(t, c.InsertUser(ctx, models.User{}), ErrNilCollection)
	_, err := c.FindUserByUsername(ctx, "dispatcher")
	assert.ErrorIs(t, err, ErrNilCollection)
	assert.ErrorIs(t, c.UpdateLastLogin(ctx, "not-an-id"), ErrInvalidID)
}

func TestMongoUserCollection_Integration(t *testing.T) {
	database := testDatabase(t)
	ctx := context.Background()
	users := &MongoUserCollection{Collection: database.Collection(UsersCollection)}

	require.NoError(t, users.InsertUser(ctx, models.User{
		Username:     "Dispatcher1",
		Email:        "Dispatch@Example.com",
		PasswordHash: "hash",
		Role:         models.RoleDispatcher,
	}))

	found, err := users.FindUserByUsername(ctx, "dispatcher1")
	require.NoError(t, err)
	assert.Equal(t, "dispatcher1", found.Username)
	assert.True(t, found.IsActive)
	assert.NotZero(t, found.CreatedAt)

	byEmail, err := users.FindUserByEmail(ctx, "dispatch@example.com")
	require.NoError(t, err)
	assert.Equal(t, found.ID, byEmail.ID)

	found.FirstName = "Minh"
	require.NoError(t, users.UpdateUser(ctx, found.ID.Hex(), *found))
	require.NoError(t, users.UpdateLastLogin(ctx, found.ID.Hex()))

	again, err := users.FindUserByID(ctx, found.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Minh", again.FirstName)
	assert.NotNil(t, again.LastLogin)

	_, err = users.FindUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = users.FindUserByID(ctx, "invalid-id")
	assert.ErrorIs(t, err, ErrInvalidID)
}
