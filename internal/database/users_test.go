package database

import (
	"context"
	"testing"

	"holidayrent/internal/domain"
	"holidayrent/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	u := &models.User{
		Email:        "alice@example.com",
		FirstName:    "Alice",
		LastName:     "Martin",
		PasswordHash: "hash",
		Role:         models.RoleGuest,
		IsActive:     true,
	}
	require.NoError(t, db.CreateUser(ctx, u))
	assert.NotEmpty(t, u.ID)

	t.Run("DuplicateEmailCaseInsensitive", func(t *testing.T) {
		err := db.CreateUser(ctx, &models.User{Email: "ALICE@example.com", FirstName: "A", LastName: "B", PasswordHash: "h", Role: models.RoleGuest})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("Lookup", func(t *testing.T) {
		byID, err := db.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", byID.Email)
		assert.Equal(t, models.RoleGuest, byID.Role)
		assert.Nil(t, byID.Phone)

		byEmail, err := db.GetUserByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)

		_, err = db.GetUserByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("UpdateProfile", func(t *testing.T) {
		phone := "+33 6 12 34 56 78"
		require.NoError(t, db.UpdateUserProfile(ctx, u.ID, models.ProfilePatch{
			FirstName: models.Set("Alicia"),
			Phone:     models.Set(&phone),
		}))
		got, err := db.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alicia", got.FirstName)
		assert.Equal(t, "Martin", got.LastName)
		require.NotNil(t, got.Phone)
		assert.Equal(t, phone, *got.Phone)

		assert.ErrorIs(t, db.UpdateUserProfile(ctx, "missing", models.ProfilePatch{}), domain.ErrNotFound)
	})
}

func TestClosedDatabaseErrors(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Close())
	ctx := context.Background()

	_, err := db.GetProperty(ctx, "x")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)

	_, err = db.ListUserBookings(ctx, "u")
	assert.Error(t, err)

	assert.Error(t, db.Ping(ctx))
}
