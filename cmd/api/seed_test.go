package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"holidayrent/internal/auth"
	"holidayrent/internal/config"
	"holidayrent/internal/database"
	"holidayrent/internal/models"
	"holidayrent/internal/repository"
	"holidayrent/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeed = `
users:
  - email: Owner@Example.com
    password: ${SEED_PASSWORD}
    first_name: Claire
    last_name: Dubois
    role: owner
properties:
  - owner_email: owner@example.com
    name: Gite du Moulin
    description: Mill cottage
    property_type: cottage
    location:
      address: Le Moulin
      city: Sarlat
      region: Nouvelle-Aquitaine
      postal_code: "24200"
    bedrooms: 2
    bathrooms: 1
    max_guests: 4
    price_per_night: 135
    amenities: [wifi]
`

func TestSeedFromFile(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ctx := context.Background()

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	defer db.Close()

	users := service.NewUserService(db, repository.NewMemorySessionStore(), auth.NewIssuer("k", time.Hour), time.Hour, &logger)
	properties := service.NewPropertyService(db, config.CacheConfig{}, &logger)
	defer properties.Close()

	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSeed), 0o644))
	t.Setenv("SEED_PATH", path)
	t.Setenv("SEED_PASSWORD", "password123")

	require.NoError(t, seedFromFile(ctx, users, properties, db, &logger))

	owner, err := db.GetUserByEmail(ctx, "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, owner.Role)

	listed, err := properties.ListProperties(ctx, models.PropertyFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, owner.ID, listed[0].OwnerID)
	assert.Equal(t, 135.0, listed[0].PricePerNight)

	// a second run leaves existing data alone
	require.NoError(t, seedFromFile(ctx, users, properties, db, &logger))
	listed, err = properties.ListProperties(ctx, models.PropertyFilter{})
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestSeedFromFileUnknownRole(t *testing.T) {
	logger := zerolog.New(io.Discard)
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("users:\n  - email: a@b.c\n    password: password123\n    role: superuser\n"), 0o644))
	t.Setenv("SEED_PATH", path)

	err := seedFromFile(context.Background(), nil, nil, nil, &logger)
	assert.ErrorContains(t, err, "unknown role")
}

func TestSeedFromFileDisabled(t *testing.T) {
	logger := zerolog.New(io.Discard)
	t.Setenv("SEED_PATH", "")
	assert.NoError(t, seedFromFile(context.Background(), nil, nil, nil, &logger))
}
