package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"holidayrent/internal/domain"
	"holidayrent/internal/models"
	"holidayrent/internal/service"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

type seedUser struct {
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Role      string `yaml:"role"`
}

type seedProperty struct {
	OwnerEmail         string `yaml:"owner_email"`
	models.NewProperty `yaml:",inline"`
}

type seedFile struct {
	Users      []seedUser     `yaml:"users"`
	Properties []seedProperty `yaml:"properties"`
}

func loadSeed(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed seedFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &seed); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return &seed, nil
}

// seedFromFile provisions the accounts and listings named in SEED_PATH.
// Existing accounts are left alone and their listings are not re-created.
func seedFromFile(
	ctx context.Context,
	users *service.UserService,
	properties *service.PropertyService,
	accounts domain.UserRepository,
	logger *zerolog.Logger,
) error {
	path := os.Getenv("SEED_PATH")
	if path == "" {
		return nil
	}
	seed, err := loadSeed(path)
	if err != nil {
		logger.Error().Err(err).Str("seed_path", path).Msg("read seed")
		return err
	}

	created := make(map[string]*models.User)
	for _, su := range seed.Users {
		role, err := models.ParseRole(su.Role)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", su.Email, err)
		}
		u, err := users.Provision(ctx, models.NewUser{
			Email:     su.Email,
			Password:  su.Password,
			FirstName: su.FirstName,
			LastName:  su.LastName,
		}, role)
		if errors.Is(err, domain.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("seed user %s: %w", su.Email, err)
		}
		created[u.Email] = u
	}

	listed := 0
	for _, sp := range seed.Properties {
		email := strings.ToLower(strings.TrimSpace(sp.OwnerEmail))
		owner, ok := created[email]
		if !ok {
			if _, err := accounts.GetUserByEmail(ctx, email); err != nil {
				return fmt.Errorf("seed property %q: owner %s: %w", sp.Name, sp.OwnerEmail, err)
			}
			continue
		}
		if _, err := properties.CreateProperty(ctx, owner.Identity(), sp.NewProperty); err != nil {
			return fmt.Errorf("seed property %q: %w", sp.Name, err)
		}
		listed++
	}

	logger.Info().Int("users", len(created)).Int("properties", listed).Str("seed_path", path).Msg("seed applied")
	return nil
}
