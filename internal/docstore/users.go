package docstore

import (
	"context"
	"fmt"

	"holidayrent/internal/domain"
	"holidayrent/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := s.now()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.Errorf(domain.ErrConflict, "email already registered")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := findOne(ctx, s.users, bson.M{"id": id}, &u, "user"); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	opts := options.FindOne().SetCollation(emailCollation)
	if err := findOne(ctx, s.users, bson.M{"email": email}, &u, "user", opts); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) UpdateUserProfile(ctx context.Context, id string, patch models.ProfilePatch) error {
	return s.updateByID(ctx, s.users, id, profileSet(patch), "user")
}
