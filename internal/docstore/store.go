// Package docstore is the MongoDB implementation of domain.Store.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"holidayrent/internal/config"
	"holidayrent/internal/domain"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	collProperties   = "properties"
	collBookings     = "bookings"
	collReviews      = "reviews"
	collUsers        = "users"
	collBookingLocks = "booking_locks"
)

// Store keeps every entity in its own collection, keyed by the string "id"
// field rather than Mongo's ObjectID.
type Store struct {
	db         *mongo.Database
	properties *mongo.Collection
	bookings   *mongo.Collection
	reviews    *mongo.Collection
	users      *mongo.Collection
	locks      *mongo.Collection
	logger     *zerolog.Logger
	now        func() time.Time

	lockTTL   time.Duration
	lockRetry time.Duration
}

var _ domain.Store = (*Store)(nil)

// Connect dials cfg.URI, verifies the connection and prepares indexes.
func Connect(ctx context.Context, cfg config.MongoConfig, logger *zerolog.Logger) (*Store, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetConnectTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	s := NewStore(client.Database(cfg.Database), logger)
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info().Str("database", cfg.Database).Msg("mongo store initialized")
	return s, nil
}

func NewStore(db *mongo.Database, logger *zerolog.Logger) *Store {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Store{
		db:         db,
		properties: db.Collection(collProperties),
		bookings:   db.Collection(collBookings),
		reviews:    db.Collection(collReviews),
		users:      db.Collection(collUsers),
		locks:      db.Collection(collBookingLocks),
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		lockTTL:    10 * time.Second,
		lockRetry:  20 * time.Millisecond,
	}
}

// emailCollation makes the unique email index case-insensitive.
var emailCollation = &options.Collation{Locale: "en", Strength: 2}

func indexModels() map[string][]mongo.IndexModel {
	unique := func(keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true)}
	}
	return map[string][]mongo.IndexModel{
		collProperties: {
			unique(bson.D{{Key: "id", Value: 1}}),
			{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		collBookings: {
			unique(bson.D{{Key: "id", Value: 1}}),
			{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "status", Value: 1}, {Key: "check_in", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		collReviews: {
			unique(bson.D{{Key: "id", Value: 1}}),
			unique(bson.D{{Key: "user_id", Value: 1}, {Key: "property_id", Value: 1}}),
			{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		collUsers: {
			unique(bson.D{{Key: "id", Value: 1}}),
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetCollation(emailCollation),
			},
		},
	}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	for coll, idx := range indexModels() {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.db.Client().Disconnect(ctx)
}

// findOne decodes the first match into out, mapping a miss to ErrNotFound.
func findOne(ctx context.Context, coll *mongo.Collection, filter bson.M, out any, entity string, opts ...*options.FindOneOptions) error {
	err := coll.FindOne(ctx, filter, opts...).Decode(out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Errorf(domain.ErrNotFound, "%s not found", entity)
		}
		return fmt.Errorf("failed to get %s: %w", entity, err)
	}
	return nil
}

// findAll decodes every match of filter.
func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts ...*options.FindOptions) ([]*T, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var out []*T
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// updateByID applies set to the document with the given id.
func (s *Store) updateByID(ctx context.Context, coll *mongo.Collection, id string, set bson.M, entity string) error {
	set["updated_at"] = s.now()
	res, err := coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", entity, err)
	}
	if res.MatchedCount == 0 {
		return domain.Errorf(domain.ErrNotFound, "%s not found", entity)
	}
	return nil
}
