package repository

import (
	"context"
	"time"

	bookingserrors "eventa/internal/bookings/errors"
	"eventa/pkg/config"
	"eventa/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LockCollectionName = "Booking_locks"

// AdmissionLockRepository stores advisory admission leases.
type AdmissionLockRepository interface {
	Insert(ctx context.Context, lock *model.AdmissionLock) error
	DeleteExpired(ctx context.Context, id string, now time.Time) error
	Release(ctx context.Context, id, token string) error
}

type mongoAdmissionLockRepository struct {
	collection *mongo.Collection
}

func NewAdmissionLockRepository(cfg *config.Config) AdmissionLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAdmissionLockRepository{
		collection: db.Collection(LockCollectionName),
	}
}

// Insert returns ErrLockHeld if a lease with the same id exists.
func (r *mongoAdmissionLockRepository) Insert(ctx context.Context, lock *model.AdmissionLock) error {
	_, err := r.collection.InsertOne(ctx, lock)
	if mongo.IsDuplicateKeyError(err) {
		return bookingserrors.ErrLockHeld
	}
	return err
}

func (r *mongoAdmissionLockRepository) DeleteExpired(ctx context.Context, id string, now time.Time) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "expires_at": bson.M{"$lte": now}})
	return err
}

// Release removes the lease only when token still owns it.
func (r *mongoAdmissionLockRepository) Release(ctx context.Context, id, token string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "token": token})
	return err
}
