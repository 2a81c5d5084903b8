package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "eventa/internal/bookings/errors"
	"eventa/pkg/config"
	mongotx "eventa/pkg/db/mongo"
	"eventa/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"

	// Owned by the events module; the ledger only bumps admission_seq.
	eventsCollectionName = "Events"
)

type mongoBookingRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	events     *mongo.Collection
	txManager  mongotx.TransactionManager
}

type BookingRepository interface {
	CreateMany(ctx context.Context, bookings []*model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByUser(ctx context.Context, userID string) ([]*model.Booking, error)
	FindByEvent(ctx context.Context, eventID string) ([]*model.Booking, error)
	FindActiveByEventAndUser(ctx context.Context, eventID, userID string) (*model.Booking, error)
	CountActiveByEvent(ctx context.Context, eventID string) (int64, error)
	CountByStatusForEvent(ctx context.Context, eventID string) (model.BookingsDetails, error)
	UpdateStatus(ctx context.Context, id, from, to string) (bool, error)
	FindStale(ctx context.Context, cutoff time.Time) ([]*model.Booking, error)
	DeleteStale(ctx context.Context, id string, cutoff time.Time) (bool, error)
	LockEvent(ctx context.Context, eventID string) (*model.Event, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		events:     db.Collection(eventsCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func activeFilter() bson.M {
	return bson.M{"$in": model.ActiveBookingStatuses}
}

// CreateMany inserts all bookings in one ordered write. Inside a
// transaction a failure aborts every insert.
func (r *mongoBookingRepository) CreateMany(ctx context.Context, bookings []*model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	docs := make([]any, 0, len(bookings))
	for _, b := range bookings {
		docs = append(docs, b)
	}

	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to create bookings: %w", err)
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var booking model.Booking
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindByUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"user_id": userID}, opts)
}

func (r *mongoBookingRepository) FindByEvent(ctx context.Context, eventID string) ([]*model.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return r.find(ctx, bson.M{"event_id": eventID}, opts)
}

func (r *mongoBookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := make([]*model.Booking, 0)
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

// FindActiveByEventAndUser returns nil, nil when the user holds no pending or
// confirmed booking for the event.
func (r *mongoBookingRepository) FindActiveByEventAndUser(ctx context.Context, eventID, userID string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"event_id": eventID,
		"user_id":  userID,
		"status":   activeFilter(),
	}

	var booking model.Booking
	err := r.collection.FindOne(ctx, filter).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active booking: %w", err)
	}
	return &booking, nil
}

func (r *mongoBookingRepository) CountActiveByEvent(ctx context.Context, eventID string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{
		"event_id": eventID,
		"status":   activeFilter(),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count active bookings: %w", err)
	}
	return count, nil
}

func (r *mongoBookingRepository) CountByStatusForEvent(ctx context.Context, eventID string) (model.BookingsDetails, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"event_id": eventID, "status": activeFilter()}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}

	var details model.BookingsDetails
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return details, fmt.Errorf("failed to aggregate bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var groups []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return details, fmt.Errorf("failed to decode booking counts: %w", err)
	}

	for _, g := range groups {
		switch g.Status {
		case model.BookingConfirmed:
			details.Confirmed = g.Count
		case model.BookingPending:
			details.Pending = g.Count
		}
	}
	return details, nil
}

// UpdateStatus moves a booking from one status to another only if it still
// has the expected status. It reports false when the booking changed in the
// meantime or does not exist.
func (r *mongoBookingRepository) UpdateStatus(ctx context.Context, id, from, to string) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "status": from}
	update := bson.M{"$set": bson.M{
		"status":     to,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to update booking status: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

func (r *mongoBookingRepository) FindStale(ctx context.Context, cutoff time.Time) ([]*model.Booking, error) {
	filter := bson.M{
		"status":     model.BookingPending,
		"created_at": bson.M{"$lt": cutoff},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return r.find(ctx, filter, opts)
}

// DeleteStale removes the booking only if it is still pending and older than
// cutoff, so a booking confirmed after selection survives.
func (r *mongoBookingRepository) DeleteStale(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":        id,
		"status":     model.BookingPending,
		"created_at": bson.M{"$lt": cutoff},
	}

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to delete stale booking: %w", err)
	}
	return result.DeletedCount == 1, nil
}

// LockEvent bumps the event's admission sequence and returns the updated
// document. Two transactions doing this on the same event write-conflict.
func (r *mongoBookingRepository) LockEvent(ctx context.Context, eventID string) (*model.Event, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$inc": bson.M{"admission_seq": 1}}

	var event model.Event
	err := r.events.FindOneAndUpdate(ctx, bson.M{"_id": eventID}, update, opts).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to lock event: %w", err)
	}
	return &event, nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
