package reservationRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adspot/database"
	"adspot/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const queryTimeout = 5 * time.Second

// MongoReservationStore implements Store on a MongoDB collection. Writes are
// guarded by a version field: every update is conditional on the version the
// transaction read, so concurrent writers cannot both win.
type MongoReservationStore struct {
	coll       *mongo.Collection
	screenColl *mongo.Collection
}

// NewMongoReservationStore constructs a store over the shared Mongo client.
func NewMongoReservationStore() *MongoReservationStore {
	db := database.MongoClient.Database("adspot")
	return &MongoReservationStore{
		coll:       db.Collection("reservations"),
		screenColl: db.Collection("screens"),
	}
}

func (s *MongoReservationStore) Get(ctx context.Context, id string) (*models.Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return getOne(ctx, s.coll, id)
}

func (s *MongoReservationStore) QueryByScreen(ctx context.Context, screenID string, statuses []models.ReservationStatus) ([]models.Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return queryScreen(ctx, s.coll, screenID, statuses)
}

func (s *MongoReservationStore) ListByScreen(ctx context.Context, screenID string) ([]models.Reservation, error) {
	return s.list(ctx, bson.M{"screen_id": screenID})
}

func (s *MongoReservationStore) ListByOwner(ctx context.Context, ownerID string) ([]models.Reservation, error) {
	return s.list(ctx, bson.M{"owner_id": ownerID})
}

func (s *MongoReservationStore) ListByRenter(ctx context.Context, renterID string) ([]models.Reservation, error) {
	return s.list(ctx, bson.M{"renter_id": renterID})
}

func (s *MongoReservationStore) ListByStatus(ctx context.Context, statuses []models.ReservationStatus) ([]models.Reservation, error) {
	return s.list(ctx, bson.M{"status": bson.M{"$in": statuses}})
}

func (s *MongoReservationStore) list(ctx context.Context, filter bson.M) ([]models.Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Reservation
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding reservations: %w", err)
	}
	return out, nil
}

// Transact runs fn inside a Mongo session transaction. A version-check
// failure inside fn, or a transient transaction error from the server, both
// surface as ErrTxnConflict so the service's retry loop can re-run fn from a
// fresh read.
func (s *MongoReservationStore) Transact(ctx context.Context, fn func(ctx context.Context, txn Txn) error) error {
	client := s.coll.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	err = mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		txn := &mongoTxn{coll: s.coll, screenColl: s.screenColl}
		if err := fn(sc, txn); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	})
	if err != nil && isTransientTxnError(err) {
		return ErrTxnConflict
	}
	return err
}

// mongoTxn routes reads and writes through the session context it is handed
// (fn receives the SessionContext as its ctx).
type mongoTxn struct {
	coll       *mongo.Collection
	screenColl *mongo.Collection
}

// TouchScreen bumps the screen's sentinel document inside the transaction.
// Mongo detects write-write conflicts between transactions, so concurrent
// accepts for the same screen are forced to serialize: the loser aborts with
// a transient transaction error and the service retries from a fresh read.
func (t *mongoTxn) TouchScreen(ctx context.Context, screenID string) error {
	filter := bson.M{"id": screenID}
	update := bson.M{"$inc": bson.M{"commit_seq": 1}}
	opts := options.Update().SetUpsert(true)
	if _, err := t.screenColl.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("error touching screen %s: %w", screenID, err)
	}
	return nil
}

func (t *mongoTxn) Get(ctx context.Context, id string) (*models.Reservation, error) {
	return getOne(ctx, t.coll, id)
}

func (t *mongoTxn) QueryByScreen(ctx context.Context, screenID string, statuses []models.ReservationStatus) ([]models.Reservation, error) {
	return queryScreen(ctx, t.coll, screenID, statuses)
}

func (t *mongoTxn) Insert(ctx context.Context, r *models.Reservation) error {
	r.Version = 1
	if _, err := t.coll.InsertOne(ctx, r); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateID
		}
		return fmt.Errorf("error inserting reservation: %w", err)
	}
	return nil
}

// Update writes conditional on the version the caller read. MatchedCount of
// zero means someone else committed first; the whole transaction aborts.
func (t *mongoTxn) Update(ctx context.Context, r *models.Reservation) error {
	filter := bson.M{"id": r.ID, "version": r.Version}
	next := *r
	next.Version = r.Version + 1
	res, err := t.coll.ReplaceOne(ctx, filter, &next)
	if err != nil {
		return fmt.Errorf("error updating reservation %s: %w", r.ID, err)
	}
	if res.MatchedCount == 0 {
		return ErrTxnConflict
	}
	r.Version = next.Version
	return nil
}

func getOne(ctx context.Context, coll *mongo.Collection, id string) (*models.Reservation, error) {
	var r models.Reservation
	if err := coll.FindOne(ctx, bson.M{"id": id}).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("error fetching reservation %s: %w", id, err)
	}
	return &r, nil
}

func queryScreen(ctx context.Context, coll *mongo.Collection, screenID string, statuses []models.ReservationStatus) ([]models.Reservation, error) {
	filter := bson.M{"screen_id": screenID}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	cursor, err := coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error querying reservations for screen %s: %w", screenID, err)
	}
	defer cursor.Close(ctx)

	var out []models.Reservation
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding reservations for screen %s: %w", screenID, err)
	}
	return out, nil
}

// isTransientTxnError recognizes server-side write conflicts that Mongo
// labels as retryable.
func isTransientTxnError(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.HasErrorLabel("TransientTransactionError")
	}
	return false
}
