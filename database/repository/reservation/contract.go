package reservationRepo

import (
	"context"
	"errors"

	"adspot/models"
)

// Store-level errors. The service layer translates these into its own
// taxonomy; nothing above the repositories matches on mongo errors directly.
var (
	// ErrReservationNotFound: no document with the given id.
	ErrReservationNotFound = errors.New("reservation not found in store")

	// ErrTxnConflict: the transaction observed a record that was written by
	// someone else between its read and its write, and was aborted. The
	// caller may re-run the whole transaction function.
	ErrTxnConflict = errors.New("reservation store: transaction aborted by concurrent write")

	// ErrDuplicateID: insert with an id that already exists.
	ErrDuplicateID = errors.New("reservation store: id already exists")
)

// Txn is the view of the store inside a single transaction. Reads made
// through it are part of the transaction's footprint: if any record it read
// or wrote is modified concurrently, the commit fails with ErrTxnConflict.
type Txn interface {
	Get(ctx context.Context, id string) (*models.Reservation, error)
	QueryByScreen(ctx context.Context, screenID string, statuses []models.ReservationStatus) ([]models.Reservation, error)
	Insert(ctx context.Context, r *models.Reservation) error
	// Update writes the record conditional on r.Version matching the stored
	// version, then bumps it. A mismatch surfaces as ErrTxnConflict.
	Update(ctx context.Context, r *models.Reservation) error
	// TouchScreen enlists the screen's sentinel record in the transaction's
	// write set. Two transactions that both touch the same screen cannot
	// both commit; one is aborted with ErrTxnConflict. Committing
	// transactions (accept) must call this before reading the screen's
	// committed dates, otherwise two accepts of different reservations for
	// the same screen are invisible to each other under snapshot reads.
	TouchScreen(ctx context.Context, screenID string) error
}

// Store is the transactional document store for reservations. Reservations
// are keyed by id with a secondary index on (screen_id, status) backing
// QueryByScreen. List results are sorted newest created_at first.
type Store interface {
	Get(ctx context.Context, id string) (*models.Reservation, error)
	QueryByScreen(ctx context.Context, screenID string, statuses []models.ReservationStatus) ([]models.Reservation, error)
	ListByScreen(ctx context.Context, screenID string) ([]models.Reservation, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Reservation, error)
	ListByRenter(ctx context.Context, renterID string) ([]models.Reservation, error)
	ListByStatus(ctx context.Context, statuses []models.ReservationStatus) ([]models.Reservation, error)

	// Transact runs fn inside one transaction. fn may be invoked with a
	// fresh Txn on internal retries, so it must be side-effect free apart
	// from its reads and writes. A write-write race aborts the whole
	// transaction and returns ErrTxnConflict; any other error from fn is
	// returned unchanged with nothing applied.
	Transact(ctx context.Context, fn func(ctx context.Context, txn Txn) error) error
}
