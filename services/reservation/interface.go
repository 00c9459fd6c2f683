package reservation

import (
	"context"

	"adspot/models"
)

// Service defines the reservation lifecycle operations. Every mutating call
// performs exactly one status transition (or fails with one error from the
// taxonomy in errors.go) and bumps the record's UpdatedAt.
type Service interface {
	CreateReservation(ctx context.Context, input CreateReservationInput) (*models.Reservation, error)
	AcceptBooking(ctx context.Context, id, actingOwnerID string) (*models.Reservation, error)
	DeclineBooking(ctx context.Context, id, actingOwnerID string) (*models.Reservation, error)
	CancelBooking(ctx context.Context, id, actingUserID string, role Actor) (*models.Reservation, error)
	MarkRefundSettled(ctx context.Context, id string) (*models.Reservation, error)
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	ListForScreen(ctx context.Context, screenID string) ([]models.Reservation, error)
	ListForOwner(ctx context.Context, ownerID string) ([]models.Reservation, error)
	ListForRenter(ctx context.Context, renterID string) ([]models.Reservation, error)
	RunLifecycleSweep(ctx context.Context) (SweepResult, error)
}
