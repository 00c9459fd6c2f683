package models

import "time"

// StatusChange is the payload handed to the notifier whenever a reservation
// moves between states. Delivery (push, email) happens outside this service;
// the payload carries what a delivery channel needs to render a message.
type StatusChange struct {
	ReservationID string            `json:"reservation_id"`
	ScreenID      string            `json:"screen_id"`
	OwnerID       string            `json:"owner_id"`
	RenterID      string            `json:"renter_id"`
	From          ReservationStatus `json:"from"`
	To            ReservationStatus `json:"to"`
	Dates         []string          `json:"dates"`
	OccurredAt    time.Time         `json:"occurred_at"`
}
