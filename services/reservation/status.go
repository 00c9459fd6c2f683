package reservation

import "adspot/models"

// Event is something that can happen to a reservation.
type Event string

const (
	EventAccept        Event = "accept"
	EventDecline       Event = "decline"
	EventCancel        Event = "cancel"
	EventGoLive        Event = "go-live"
	EventComplete      Event = "complete"
	EventRefundSettled Event = "refund-settled"
)

// Actor identifies who is allowed to fire an event.
type Actor string

const (
	ActorOwner   Actor = "owner"
	ActorRenter  Actor = "renter"
	ActorSystem  Actor = "system"  // time-driven lifecycle sweeps
	ActorPayment Actor = "payment" // payment provider settlement
)

// transition is one row of the decision table.
type transition struct {
	from  models.ReservationStatus
	event Event
	actor Actor
	to    models.ReservationStatus
}

// The full legal transition table. Guards that need data (date overlap for
// accept, calendar checks for go-live/complete) are enforced by the service;
// this table answers only "is this edge legal for this actor".
var transitions = []transition{
	{models.StatusRequested, EventAccept, ActorOwner, models.StatusAccepted},
	{models.StatusRequested, EventDecline, ActorOwner, models.StatusDeclined},
	{models.StatusRequested, EventCancel, ActorRenter, models.StatusCancelled},
	{models.StatusAccepted, EventCancel, ActorRenter, models.StatusCancelled},
	{models.StatusAccepted, EventCancel, ActorOwner, models.StatusCancelled},
	{models.StatusAccepted, EventGoLive, ActorSystem, models.StatusLive},
	{models.StatusLive, EventComplete, ActorSystem, models.StatusCompleted},
	{models.StatusCancelled, EventRefundSettled, ActorPayment, models.StatusRefunded},
}

// NextStatus returns the status the reservation moves to when actor fires
// event, or an *InvalidTransitionError when no such edge exists. Pure; no
// I/O, no clock.
func NextStatus(current models.ReservationStatus, event Event, actor Actor) (models.ReservationStatus, error) {
	for _, t := range transitions {
		if t.from == current && t.event == event && t.actor == actor {
			return t.to, nil
		}
	}
	return "", &InvalidTransitionError{Status: current, Event: event}
}

// CanFire reports whether the edge exists without caring about the target.
func CanFire(current models.ReservationStatus, event Event, actor Actor) bool {
	_, err := NextStatus(current, event, actor)
	return err == nil
}
