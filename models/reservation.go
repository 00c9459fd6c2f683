package models

import (
	"errors"
	"sort"
	"time"
)

// ReservationStatus enumerates every state a reservation can be in.
// Values are persisted verbatim, so they must never be renamed.
type ReservationStatus string

const (
	StatusRequested ReservationStatus = "requested"
	StatusAccepted  ReservationStatus = "accepted"
	StatusLive      ReservationStatus = "live"
	StatusCompleted ReservationStatus = "completed"
	StatusDeclined  ReservationStatus = "declined"
	StatusCancelled ReservationStatus = "cancelled"
	StatusRefunded  ReservationStatus = "refunded"
)

// CommittedStatuses are the statuses that occupy calendar dates exclusively.
// A screen date held by a reservation in one of these states cannot be held
// by any other reservation for the same screen.
var CommittedStatuses = []ReservationStatus{StatusAccepted, StatusLive, StatusCompleted}

// TerminalStatuses never transition again (completed keeps its dates
// committed for history; the others release them).
var TerminalStatuses = []ReservationStatus{StatusCompleted, StatusDeclined, StatusRefunded}

// DateFormat is the wire format for booking dates. Dates carry no
// time-of-day and no timezone; they are labels compared for equality, and
// lexicographic order on this format matches calendar order.
const DateFormat = "2006-01-02"

// Reservation is a renter's booking of a screen for a set of calendar dates.
// Everything except Status, Version and UpdatedAt is immutable after creation.
type Reservation struct {
	ID                  string            `bson:"id" json:"id"`
	ScreenID            string            `bson:"screen_id" json:"screen_id"`
	OwnerID             string            `bson:"owner_id" json:"owner_id"`
	RenterID            string            `bson:"renter_id" json:"renter_id"`
	Dates               []string          `bson:"dates" json:"dates"` // "YYYY-MM-DD", sorted, unique, never empty
	Status              ReservationStatus `bson:"status" json:"status"`
	AmountTotal         int64             `bson:"amount_total" json:"amount_total"` // minor currency units
	Currency            string            `bson:"currency" json:"currency"`
	ChargeRef           string            `bson:"charge_ref,omitempty" json:"charge_ref,omitempty"`
	ContentID           string            `bson:"content_id,omitempty" json:"content_id,omitempty"`
	SpecialInstructions string            `bson:"special_instructions,omitempty" json:"special_instructions,omitempty"`
	Version             int64             `bson:"version" json:"-"` // bumped by the store on every write
	CreatedAt           time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time         `bson:"updated_at" json:"updated_at"`
}

// IsCommitted reports whether the reservation currently holds its dates.
func (r *Reservation) IsCommitted() bool {
	for _, s := range CommittedStatuses {
		if r.Status == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (r *Reservation) IsTerminal() bool {
	for _, s := range TerminalStatuses {
		if r.Status == s {
			return true
		}
	}
	return false
}

// HasDate reports whether the reservation covers the given date label.
func (r *Reservation) HasDate(date string) bool {
	for _, d := range r.Dates {
		if d == date {
			return true
		}
	}
	return false
}

var (
	ErrDatesEmpty     = errors.New("reservation requires at least one date")
	ErrDateMalformed  = errors.New("reservation date must be formatted YYYY-MM-DD")
	ErrAmountInvalid  = errors.New("reservation amount must be positive")
	ErrPartyIDMissing = errors.New("screen, owner and renter ids are required")
)

// NormalizeDates validates a candidate date set and returns it sorted and
// de-duplicated. The input slice is not modified.
func NormalizeDates(dates []string) ([]string, error) {
	if len(dates) == 0 {
		return nil, ErrDatesEmpty
	}
	seen := make(map[string]struct{}, len(dates))
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		if _, err := time.Parse(DateFormat, d); err != nil {
			return nil, ErrDateMalformed
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Strings(out)
	return out, nil
}

// Validate checks the immutable fields set at creation time.
func (r *Reservation) Validate() error {
	if r.ScreenID == "" || r.OwnerID == "" || r.RenterID == "" {
		return ErrPartyIDMissing
	}
	if len(r.Dates) == 0 {
		return ErrDatesEmpty
	}
	if r.AmountTotal <= 0 {
		return ErrAmountInvalid
	}
	return nil
}
