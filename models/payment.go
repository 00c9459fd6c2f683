package models

import "time"

// ChargeRef identifies a captured charge at the payment provider. It is the
// only handle the core keeps; refunds are issued against it.
type ChargeRef string

// ChargeRequest is what the core hands the payment gateway when a renter is
// charged for a new booking request. Amounts are integer minor units (cents
// for USD) so no floating-point rounding can creep into money.
type ChargeRequest struct {
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	PayerRef   string `json:"payer_ref"`   // renter id at the provider
	BookingRef string `json:"booking_ref"` // reservation id, for reconciliation
}

// Receipt records the outcome of a successful capture.
type Receipt struct {
	ChargeRef  ChargeRef `json:"charge_ref"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	CapturedAt time.Time `json:"captured_at"`
}
