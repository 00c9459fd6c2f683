package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDates(t *testing.T) {
	t.Run("sorts and dedupes", func(t *testing.T) {
		got, err := NormalizeDates([]string{"2025-06-02", "2025-06-01", "2025-06-02"})
		require.NoError(t, err)
		assert.Equal(t, []string{"2025-06-01", "2025-06-02"}, got)
	})

	t.Run("rejects empty set", func(t *testing.T) {
		_, err := NormalizeDates(nil)
		assert.ErrorIs(t, err, ErrDatesEmpty)
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		for _, bad := range []string{"2025/06/01", "06-01-2025", "2025-13-01", "tomorrow"} {
			_, err := NormalizeDates([]string{bad})
			assert.ErrorIs(t, err, ErrDateMalformed, bad)
		}
	})

	t.Run("does not modify the input", func(t *testing.T) {
		in := []string{"2025-06-02", "2025-06-01"}
		_, err := NormalizeDates(in)
		require.NoError(t, err)
		assert.Equal(t, []string{"2025-06-02", "2025-06-01"}, in)
	})
}

func TestReservationValidate(t *testing.T) {
	valid := Reservation{
		ID:          "res-1",
		ScreenID:    "screen-1",
		OwnerID:     "owner-1",
		RenterID:    "renter-1",
		Dates:       []string{"2025-06-01"},
		AmountTotal: 5000,
		Currency:    "usd",
	}
	require.NoError(t, valid.Validate())

	t.Run("missing party ids", func(t *testing.T) {
		r := valid
		r.OwnerID = ""
		assert.ErrorIs(t, r.Validate(), ErrPartyIDMissing)
	})

	t.Run("no dates", func(t *testing.T) {
		r := valid
		r.Dates = nil
		assert.ErrorIs(t, r.Validate(), ErrDatesEmpty)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		r := valid
		r.AmountTotal = 0
		assert.ErrorIs(t, r.Validate(), ErrAmountInvalid)
		r.AmountTotal = -100
		assert.ErrorIs(t, r.Validate(), ErrAmountInvalid)
	})
}

func TestStatusPredicates(t *testing.T) {
	committed := map[ReservationStatus]bool{
		StatusAccepted: true, StatusLive: true, StatusCompleted: true,
	}
	terminal := map[ReservationStatus]bool{
		StatusCompleted: true, StatusDeclined: true, StatusRefunded: true,
	}
	all := []ReservationStatus{
		StatusRequested, StatusAccepted, StatusLive, StatusCompleted,
		StatusDeclined, StatusCancelled, StatusRefunded,
	}
	for _, st := range all {
		r := Reservation{Status: st}
		assert.Equal(t, committed[st], r.IsCommitted(), "IsCommitted(%s)", st)
		assert.Equal(t, terminal[st], r.IsTerminal(), "IsTerminal(%s)", st)
	}
}

func TestHasDate(t *testing.T) {
	r := Reservation{Dates: []string{"2025-06-01", "2025-06-02"}}
	assert.True(t, r.HasDate("2025-06-01"))
	assert.False(t, r.HasDate("2025-06-03"))
}
