package reservation

import (
	"testing"

	"adspot/models"

	"github.com/stretchr/testify/assert"
)

func TestCommittedDates(t *testing.T) {
	reservations := []models.Reservation{
		{ID: "a", Status: models.StatusAccepted, Dates: []string{"2025-03-10", "2025-03-11"}},
		{ID: "b", Status: models.StatusLive, Dates: []string{"2025-03-12"}},
		{ID: "c", Status: models.StatusRequested, Dates: []string{"2025-03-13"}}, // not committed
		{ID: "d", Status: models.StatusCancelled, Dates: []string{"2025-03-14"}}, // released
	}

	got := CommittedDates(reservations, "")
	assert.Equal(t, map[string]struct{}{
		"2025-03-10": {}, "2025-03-11": {}, "2025-03-12": {},
	}, got)

	t.Run("excludes the reservation under inspection", func(t *testing.T) {
		got := CommittedDates(reservations, "a")
		assert.Equal(t, map[string]struct{}{"2025-03-12": {}}, got)
	})
}

func TestOverlap(t *testing.T) {
	committed := map[string]struct{}{
		"2025-03-11": {},
		"2025-03-12": {},
	}

	t.Run("reports the clashing dates sorted", func(t *testing.T) {
		clash := Overlap([]string{"2025-03-12", "2025-03-11", "2025-03-20"}, committed)
		assert.Equal(t, []string{"2025-03-11", "2025-03-12"}, clash)
	})

	t.Run("empty when disjoint", func(t *testing.T) {
		assert.Empty(t, Overlap([]string{"2025-03-20", "2025-03-21"}, committed))
	})

	t.Run("empty committed set never clashes", func(t *testing.T) {
		assert.Empty(t, Overlap([]string{"2025-03-11"}, map[string]struct{}{}))
	})
}
