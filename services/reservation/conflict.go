package reservation

import (
	"sort"

	"adspot/models"
)

// CommittedDates returns the union of dates across the given reservations
// that are in a committed status, skipping the reservation identified by
// excludeID. The input is expected to come from a QueryByScreen inside the
// same store transaction as the write that depends on it; computing it from
// a stale read reopens the double-booking race.
func CommittedDates(reservations []models.Reservation, excludeID string) map[string]struct{} {
	committed := make(map[string]struct{})
	for i := range reservations {
		r := &reservations[i]
		if r.ID == excludeID || !r.IsCommitted() {
			continue
		}
		for _, d := range r.Dates {
			committed[d] = struct{}{}
		}
	}
	return committed
}

// Overlap returns the candidate dates already present in the committed set,
// sorted for deterministic display. An empty result means the candidate set
// is free to commit.
func Overlap(candidate []string, committed map[string]struct{}) []string {
	var clash []string
	for _, d := range candidate {
		if _, taken := committed[d]; taken {
			clash = append(clash, d)
		}
	}
	sort.Strings(clash)
	return clash
}
