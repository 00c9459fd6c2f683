package reservationRepo

import (
	"context"
	"sort"
	"sync"

	"adspot/models"
)

// MemoryReservationStore is the reference Store implementation: a map of
// versioned records behind a mutex, with transactions that buffer their
// writes and validate at commit that nothing they read or wrote changed
// underneath them. It exhibits the same optimistic-concurrency behavior as
// the Mongo store, which makes it the fixture for every race test, and it is
// usable as-is for development without infrastructure.
type MemoryReservationStore struct {
	mu      sync.Mutex
	records map[string]*models.Reservation
	screens map[string]int64 // screen id -> commit sequence (sentinel records)
}

func NewMemoryReservationStore() *MemoryReservationStore {
	return &MemoryReservationStore{
		records: make(map[string]*models.Reservation),
		screens: make(map[string]int64),
	}
}

func (s *MemoryReservationStore) Get(ctx context.Context, id string) (*models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, ErrReservationNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryReservationStore) QueryByScreen(ctx context.Context, screenID string, statuses []models.ReservationStatus) ([]models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryByScreenLocked(screenID, statuses), nil
}

func (s *MemoryReservationStore) ListByScreen(ctx context.Context, screenID string) ([]models.Reservation, error) {
	return s.listWhere(func(r *models.Reservation) bool { return r.ScreenID == screenID })
}

func (s *MemoryReservationStore) ListByOwner(ctx context.Context, ownerID string) ([]models.Reservation, error) {
	return s.listWhere(func(r *models.Reservation) bool { return r.OwnerID == ownerID })
}

func (s *MemoryReservationStore) ListByRenter(ctx context.Context, renterID string) ([]models.Reservation, error) {
	return s.listWhere(func(r *models.Reservation) bool { return r.RenterID == renterID })
}

func (s *MemoryReservationStore) ListByStatus(ctx context.Context, statuses []models.ReservationStatus) ([]models.Reservation, error) {
	set := statusSet(statuses)
	return s.listWhere(func(r *models.Reservation) bool {
		_, ok := set[r.Status]
		return ok
	})
}

func (s *MemoryReservationStore) listWhere(match func(*models.Reservation) bool) ([]models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Reservation
	for _, r := range s.records {
		if match(r) {
			out = append(out, *r)
		}
	}
	// Newest first; id as tiebreaker so ordering is stable under tests.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Transact runs fn against a transaction that records the version of every
// record it touches. The commit, under the store mutex, re-checks those
// versions: any record (or screen sentinel) written by a concurrent
// transaction in the meantime aborts this one with ErrTxnConflict and none
// of its writes apply.
func (s *MemoryReservationStore) Transact(ctx context.Context, fn func(ctx context.Context, txn Txn) error) error {
	txn := &memoryTxn{
		store:     s,
		reads:     make(map[string]int64),
		writes:    make(map[string]*models.Reservation),
		inserted:  make(map[string]bool),
		screenSeq: make(map[string]int64),
	}
	if err := fn(ctx, txn); err != nil {
		return err
	}
	return txn.commit()
}

type memoryTxn struct {
	store     *MemoryReservationStore
	reads     map[string]int64               // record id -> version observed (0 = observed absent)
	writes    map[string]*models.Reservation // pending upserts, keyed by id
	inserted  map[string]bool
	screenSeq map[string]int64 // screen id -> sequence observed via TouchScreen
}

func (t *memoryTxn) Get(ctx context.Context, id string) (*models.Reservation, error) {
	if w, ok := t.writes[id]; ok {
		cp := *w
		return &cp, nil
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	r, ok := t.store.records[id]
	if !ok {
		t.observe(id, 0)
		return nil, ErrReservationNotFound
	}
	t.observe(id, r.Version)
	cp := *r
	return &cp, nil
}

func (t *memoryTxn) QueryByScreen(ctx context.Context, screenID string, statuses []models.ReservationStatus) ([]models.Reservation, error) {
	t.store.mu.Lock()
	out := t.store.queryByScreenLocked(screenID, statuses)
	for i := range out {
		t.observe(out[i].ID, out[i].Version)
	}
	t.store.mu.Unlock()

	// Overlay this transaction's own pending writes.
	set := statusSet(statuses)
	filtered := out[:0]
	for i := range out {
		if _, rewritten := t.writes[out[i].ID]; !rewritten {
			filtered = append(filtered, out[i])
		}
	}
	for _, w := range t.writes {
		if w.ScreenID != screenID {
			continue
		}
		if _, ok := set[w.Status]; ok || len(statuses) == 0 {
			filtered = append(filtered, *w)
		}
	}
	return filtered, nil
}

func (t *memoryTxn) Insert(ctx context.Context, r *models.Reservation) error {
	t.store.mu.Lock()
	_, exists := t.store.records[r.ID]
	t.store.mu.Unlock()
	if exists || t.inserted[r.ID] {
		return ErrDuplicateID
	}
	cp := *r
	cp.Version = 1
	t.writes[r.ID] = &cp
	t.inserted[r.ID] = true
	r.Version = cp.Version
	return nil
}

func (t *memoryTxn) Update(ctx context.Context, r *models.Reservation) error {
	if _, seen := t.reads[r.ID]; !seen && !t.inserted[r.ID] {
		// An update must be based on a read made inside this transaction.
		t.observe(r.ID, r.Version)
	}
	cp := *r
	cp.Version = t.reads[r.ID] + 1 // one bump per transaction, however many writes
	t.writes[r.ID] = &cp
	r.Version = cp.Version
	return nil
}

func (t *memoryTxn) TouchScreen(ctx context.Context, screenID string) error {
	if _, seen := t.screenSeq[screenID]; seen {
		return nil
	}
	t.store.mu.Lock()
	t.screenSeq[screenID] = t.store.screens[screenID]
	t.store.mu.Unlock()
	return nil
}

// observe records the first version seen for a record; later observations of
// the same record inside one transaction do not widen the footprint.
func (t *memoryTxn) observe(id string, version int64) {
	if _, seen := t.reads[id]; !seen {
		t.reads[id] = version
	}
}

func (t *memoryTxn) commit() error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the read set.
	for id, version := range t.reads {
		current, ok := s.records[id]
		switch {
		case !ok && version != 0:
			return ErrTxnConflict
		case ok && current.Version != version:
			return ErrTxnConflict
		}
	}
	// Validate screen sentinels.
	for screenID, seq := range t.screenSeq {
		if s.screens[screenID] != seq {
			return ErrTxnConflict
		}
	}
	// Validate pending writes against the versions they were based on.
	for id, w := range t.writes {
		current, ok := s.records[id]
		if t.inserted[id] {
			if ok {
				return ErrDuplicateID
			}
			continue
		}
		if !ok || current.Version != w.Version-1 {
			return ErrTxnConflict
		}
	}

	// Apply.
	for id, w := range t.writes {
		cp := *w
		s.records[id] = &cp
	}
	for screenID := range t.screenSeq {
		s.screens[screenID]++
	}
	return nil
}

func (s *MemoryReservationStore) queryByScreenLocked(screenID string, statuses []models.ReservationStatus) []models.Reservation {
	set := statusSet(statuses)
	var out []models.Reservation
	for _, r := range s.records {
		if r.ScreenID != screenID {
			continue
		}
		if len(statuses) > 0 {
			if _, ok := set[r.Status]; !ok {
				continue
			}
		}
		out = append(out, *r)
	}
	return out
}

func statusSet(statuses []models.ReservationStatus) map[models.ReservationStatus]struct{} {
	set := make(map[models.ReservationStatus]struct{}, len(statuses))
	for _, st := range statuses {
		set[st] = struct{}{}
	}
	return set
}
