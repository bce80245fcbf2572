// Package servicetest provides an in-memory implementation of the service
// stores for tests.  It mirrors the MySQL repositories closely enough for
// business-rule tests: unique usernames and seat numbers, soft deletes,
// active-reservation filters, and all-or-nothing transactions.
package servicetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
	"github.com/iliyamo/studyroom-seat-reservation/internal/repository"
	"github.com/iliyamo/studyroom-seat-reservation/internal/service"
)

// DB holds every table.  The zero value is not usable; call New.
type DB struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users        map[string]model.User
	admins       map[string]model.Admin
	rooms        map[string]model.StudyRoom
	seats        map[string]model.Seat
	reservations map[string]model.Reservation
	feedback     map[uint64]model.Feedback

	order  map[string]int
	seq    int
	nextFB uint64
}

func New() *DB {
	return &DB{
		users:        map[string]model.User{},
		admins:       map[string]model.Admin{},
		rooms:        map[string]model.StudyRoom{},
		seats:        map[string]model.Seat{},
		reservations: map[string]model.Reservation{},
		feedback:     map[uint64]model.Feedback{},
		order:        map[string]int{},
	}
}

// Stores returns stores backed by db.
func (db *DB) Stores() service.Stores {
	return service.Stores{
		Users:        userStore{db},
		Admins:       adminStore{db},
		Rooms:        roomStore{db},
		Seats:        seatStore{db},
		Reservations: reservationStore{db},
		Feedback:     feedbackStore{db},
	}
}

type snapshot struct {
	users        map[string]model.User
	admins       map[string]model.Admin
	rooms        map[string]model.StudyRoom
	seats        map[string]model.Seat
	reservations map[string]model.Reservation
	feedback     map[uint64]model.Feedback
	order        map[string]int
	seq          int
	nextFB       uint64
}

func clone[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (db *DB) snapshot() snapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	return snapshot{
		users: clone(db.users), admins: clone(db.admins), rooms: clone(db.rooms),
		seats: clone(db.seats), reservations: clone(db.reservations), feedback: clone(db.feedback),
		order: clone(db.order), seq: db.seq, nextFB: db.nextFB,
	}
}

func (db *DB) restore(s snapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users, db.admins, db.rooms = s.users, s.admins, s.rooms
	db.seats, db.reservations, db.feedback = s.seats, s.reservations, s.feedback
	db.order, db.seq, db.nextFB = s.order, s.seq, s.nextFB
}

// RunInTx serializes transactions and restores the previous state when fn
// fails.
func (db *DB) RunInTx(ctx context.Context, fn func(service.Stores) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	snap := db.snapshot()
	if err := fn(db.Stores()); err != nil {
		db.restore(snap)
		return err
	}
	return nil
}

// Deps wires db into service dependencies with a fixed clock.
func (db *DB) Deps(now time.Time, loc *time.Location) service.Deps {
	return service.Deps{
		Stores: db.Stores(),
		Tx:     db,
		Loc:    loc,
		Now:    func() time.Time { return now },
	}
}

func (db *DB) track(id string) {
	db.seq++
	db.order[id] = db.seq
}

// Seed helpers insert rows directly, bypassing business rules.

func (db *DB) PutUser(u model.User) model.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	db.users[u.ID] = u
	return u
}

func (db *DB) PutRoom(r model.StudyRoom) model.StudyRoom {
	db.mu.Lock()
	defer db.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = model.RoomAvailable
	}
	db.rooms[r.ID] = r
	db.track(r.ID)
	return r
}

func (db *DB) PutSeat(s model.Seat) model.Seat {
	db.mu.Lock()
	defer db.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = model.SeatAvailable
	}
	db.seats[s.ID] = s
	return s
}

func (db *DB) PutReservation(r model.Reservation) model.Reservation {
	db.mu.Lock()
	defer db.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = model.StatusConfirmed
	}
	db.reservations[r.ID] = r
	return r
}

// Reservation returns a row as stored, soft-deleted ones included.
func (db *DB) Reservation(id string) (model.Reservation, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	r, ok := db.reservations[id]
	return r, ok
}

func (db *DB) User(id string) (model.User, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	u, ok := db.users[id]
	return u, ok
}

// ReservationCount counts rows, soft-deleted ones included.
func (db *DB) ReservationCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.reservations)
}

// ----- users -----

type userStore struct{ db *DB }

func (s userStore) Create(_ context.Context, u *model.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u.Username = strings.TrimSpace(u.Username)
	for _, e := range s.db.users {
		if e.Username == u.Username {
			return repository.ErrDuplicate
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.db.users[u.ID] = *u
	return nil
}

func (s userStore) GetByID(_ context.Context, id string) (*model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (s userStore) GetByIDForUpdate(ctx context.Context, id string) (*model.User, error) {
	return s.GetByID(ctx, id)
}

func (s userStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s userStore) UpdateBlacklist(_ context.Context, u *model.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cur, ok := s.db.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.NoShowCount = u.NoShowCount
	cur.IsBlacklisted = u.IsBlacklisted
	cur.BlacklistStartTime = u.BlacklistStartTime
	s.db.users[u.ID] = cur
	return nil
}

func (s userStore) UpdatePassword(_ context.Context, id, hash string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	s.db.users[id] = u
	return nil
}

func (s userStore) list(keep func(model.User) bool) []model.User {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.User{}
	for _, u := range s.db.users {
		if keep(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

func (s userStore) List(context.Context) ([]model.User, error) {
	return s.list(func(model.User) bool { return true }), nil
}

func (s userStore) ListBlacklisted(context.Context) ([]model.User, error) {
	return s.list(func(u model.User) bool { return u.IsBlacklisted }), nil
}

// ----- admins -----

type adminStore struct{ db *DB }

func (s adminStore) Create(_ context.Context, a *model.Admin) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, e := range s.db.admins {
		if e.Username == a.Username {
			return repository.ErrDuplicate
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.db.admins[a.ID] = *a
	return nil
}

func (s adminStore) GetByID(_ context.Context, id string) (*model.Admin, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.admins[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (s adminStore) GetByUsername(_ context.Context, username string) (*model.Admin, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, a := range s.db.admins {
		if a.Username == username {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s adminStore) UpdatePassword(_ context.Context, id, hash string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.admins[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.PasswordHash = hash
	s.db.admins[id] = a
	return nil
}

// ----- rooms -----

type roomStore struct{ db *DB }

func (s roomStore) Create(_ context.Context, r *model.StudyRoom) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = model.RoomAvailable
	}
	s.db.rooms[r.ID] = *r
	s.db.track(r.ID)
	return nil
}

func (s roomStore) GetByID(_ context.Context, id string) (*model.StudyRoom, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (s roomStore) GetByIDForUpdate(ctx context.Context, id string) (*model.StudyRoom, error) {
	return s.GetByID(ctx, id)
}

func (s roomStore) list(keep func(model.StudyRoom) bool) []model.StudyRoom {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.StudyRoom{}
	for _, r := range s.db.rooms {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.db.order[out[i].ID] < s.db.order[out[j].ID] })
	return out
}

func (s roomStore) List(context.Context) ([]model.StudyRoom, error) {
	return s.list(func(model.StudyRoom) bool { return true }), nil
}

func (s roomStore) ListByStatus(_ context.Context, status model.RoomStatus) ([]model.StudyRoom, error) {
	return s.list(func(r model.StudyRoom) bool { return r.Status == status }), nil
}

func (s roomStore) Update(_ context.Context, r *model.StudyRoom) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.rooms[r.ID]; !ok {
		return repository.ErrNotFound
	}
	s.db.rooms[r.ID] = *r
	return nil
}

func (s roomStore) UpdateStatus(_ context.Context, id string, status model.RoomStatus) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.rooms[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.Status = status
	s.db.rooms[id] = r
	return nil
}

func (s roomStore) UpdateImage(_ context.Context, id, url string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.rooms[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.ImageURL = url
	s.db.rooms[id] = r
	return nil
}

func (s roomStore) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.rooms[id]; !ok {
		return repository.ErrNotFound
	}
	for _, r := range s.db.reservations {
		if r.StudyRoomID == id {
			return repository.ErrConflict
		}
	}
	for sid, seat := range s.db.seats {
		if seat.StudyRoomID == id {
			delete(s.db.seats, sid)
		}
	}
	delete(s.db.rooms, id)
	return nil
}

// ----- seats -----

type seatStore struct{ db *DB }

func (s seatStore) insertLocked(seat *model.Seat) error {
	for _, e := range s.db.seats {
		if e.StudyRoomID == seat.StudyRoomID && e.SeatNumber == seat.SeatNumber {
			return repository.ErrDuplicate
		}
	}
	if seat.ID == "" {
		seat.ID = uuid.NewString()
	}
	if seat.Status == "" {
		seat.Status = model.SeatAvailable
	}
	s.db.seats[seat.ID] = *seat
	return nil
}

func (s seatStore) Create(_ context.Context, seat *model.Seat) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.insertLocked(seat)
}

func (s seatStore) CreateBulk(_ context.Context, seats []model.Seat) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for i := range seats {
		if err := s.insertLocked(&seats[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s seatStore) GetByID(_ context.Context, id string) (*model.Seat, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	seat, ok := s.db.seats[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &seat, nil
}

func (s seatStore) GetByIDForUpdate(ctx context.Context, id string) (*model.Seat, error) {
	return s.GetByID(ctx, id)
}

func (s seatStore) GetByRoomAndNumber(_ context.Context, roomID, number string) (*model.Seat, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, seat := range s.db.seats {
		if seat.StudyRoomID == roomID && seat.SeatNumber == number {
			return &seat, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s seatStore) list(keep func(model.Seat) bool) []model.Seat {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.Seat{}
	for _, seat := range s.db.seats {
		if keep(seat) {
			out = append(out, seat)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SeatNumber != out[j].SeatNumber {
			return out[i].SeatNumber < out[j].SeatNumber
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s seatStore) ListByRoom(_ context.Context, roomID string) ([]model.Seat, error) {
	return s.list(func(seat model.Seat) bool { return seat.StudyRoomID == roomID }), nil
}

func (s seatStore) ListByRoomAfterNumber(_ context.Context, roomID, number string) ([]model.Seat, error) {
	return s.list(func(seat model.Seat) bool { return seat.StudyRoomID == roomID && seat.SeatNumber > number }), nil
}

func (s seatStore) CountByRoom(ctx context.Context, roomID string) (int, error) {
	seats, _ := s.ListByRoom(ctx, roomID)
	return len(seats), nil
}

func (s seatStore) UpdateStatus(_ context.Context, id string, status model.SeatStatus) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	seat, ok := s.db.seats[id]
	if !ok {
		return repository.ErrNotFound
	}
	seat.Status = status
	s.db.seats[id] = seat
	return nil
}

func (s seatStore) referencedLocked(id string) bool {
	for _, r := range s.db.reservations {
		if r.SeatID == id {
			return true
		}
	}
	return false
}

func (s seatStore) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.seats[id]; !ok {
		return repository.ErrNotFound
	}
	if s.referencedLocked(id) {
		return repository.ErrConflict
	}
	delete(s.db.seats, id)
	return nil
}

func (s seatStore) DeleteByIDs(_ context.Context, ids []string) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for _, id := range ids {
		if s.referencedLocked(id) {
			return 0, repository.ErrConflict
		}
	}
	for _, id := range ids {
		if _, ok := s.db.seats[id]; ok {
			delete(s.db.seats, id)
			n++
		}
	}
	return n, nil
}

func (s seatStore) DeleteByRoom(ctx context.Context, roomID string) (int64, error) {
	seats, _ := s.ListByRoom(ctx, roomID)
	ids := make([]string, len(seats))
	for i, seat := range seats {
		ids[i] = seat.ID
	}
	return s.DeleteByIDs(ctx, ids)
}

// ----- reservations -----

type reservationStore struct{ db *DB }

func (s reservationStore) Create(_ context.Context, r *model.Reservation) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	s.db.reservations[r.ID] = *r
	return nil
}

func (s reservationStore) GetByID(_ context.Context, id string) (*model.Reservation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.reservations[id]
	if !ok || r.IsDeleted {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (s reservationStore) GetByIDForUpdate(ctx context.Context, id string) (*model.Reservation, error) {
	return s.GetByID(ctx, id)
}

func (s reservationStore) mutate(id string, fn func(r *model.Reservation)) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.reservations[id]
	if !ok || r.IsDeleted {
		return repository.ErrNotFound
	}
	fn(&r)
	s.db.reservations[id] = r
	return nil
}

func (s reservationStore) UpdateStatus(_ context.Context, id string, status model.ReservationStatus) error {
	return s.mutate(id, func(r *model.Reservation) { r.Status = status })
}

func (s reservationStore) Adjust(_ context.Context, id string, status model.ReservationStatus, adminID string, at time.Time) error {
	return s.mutate(id, func(r *model.Reservation) {
		t := at.UTC()
		r.Status = status
		r.AdjustedBy = &adminID
		r.AdjustedAt = &t
	})
}

func (s reservationStore) SoftDelete(_ context.Context, id, adminID string, at time.Time) error {
	return s.mutate(id, func(r *model.Reservation) {
		t := at.UTC()
		r.IsDeleted = true
		r.DeletedBy = &adminID
		r.DeletedAt = &t
	})
}

func (s reservationStore) list(keep func(model.Reservation) bool) []model.Reservation {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.Reservation{}
	for _, r := range s.db.reservations {
		if !r.IsDeleted && keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
	return out
}

func (s reservationStore) FindSeatOverlaps(_ context.Context, seatID string, date model.Date, start, end model.Clock) ([]model.Reservation, error) {
	all := s.list(func(r model.Reservation) bool { return r.SeatID == seatID })
	return nonNil(service.FindConflicts(all, date, start, end)), nil
}

func (s reservationStore) FindUserOverlaps(_ context.Context, userID string, date model.Date, start, end model.Clock) ([]model.Reservation, error) {
	all := s.list(func(r model.Reservation) bool { return r.UserID == userID })
	return nonNil(service.FindConflicts(all, date, start, end)), nil
}

func nonNil(rs []model.Reservation) []model.Reservation {
	if rs == nil {
		return []model.Reservation{}
	}
	return rs
}

func (s reservationStore) CountActiveByUserOnDate(_ context.Context, userID string, date model.Date) (int, error) {
	return len(s.list(func(r model.Reservation) bool {
		return r.UserID == userID && r.Date.Equal(date) && r.Active()
	})), nil
}

func (s reservationStore) ListByUser(_ context.Context, userID string) ([]model.Reservation, error) {
	return s.list(func(r model.Reservation) bool { return r.UserID == userID }), nil
}

func (s reservationStore) ListByUserAndStatus(_ context.Context, userID string, status model.ReservationStatus) ([]model.Reservation, error) {
	return s.list(func(r model.Reservation) bool { return r.UserID == userID && r.Status == status }), nil
}

func (s reservationStore) ListBySeat(_ context.Context, seatID string) ([]model.Reservation, error) {
	return s.list(func(r model.Reservation) bool { return r.SeatID == seatID }), nil
}

func (s reservationStore) ListByRoom(_ context.Context, roomID string) ([]model.Reservation, error) {
	return s.list(func(r model.Reservation) bool { return r.StudyRoomID == roomID }), nil
}

func (s reservationStore) ListByDate(_ context.Context, date model.Date) ([]model.Reservation, error) {
	return s.list(func(r model.Reservation) bool { return r.Date.Equal(date) }), nil
}

func (s reservationStore) ListActiveByRoomAndDate(_ context.Context, roomID string, date model.Date) ([]model.Reservation, error) {
	return s.list(func(r model.Reservation) bool {
		return r.StudyRoomID == roomID && r.Date.Equal(date) && r.Active()
	}), nil
}

func (s reservationStore) ListActiveBySeatAndDate(_ context.Context, seatID string, date model.Date) ([]model.Reservation, error) {
	return s.list(func(r model.Reservation) bool {
		return r.SeatID == seatID && r.Date.Equal(date) && r.Active()
	}), nil
}

func (s reservationStore) ListExpired(_ context.Context, today model.Date, now model.Clock) ([]model.Reservation, error) {
	return s.list(func(r model.Reservation) bool {
		if r.Status != model.StatusConfirmed && r.Status != model.StatusCheckedIn {
			return false
		}
		return r.Date.Before(today) || (r.Date.Equal(today) && r.EndTime < now)
	}), nil
}

func (s reservationStore) PurgeDeleted(_ context.Context, before time.Time) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for id, r := range s.db.reservations {
		if r.IsDeleted && r.DeletedAt != nil && r.DeletedAt.Before(before) {
			delete(s.db.reservations, id)
			n++
		}
	}
	return n, nil
}

func (s reservationStore) ExistsBySeat(_ context.Context, seatID string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, r := range s.db.reservations {
		if r.SeatID == seatID {
			return true, nil
		}
	}
	return false, nil
}

func (s reservationStore) SeatsWithReservations(_ context.Context, seatIDs []string) (map[string]bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	want := make(map[string]bool, len(seatIDs))
	for _, id := range seatIDs {
		want[id] = true
	}
	out := map[string]bool{}
	for _, r := range s.db.reservations {
		if want[r.SeatID] {
			out[r.SeatID] = true
		}
	}
	return out, nil
}

func (s reservationStore) Search(_ context.Context, f repository.ReservationFilter, page, size int) ([]model.Reservation, int, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	all := s.list(func(r model.Reservation) bool {
		switch {
		case f.UserID != "" && r.UserID != f.UserID,
			f.SeatID != "" && r.SeatID != f.SeatID,
			f.StudyRoomID != "" && r.StudyRoomID != f.StudyRoomID,
			f.Status != "" && r.Status != f.Status,
			f.From != nil && r.Date.Before(*f.From),
			f.To != nil && r.Date.After(*f.To):
			return false
		}
		return true
	})
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].Date.Equal(all[j].Date) {
			return all[i].Date.After(all[j].Date)
		}
		return all[i].StartTime > all[j].StartTime
	})
	total := len(all)
	from := (page - 1) * size
	if from >= total {
		return []model.Reservation{}, total, nil
	}
	to := from + size
	if to > total {
		to = total
	}
	return all[from:to], total, nil
}

// ----- feedback -----

type feedbackStore struct{ db *DB }

func (s feedbackStore) Create(_ context.Context, f *model.Feedback) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.nextFB++
	f.ID = s.db.nextFB
	if f.Status == "" {
		f.Status = model.FeedbackPending
	}
	s.db.feedback[f.ID] = *f
	return nil
}

func (s feedbackStore) GetByID(_ context.Context, id uint64) (*model.Feedback, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	f, ok := s.db.feedback[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &f, nil
}

func (s feedbackStore) list(keep func(model.Feedback) bool) []model.Feedback {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.Feedback{}
	for _, f := range s.db.feedback {
		if keep(f) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s feedbackStore) ListByUser(_ context.Context, userID string) ([]model.Feedback, error) {
	return s.list(func(f model.Feedback) bool { return f.UserID == userID }), nil
}

func (s feedbackStore) List(_ context.Context, status model.FeedbackStatus) ([]model.Feedback, error) {
	return s.list(func(f model.Feedback) bool { return status == "" || f.Status == status }), nil
}

func (s feedbackStore) Process(_ context.Context, id uint64, response, processorID string, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	f, ok := s.db.feedback[id]
	if !ok {
		return repository.ErrNotFound
	}
	t := at.UTC()
	f.Status = model.FeedbackProcessed
	f.Response = &response
	f.ProcessorID = &processorID
	f.ProcessedAt = &t
	f.UpdatedAt = &t
	s.db.feedback[id] = f
	return nil
}
