// Package testutil provides in-memory repositories and fixtures for tests.
// The stores honour the same contracts as the MySQL implementations:
// unique keys, foreign keys, conditional transitions and all-or-nothing
// inventory transactions.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// DB is the shared state behind every in-memory repository.  One mutex
// guards everything; an inventory transaction holds it for its whole
// duration, which serialises transactions the way the screening row lock
// does in MySQL.
type DB struct {
	mu sync.Mutex
	tables
}

type tables struct {
	nextID     uint64
	users      map[uint64]model.UserAccount
	sessions   map[uint64]model.UserSession
	movies     map[uint64]model.Movie
	halls      map[uint64]model.Hall
	customers  map[uint64]model.Customer
	screenings map[uint64]model.Screening
	tickets    map[uint64]model.Ticket
}

func newTables() tables {
	return tables{
		users:      map[uint64]model.UserAccount{},
		sessions:   map[uint64]model.UserSession{},
		movies:     map[uint64]model.Movie{},
		halls:      map[uint64]model.Hall{},
		customers:  map[uint64]model.Customer{},
		screenings: map[uint64]model.Screening{},
		tickets:    map[uint64]model.Ticket{},
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// snapshot copies every table.  Rows are stored by value and the tables
// an inventory transaction writes hold no slices, so copying the maps is
// enough.
func (t *tables) snapshot() tables {
	return tables{
		nextID:     t.nextID,
		users:      copyMap(t.users),
		sessions:   copyMap(t.sessions),
		movies:     copyMap(t.movies),
		halls:      copyMap(t.halls),
		customers:  copyMap(t.customers),
		screenings: copyMap(t.screenings),
		tickets:    copyMap(t.tickets),
	}
}

func (t *tables) id() uint64 {
	t.nextID++
	return t.nextID
}

// NewDB returns an empty in-memory database.
func NewDB() *DB {
	return &DB{tables: newTables()}
}

// NewRepositories returns every repository backed by one in-memory DB.
func NewRepositories() (*repository.Repositories, *DB) {
	db := NewDB()
	return &repository.Repositories{
		User:      &UserRepo{db},
		Session:   &SessionRepo{db},
		Movie:     &MovieRepo{db},
		Hall:      &HallRepo{db},
		Customer:  &CustomerRepo{db},
		Screening: &ScreeningRepo{db},
		Ticket:    &TicketRepo{db},
		Inventory: &TicketRepo{db},
	}, db
}

// ----- users -----

type UserRepo struct{ db *DB }

func cloneUser(u model.UserAccount) *model.UserAccount {
	u.Roles = append([]model.Role(nil), u.Roles...)
	return &u
}

func (r *UserRepo) Create(_ context.Context, u *model.UserAccount) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, have := range r.db.users {
		if have.Username == u.Username {
			return repository.ErrDuplicate
		}
	}
	u.ID = r.db.id()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	r.db.users[u.ID] = *cloneUser(*u)
	return nil
}

func (r *UserRepo) GetByUsername(_ context.Context, username string) (*model.UserAccount, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	username = strings.ToLower(strings.TrimSpace(username))
	for _, u := range r.db.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepo) GetByID(_ context.Context, id uint64) (*model.UserAccount, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

// SetEnabled flips the enabled flag of a user.  Test helper only.
func (db *DB) SetEnabled(id uint64, enabled bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	u := db.users[id]
	u.Enabled = enabled
	db.users[id] = u
}

// ----- sessions -----

type SessionRepo struct{ db *DB }

func (r *SessionRepo) insert(s *model.UserSession) error {
	if _, ok := r.db.users[s.UserID]; !ok {
		return repository.ErrMissingReference
	}
	for _, have := range r.db.sessions {
		if have.RefreshTokenHash == s.RefreshTokenHash {
			return repository.ErrDuplicate
		}
	}
	s.ID = r.db.id()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	r.db.sessions[s.ID] = *s
	return nil
}

func (r *SessionRepo) Create(_ context.Context, s *model.UserSession) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.insert(s)
}

func (r *SessionRepo) find(match func(model.UserSession) bool) (*model.UserSession, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range r.db.sessions {
		if match(s) {
			return &s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *SessionRepo) FindByHash(_ context.Context, hash string) (*model.UserSession, error) {
	return r.find(func(s model.UserSession) bool { return s.RefreshTokenHash == hash })
}

func (r *SessionRepo) FindActiveByHash(_ context.Context, hash string) (*model.UserSession, error) {
	return r.find(func(s model.UserSession) bool {
		return s.RefreshTokenHash == hash && s.Status == model.SessionActive
	})
}

func (r *SessionRepo) FindAllActiveForUser(_ context.Context, userID uint64) ([]model.UserSession, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]model.UserSession, 0)
	for _, s := range r.db.sessions {
		if s.UserID == userID && s.Status == model.SessionActive {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *SessionRepo) CountActiveForUser(ctx context.Context, userID uint64) (int64, error) {
	list, err := r.FindAllActiveForUser(ctx, userID)
	return int64(len(list)), err
}

func (r *SessionRepo) transition(id uint64, from, to model.SessionStatus) bool {
	s, ok := r.db.sessions[id]
	if !ok || s.Status != from {
		return false
	}
	s.Status = to
	r.db.sessions[id] = s
	return true
}

func (r *SessionRepo) Transition(_ context.Context, id uint64, from, to model.SessionStatus) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.transition(id, from, to), nil
}

func (r *SessionRepo) updateWhere(match func(model.UserSession) bool, to model.SessionStatus) int64 {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for id, s := range r.db.sessions {
		if match(s) {
			s.Status = to
			r.db.sessions[id] = s
			n++
		}
	}
	return n
}

func (r *SessionRepo) RevokeAllActiveForUser(_ context.Context, userID uint64) (int64, error) {
	return r.updateWhere(func(s model.UserSession) bool {
		return s.UserID == userID && s.Status == model.SessionActive
	}, model.SessionRevoked), nil
}

func (r *SessionRepo) SweepExpired(_ context.Context, now time.Time) (int64, error) {
	return r.updateWhere(func(s model.UserSession) bool {
		return s.Status == model.SessionActive && s.ExpiresAt.Before(now)
	}, model.SessionExpired), nil
}

func (r *SessionRepo) Rotate(_ context.Context, oldID uint64, next *model.UserSession) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	before := r.db.sessions[oldID]
	if !r.transition(oldID, model.SessionActive, model.SessionRefreshed) {
		return repository.ErrConflict
	}
	if err := r.insert(next); err != nil {
		r.db.sessions[oldID] = before
		return err
	}
	return nil
}

// Session returns the stored session by id.  Test helper only.
func (db *DB) Session(id uint64) (model.UserSession, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	s, ok := db.sessions[id]
	return s, ok
}

// Sessions returns every stored session ordered by id.
func (db *DB) Sessions() []model.UserSession {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]model.UserSession, 0, len(db.sessions))
	for _, s := range db.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
