package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nexusflow/nexusflow-client/internal/domain"
	"github.com/nexusflow/nexusflow-client/internal/platform/auth/password"
	"github.com/nexusflow/nexusflow-client/internal/ports/out/kvstore"
)

// Storage keys. They must not change: existing data lives under them.
const (
	KeyTrips   = "nexusflow_scheduled_trips"
	KeyUser    = "nexusflow_current_user"
	KeyUsersDB = "nexusflow_users_database"
	// KeyHistory is reserved for route history and never written.
	KeyHistory = "nexusflow_route_history"
)

// Result messages surfaced inline by the auth screen.
const (
	MsgAccountCreated = "Account created successfully."
	MsgDuplicateEmail = "An account with this email already exists."
	MsgInvalidName    = "Please enter your name."
	MsgInvalidEmail   = "Please enter a valid email address."
	MsgInvalidPass    = "Please choose a password."
)

// RegisterResult is the outcome of a registration attempt.
type RegisterResult struct {
	Success bool
	Message string
}

// Store persists the session user, the account registry and scheduled trips
// as whole JSON collections over a key-value backend.
//
// Reads never fail: absent or malformed data reads as empty. Writes return an
// error only when the backend fails. Every mutation rewrites the whole collection.
type Store struct {
	kv  kvstore.Store
	log zerolog.Logger

	// mu serializes read-modify-write cycles within this process.
	mu sync.Mutex

	hash func(string) (string, error)
}

func NewStore(kv kvstore.Store, log zerolog.Logger) *Store {
	return &Store{
		kv:   kv,
		log:  log.With().Str("component", "localstore").Logger(),
		hash: password.Hash,
	}
}

// GetUser returns the persisted session user, or nil.
func (s *Store) GetUser(ctx context.Context) *domain.SessionUser {
	var u domain.SessionUser
	if !s.read(ctx, KeyUser, &u) {
		return nil
	}
	return &u
}

// SaveUser mirrors the session user. nil clears the session.
func (s *Store) SaveUser(ctx context.Context, u *domain.SessionUser) error {
	if u == nil {
		if err := s.kv.Delete(ctx, KeyUser); err != nil {
			return fmt.Errorf("clear session user: %w", err)
		}
		return nil
	}
	return s.write(ctx, KeyUser, u)
}

// GetUsers returns the account registry.
func (s *Store) GetUsers(ctx context.Context) []domain.UserAccount {
	var users []domain.UserAccount
	if !s.read(ctx, KeyUsersDB, &users) || users == nil {
		return []domain.UserAccount{}
	}
	return users
}

// RegisterUser appends an account unless its email is already registered.
// The password is stored as a bcrypt hash.
func (s *Store) RegisterUser(ctx context.Context, a domain.UserAccount) (RegisterResult, error) {
	a.Name = domain.NormalizeHumanName(a.Name)
	a.Email = domain.NormalizeEmail(a.Email)
	if a.Name == "" {
		return RegisterResult{Message: MsgInvalidName}, nil
	}
	if _, err := mail.ParseAddress(a.Email); err != nil {
		return RegisterResult{Message: MsgInvalidEmail}, nil
	}
	if a.Password == "" {
		return RegisterResult{Message: MsgInvalidPass}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.GetUsers(ctx)
	for _, u := range users {
		if u.Email == a.Email {
			return RegisterResult{Message: MsgDuplicateEmail}, nil
		}
	}
	hashed, err := s.hash(a.Password)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("hash password: %w", err)
	}
	a.Password = hashed
	users = append(users, a)
	if err := s.write(ctx, KeyUsersDB, users); err != nil {
		return RegisterResult{}, err
	}
	s.log.Info().Str("email", a.Email).Msg("account registered")
	return RegisterResult{Success: true, Message: MsgAccountCreated}, nil
}

// AuthenticateUser returns the session user for an exact email and password
// match, or nil. Unknown emails and wrong passwords are indistinguishable.
func (s *Store) AuthenticateUser(ctx context.Context, email, pw string) *domain.SessionUser {
	email = domain.NormalizeEmail(email)
	for _, u := range s.GetUsers(ctx) {
		if u.Email == email && password.Verify(u.Password, pw) {
			su := u.SessionUser()
			return &su
		}
	}
	return nil
}

// GetTrips returns scheduled trips, most recent first.
func (s *Store) GetTrips(ctx context.Context) []domain.ScheduledTrip {
	var trips []domain.ScheduledTrip
	if !s.read(ctx, KeyTrips, &trips) || trips == nil {
		return []domain.ScheduledTrip{}
	}
	return trips
}

// SaveTrip prepends t. A stored trip with the same id is replaced so ids stay unique.
func (s *Store) SaveTrip(ctx context.Context, t domain.ScheduledTrip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.GetTrips(ctx)
	trips := make([]domain.ScheduledTrip, 0, len(existing)+1)
	trips = append(trips, t)
	for _, x := range existing {
		if x.ID != t.ID {
			trips = append(trips, x)
		}
	}
	return s.write(ctx, KeyTrips, trips)
}

// DeleteTrip removes the trip with id. Deleting an unknown id rewrites the collection unchanged.
func (s *Store) DeleteTrip(ctx context.Context, id domain.TripID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.GetTrips(ctx)
	trips := make([]domain.ScheduledTrip, 0, len(existing))
	for _, x := range existing {
		if x.ID != id {
			trips = append(trips, x)
		}
	}
	return s.write(ctx, KeyTrips, trips)
}

// read decodes key into dst. It reports false when the key is absent,
// unreadable or malformed.
func (s *Store) read(ctx context.Context, key string, dst any) bool {
	b, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			s.log.Error().Err(err).Str("key", key).Msg("read failed; treating as empty")
		}
		return false
	}
	if len(b) == 0 {
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("malformed stored data; treating as empty")
		return false
	}
	return true
}

func (s *Store) write(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, b); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
