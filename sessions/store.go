// Package sessions holds the signed-in identity and its bearer token for one client process.
package sessions

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/lively-auth/internal/errors"
	"github.com/jrsteele09/lively-auth/storage"
	"github.com/jrsteele09/lively-auth/token"
	"github.com/jrsteele09/lively-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// TokenKey is the storage key the bearer token is persisted under
const TokenKey = "jwt"

var ErrSessionChanged = apperrors.ErrSessionChanged

// Session is a snapshot of the store. User and Token are either both set or both empty.
type Session struct {
	User       *users.User
	Token      string
	Generation uint64 // incremented by every mutation
}

func (s Session) LoggedIn() bool {
	return s.Token != ""
}

// Refresher arms and cancels the single refresh timer. *scheduler.Scheduler satisfies it.
type Refresher interface {
	Arm(expiresAt time.Time, onDue func())
	Cancel()
}

// Observer is called synchronously, in mutation order, before the mutating call returns.
// It may read the store but must not mutate it.
type Observer func(Session)

type Store struct {
	storage   storage.Storage
	refresher Refresher

	// mutate serializes mutations and observer notification; mu guards the fields below
	mutate sync.Mutex
	mu     sync.RWMutex

	user       *users.User
	token      string
	pending    string
	generation uint64
	onDue      func()
	observers  []Observer
}

func New(store storage.Storage, refresher Refresher) (*Store, error) {
	if store == nil {
		return nil, errors.New("[sessions.New] storage is required")
	}
	if refresher == nil {
		return nil, errors.New("[sessions.New] refresher is required")
	}
	return &Store{storage: store, refresher: refresher}, nil
}

// SetRefreshHandler sets the callback run when the refresh timer fires
func (s *Store) SetRefreshHandler(onDue func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDue = onDue
}

func (s *Store) Subscribe(observer Observer) {
	s.mutate.Lock()
	defer s.mutate.Unlock()
	s.observers = append(s.observers, observer)
}

// Load reads the persisted token into the pending slot. The token is not validated and no
// identity is attached; the caller resolves it with a "who am I" call and SetSession.
func (s *Store) Load(ctx context.Context) error {
	s.mutate.Lock()
	defer s.mutate.Unlock()

	raw, ok, err := s.storage.Get(ctx, TokenKey)
	if err != nil {
		return apperrors.Wrapf(err, "load persisted token")
	}

	s.mu.Lock()
	if ok {
		s.pending = raw
	} else {
		s.pending = ""
	}
	s.mu.Unlock()

	log.Debug().Bool("found", ok).Msg("Loaded persisted session token")
	return nil
}

// SetSession replaces the session with user and raw. An empty raw clears the session.
// A token whose expiry cannot be decoded clears the session and returns ErrMalformedToken.
func (s *Store) SetSession(ctx context.Context, user *users.User, raw string) error {
	s.mutate.Lock()
	defer s.mutate.Unlock()
	return s.setLocked(ctx, user, raw)
}

// SetSessionIfCurrent applies the session only if nothing has mutated the store since
// generation was observed. Otherwise it returns ErrSessionChanged and leaves the store alone.
func (s *Store) SetSessionIfCurrent(ctx context.Context, generation uint64, user *users.User, raw string) error {
	s.mutate.Lock()
	defer s.mutate.Unlock()

	if current := s.Generation(); current != generation {
		return apperrors.Wrapf(ErrSessionChanged, "generation %d is now %d", generation, current)
	}
	return s.setLocked(ctx, user, raw)
}

// Clear empties the session, removes the persisted token and cancels any pending refresh
func (s *Store) Clear(ctx context.Context) error {
	s.mutate.Lock()
	defer s.mutate.Unlock()
	return s.clearLocked(ctx)
}

// ClearIfCurrent clears the session unless it has been mutated since generation was observed
func (s *Store) ClearIfCurrent(ctx context.Context, generation uint64) error {
	s.mutate.Lock()
	defer s.mutate.Unlock()

	if current := s.Generation(); current != generation {
		return apperrors.Wrapf(ErrSessionChanged, "generation %d is now %d", generation, current)
	}
	return s.clearLocked(ctx)
}

func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// PendingToken is the token read by Load that has not yet been matched to an identity
func (s *Store) PendingToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending
}

func (s *Store) HasPersistedToken(ctx context.Context) (bool, error) {
	_, ok, err := s.storage.Get(ctx, TokenKey)
	return ok, err
}

func (s *Store) setLocked(ctx context.Context, user *users.User, raw string) error {
	if raw == "" {
		return s.clearLocked(ctx)
	}
	if user == nil {
		return errors.New("[SetSession] a token requires a user")
	}

	expiresAt, err := token.DecodeExpiry(raw)
	if err != nil {
		log.Warn().Err(err).Msg("Rejecting session token, clearing session")
		if clearErr := s.clearLocked(ctx); clearErr != nil {
			log.Err(clearErr).Msg("Failed to clear session after malformed token")
		}
		return err
	}

	stored := user.Clone()
	stored.Token = raw

	s.mu.Lock()
	s.user = stored
	s.token = raw
	s.pending = ""
	s.generation++
	generation := s.generation
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	persistErr := s.storage.Set(ctx, TokenKey, raw)
	if persistErr != nil {
		persistErr = apperrors.Wrapf(persistErr, "persist session token")
		log.Err(persistErr).Msg("Session updated in memory only")
	}

	s.refresher.Arm(expiresAt, s.refreshDue)
	log.Debug().
		Str("userId", stored.ID).
		Uint64("generation", generation).
		Time("expiresAt", expiresAt).
		Msg("Session set")

	s.notify(snapshot)
	return persistErr
}

func (s *Store) clearLocked(ctx context.Context) error {
	s.refresher.Cancel()

	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.pending = ""
	s.generation++
	generation := s.generation
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	removeErr := s.storage.Remove(ctx, TokenKey)
	if removeErr != nil {
		removeErr = apperrors.Wrapf(removeErr, "remove persisted session token")
		log.Err(removeErr).Msg("Session cleared in memory only")
	}

	log.Debug().Uint64("generation", generation).Msg("Session cleared")
	s.notify(snapshot)
	return removeErr
}

func (s *Store) refreshDue() {
	s.mu.RLock()
	onDue := s.onDue
	s.mu.RUnlock()

	if onDue == nil {
		log.Warn().Msg("Refresh due but no refresh handler is set")
		return
	}
	onDue()
}

func (s *Store) notify(snapshot Session) {
	for _, observer := range s.observers {
		observer(snapshot)
	}
}

func (s *Store) snapshotLocked() Session {
	return Session{
		User:       s.user.Clone(),
		Token:      s.token,
		Generation: s.generation,
	}
}
