// ABOUTME: Session store owning the process-wide authentication state machine
// ABOUTME: Persists identity next to the credential and notifies subscribers on every transition

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ToniTF/clientcd/internal/storage"
)

var (
	// ErrNotRehydrated is returned by Login before Rehydrate has resolved the session
	ErrNotRehydrated = errors.New("session not rehydrated yet")
	// ErrAlreadyAuthenticated is returned by Login while a user is signed in
	ErrAlreadyAuthenticated = errors.New("already signed in; log out first")
	// ErrNoCredential is returned by Login when no credential has been stored
	ErrNoCredential = errors.New("no credential stored")
	// ErrInvalidIdentity is returned by Login for an identity without id or email
	ErrInvalidIdentity = errors.New("identity has neither id nor email")
	// ErrStaleSession is returned when the session changed after an operation began
	ErrStaleSession = errors.New("session changed while request was in flight")
)

// State is the session lifecycle state
type State int

const (
	StateUnknown State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "invalid"
	}
}

// Snapshot is an immutable view of the session at one generation
type Snapshot struct {
	State      State
	Identity   *Identity
	Generation uint64
}

// Authenticated reports whether the snapshot holds a signed-in identity
func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated && s.Identity != nil
}

// Store is the single owner of session state. Every transition advances
// the generation, which callers use to detect work started under an
// earlier session.
type Store struct {
	storage storage.Storage
	log     zerolog.Logger

	mu          sync.Mutex
	state       State
	identity    *Identity
	generation  uint64
	nextSubID   int
	subscribers map[int]func(Snapshot)
}

// NewStore creates a store in the Unknown state
func NewStore(st storage.Storage, log zerolog.Logger) *Store {
	return &Store{
		storage:     st,
		log:         log.With().Str("component", "session").Logger(),
		subscribers: make(map[int]func(Snapshot)),
	}
}

// Rehydrate resolves the Unknown state from persisted storage.
// Corrupt or half-present state is cleared and resolves to Anonymous.
// Once resolved, later calls return the current snapshot without reading storage.
func (s *Store) Rehydrate() (Snapshot, error) {
	s.mu.Lock()
	if s.state != StateUnknown {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, nil
	}

	identity, err := s.loadLocked()
	if identity != nil {
		s.transitionLocked(StateAuthenticated, identity)
		s.log.Info().Str("email", identity.Email).Msg("Session restored")
	} else {
		s.transitionLocked(StateAnonymous, nil)
		s.log.Debug().Msg("No persisted session")
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return snap, err
}

// loadLocked reads the persisted pair. It returns an identity only when both
// a parseable identity and a credential are stored; otherwise it deletes
// whatever is left over.
func (s *Store) loadLocked() (*Identity, error) {
	raw, err := s.storage.Get(storage.KeyIdentity)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("read persisted identity: %w", err)
	}
	identityFound := err == nil

	_, err = s.storage.Get(storage.KeyCredential)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("read persisted credential: %w", err)
	}
	credentialFound := err == nil

	if !identityFound {
		if credentialFound {
			s.log.Warn().Msg("Discarding credential without identity")
			s.clearLocked()
		}
		return nil, nil
	}

	identity, err := parseIdentity(raw)
	if err != nil {
		s.log.Warn().Err(err).Msg("Discarding corrupt persisted identity")
		s.clearLocked()
		return nil, nil
	}

	if !credentialFound {
		s.log.Warn().Str("email", identity.Email).Msg("Discarding identity without credential")
		s.clearLocked()
		return nil, nil
	}

	return identity, nil
}

// Login records identity as the signed-in user. The credential must already
// be stored by the request pipeline's login call.
func (s *Store) Login(identity Identity) error {
	s.mu.Lock()
	switch s.state {
	case StateUnknown:
		s.mu.Unlock()
		return ErrNotRehydrated
	case StateAuthenticated:
		s.mu.Unlock()
		return ErrAlreadyAuthenticated
	}
	if !identity.valid() {
		s.mu.Unlock()
		return ErrInvalidIdentity
	}

	if _, err := s.storage.Get(storage.KeyCredential); err != nil {
		s.mu.Unlock()
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNoCredential
		}
		return fmt.Errorf("read credential: %w", err)
	}

	data, err := json.Marshal(identity)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := s.storage.Set(storage.KeyIdentity, string(data)); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist identity: %w", err)
	}

	s.transitionLocked(StateAuthenticated, &identity)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Info().Str("email", identity.Email).Str("role", string(identity.Role)).Msg("Signed in")
	s.notify(snap)
	return nil
}

// Logout deletes credential and identity together and resolves to Anonymous.
// It always advances the generation so in-flight work is discarded.
func (s *Store) Logout() error {
	s.mu.Lock()
	err := s.clearLocked()
	s.transitionLocked(StateAnonymous, nil)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Info().Msg("Signed out")
	s.notify(snap)
	return err
}

// Invalidate handles an authority rejection for a request issued at generation.
// When that generation is still current and a credential is stored, both
// persisted values are deleted and the session becomes Anonymous.
// Returns whether the session was invalidated.
func (s *Store) Invalidate(generation uint64) bool {
	s.mu.Lock()
	if generation != s.generation {
		s.mu.Unlock()
		s.log.Debug().Uint64("generation", generation).Msg("Ignoring rejection from earlier session")
		return false
	}
	if _, err := s.storage.Get(storage.KeyCredential); err != nil {
		s.mu.Unlock()
		return false
	}

	if err := s.clearLocked(); err != nil {
		s.log.Error().Err(err).Msg("Failed to clear rejected session")
	}
	s.transitionLocked(StateAnonymous, nil)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Warn().Msg("Credential rejected by backend; session invalidated")
	s.notify(snap)
	return true
}

// Guard runs fn only if generation is still current, holding the session
// lock so no transition interleaves. fn must not call back into the Store.
func (s *Store) Guard(generation uint64, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return ErrStaleSession
	}
	return fn()
}

// Generation returns the current session generation
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Snapshot returns the current session view
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Current returns a copy of the signed-in identity, or nil
func (s *Store) Current() *Identity {
	return s.Snapshot().Identity
}

// Subscribe registers fn to receive a snapshot after every transition.
// Snapshots may arrive out of order under concurrent transitions; consumers
// should ignore ones older than the last generation they saw.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) notify(snap Snapshot) {
	s.mu.Lock()
	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (s *Store) transitionLocked(state State, identity *Identity) {
	s.state = state
	s.identity = identity
	s.generation++
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state, Generation: s.generation}
	if s.identity != nil {
		identity := *s.identity
		snap.Identity = &identity
	}
	return snap
}

// clearLocked deletes credential and identity together
func (s *Store) clearLocked() error {
	return errors.Join(
		s.storage.Delete(storage.KeyCredential),
		s.storage.Delete(storage.KeyIdentity),
	)
}
