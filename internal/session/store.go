// Package session holds the client's belief about who is logged in.
// The server's session cookie is the source of truth; this store is a
// cache of it, reconciled through a single-flight "who am I" probe and
// through 401 signals observed by the transport on any request.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hearthlabs/hearthview/internal/event"
	"github.com/hearthlabs/hearthview/pkg/models"
)

// State is the session lifecycle state.
type State int

const (
	StateUnknown State = iota
	StateChecking
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// AuthAPI is the slice of the API client the store depends on. Me
// returns (nil, nil) when the server reports no valid session; any
// other error means the probe itself failed and the state remains
// unsettled.
type AuthAPI interface {
	Me(ctx context.Context) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	Logout(ctx context.Context) error
}

// Snapshot is a point-in-time read of the session. User is non-nil
// exactly when State is StateAuthenticated.
type Snapshot struct {
	State State
	User  *models.User
}

// Authenticated reports whether the snapshot carries a logged-in user.
func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated && s.User != nil
}

// Role returns the user's role, or the empty role when anonymous.
func (s Snapshot) Role() models.Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

// Store is the process-wide session container. It is the single writer
// of session state; consumers read snapshots and dispatch intents
// (Current, Login, Logout).
type Store struct {
	mu     sync.Mutex
	state  State
	user   *models.User
	auth   AuthAPI
	bus    event.Bus
	logger *zap.Logger
	flight singleflight.Group
	unsub  func()
}

// NewStore creates a Store in StateUnknown and subscribes it to the
// transport's 401 signal.
func NewStore(auth AuthAPI, bus event.Bus, logger *zap.Logger) *Store {
	s := &Store{
		state:  StateUnknown,
		auth:   auth,
		bus:    bus,
		logger: logger,
	}
	s.unsub = bus.Subscribe(event.TopicUnauthorized, func(ctx context.Context, _ event.Event) {
		s.forceAnonymous(ctx)
	})
	return s
}

// Close unsubscribes the store from the event bus.
func (s *Store) Close() {
	s.unsub()
}

// Snapshot returns the current state without probing.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{State: s.state, User: s.user}
}

// Current returns a settled snapshot, issuing the session probe if the
// state is not yet known. Concurrent callers share one probe. A probe
// transport failure leaves the state unsettled so a later call retries.
func (s *Store) Current(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.state == StateAuthenticated || s.state == StateAnonymous {
		snap := Snapshot{State: s.state, User: s.user}
		s.mu.Unlock()
		return snap, nil
	}
	s.state = StateChecking
	s.mu.Unlock()

	v, err, _ := s.flight.Do("probe", func() (any, error) {
		user, err := s.auth.Me(context.WithoutCancel(ctx))
		if err != nil {
			s.setState(StateUnknown, nil)
			return nil, err
		}
		if user == nil {
			s.setState(StateAnonymous, nil)
			return Snapshot{State: StateAnonymous}, nil
		}
		s.setState(StateAuthenticated, user)
		s.bus.PublishAsync(ctx, event.Event{
			Topic:   event.TopicAuthenticated,
			Source:  "session",
			Payload: user,
		})
		return Snapshot{State: StateAuthenticated, User: user}, nil
	})
	if err != nil {
		return Snapshot{State: StateUnknown}, err
	}
	return v.(Snapshot), nil
}

// Login authenticates with the server. On success the server has set
// the session cookie and the store settles authenticated; on failure it
// settles anonymous.
func (s *Store) Login(ctx context.Context, email, password string) (Snapshot, error) {
	s.setState(StateChecking, nil)

	user, err := s.auth.Login(ctx, email, password)
	if err != nil {
		s.setState(StateAnonymous, nil)
		return Snapshot{State: StateAnonymous}, err
	}

	s.setState(StateAuthenticated, user)
	s.bus.PublishAsync(ctx, event.Event{
		Topic:   event.TopicAuthenticated,
		Source:  "session",
		Payload: user,
	})
	return Snapshot{State: StateAuthenticated, User: user}, nil
}

// Logout flips the client anonymous immediately, then tells the server.
// A server failure is reported but never rolls the client back: the
// user asked to leave, and the cookie's validity is the server's
// problem, not ours.
func (s *Store) Logout(ctx context.Context) error {
	s.setState(StateAnonymous, nil)

	if err := s.auth.Logout(ctx); err != nil {
		s.logger.Warn("server logout failed, client session already cleared", zap.Error(err))
		return err
	}
	return nil
}

// forceAnonymous reacts to a 401 observed anywhere in the transport:
// the server no longer honors our cookie, so the client belief is
// stale. Publishes session.expired so guarded views redirect and the
// cache drops authenticated-only data.
func (s *Store) forceAnonymous(ctx context.Context) {
	s.mu.Lock()
	if s.state == StateAnonymous {
		s.mu.Unlock()
		return
	}
	s.state = StateAnonymous
	s.user = nil
	s.mu.Unlock()

	s.logger.Info("session invalidated by server 401")
	s.bus.PublishAsync(ctx, event.Event{
		Topic:  event.TopicSessionExpired,
		Source: "session",
	})
}

func (s *Store) setState(state State, user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	if state == StateAuthenticated {
		s.user = user
	} else {
		s.user = nil
	}
}
