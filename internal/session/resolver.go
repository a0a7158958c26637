// Package session resolves the authenticated identity to its profile row and
// keeps the server-side session store and auth event fan-out.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tsheet/timesheet/internal/faults"
	"github.com/tsheet/timesheet/internal/models"
	"github.com/tsheet/timesheet/pkg/logger"
)

type Status string

const (
	StatusInit            Status = "init"
	StatusLoading         Status = "loading"
	StatusReady           Status = "ready"
	StatusUnauthenticated Status = "unauthenticated"
	StatusProfileMissing  Status = "profile_missing"
	StatusFault           Status = "fault"
)

// State is a snapshot of the resolver. Fault holds the typed error behind Error.
type State struct {
	Status   Status          `json:"status"`
	Loading  bool            `json:"loading"`
	Identity string          `json:"identity,omitempty"`
	Profile  *models.Profile `json:"profile,omitempty"`
	Error    string          `json:"error,omitempty"`
	Fault    error           `json:"-"`
}

// Source yields the identity of the current session, or "" when signed out.
type Source interface {
	CurrentIdentity(ctx context.Context) (string, error)
}

type SourceFunc func(ctx context.Context) (string, error)

func (f SourceFunc) CurrentIdentity(ctx context.Context) (string, error) { return f(ctx) }

// ProfileFetcher loads the profile whose id equals the identity.
// A nil profile with a nil error means no row exists.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, id string) (*models.Profile, error)
}

type FetcherFunc func(ctx context.Context, id string) (*models.Profile, error)

func (f FetcherFunc) FetchProfile(ctx context.Context, id string) (*models.Profile, error) {
	return f(ctx, id)
}

var ErrResolveTimeout = errors.New("profile resolution timed out")

type Option func(*Resolver)

// WithTimeout bounds each resolution. Expiry surfaces as a fault state.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

// OnChange registers a listener called with every state the resolver publishes.
func OnChange(fn func(State)) Option {
	return func(r *Resolver) { r.listeners = append(r.listeners, fn) }
}

// Resolver owns the Init → Loading → Ready | Unauthenticated |
// ProfileMissing | Fault state machine. Every Refresh takes a new generation;
// a completion whose generation is no longer current is dropped.
type Resolver struct {
	source  Source
	fetcher ProfileFetcher
	timeout time.Duration

	mu        sync.Mutex
	state     State
	gen       uint64
	closed    bool
	listeners []func(State)

	log zerolog.Logger
}

func NewResolver(source Source, fetcher ProfileFetcher, opts ...Option) *Resolver {
	r := &Resolver{
		source:  source,
		fetcher: fetcher,
		state:   State{Status: StatusInit, Loading: true},
		log:     logger.With("session"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Refresh re-runs the whole resolution. It is allowed from every state and
// returns the state this attempt produced, or the current state when the
// attempt was superseded or the resolver was closed meanwhile.
func (r *Resolver) Refresh(ctx context.Context) State {
	r.mu.Lock()
	if r.closed {
		st := r.state
		r.mu.Unlock()
		return st
	}
	r.gen++
	gen := r.gen
	loading := r.state
	loading.Status = StatusLoading
	loading.Loading = true
	loading.Error = ""
	loading.Fault = nil
	r.state = loading
	listeners := r.listeners
	r.mu.Unlock()
	notify(listeners, loading)

	next := r.resolve(ctx)

	r.mu.Lock()
	if r.closed || gen != r.gen {
		st := r.state
		r.mu.Unlock()
		r.log.Debug().Uint64("generation", gen).Msg("discarding stale resolution")
		return st
	}
	r.state = next
	listeners = r.listeners
	r.mu.Unlock()

	r.log.Debug().Str("status", string(next.Status)).Str("identity", next.Identity).Msg("session resolved")
	notify(listeners, next)
	return next
}

// Watch re-resolves on every auth event until ctx ends or events closes.
// It resolves once up front so the state leaves Init.
func (r *Resolver) Watch(ctx context.Context, events <-chan Event) {
	r.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			r.Refresh(ctx)
		}
	}
}

// Close stops the resolver from applying further results. In-flight lookups
// are not cancelled; their results are ignored.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.listeners = nil
}

func (r *Resolver) resolve(ctx context.Context) State {
	if r.timeout <= 0 {
		return r.safeLookup(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan State, 1)
	go func() { done <- r.safeLookup(ctx) }()

	select {
	case st := <-done:
		return st
	case <-ctx.Done():
		cause := ctx.Err()
		if errors.Is(cause, context.DeadlineExceeded) {
			cause = fmt.Errorf("%w after %s", ErrResolveTimeout, r.timeout)
		}
		return faultState("", faults.AuthSession(cause))
	}
}

// safeLookup turns a panic in the source or fetcher into a fault state.
func (r *Resolver) safeLookup(ctx context.Context) (st State) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Interface("panic", p).Msg("profile resolution panicked")
			st = faultState("", faults.AuthSession(fmt.Errorf("panic: %v", p)))
		}
	}()
	return r.lookup(ctx)
}

func (r *Resolver) lookup(ctx context.Context) State {
	identity, err := r.source.CurrentIdentity(ctx)
	if err != nil {
		return faultState("", faults.AuthSession(err))
	}
	if identity == "" {
		return State{Status: StatusUnauthenticated}
	}

	profile, err := r.fetcher.FetchProfile(ctx, identity)
	if err != nil {
		return faultState(identity, faults.Query(err))
	}
	if profile == nil {
		f := faults.ProfileMissing()
		return State{Status: StatusProfileMissing, Identity: identity, Error: f.Message, Fault: f}
	}
	return State{Status: StatusReady, Identity: identity, Profile: profile}
}

func faultState(identity string, f *faults.Fault) State {
	return State{Status: StatusFault, Identity: identity, Error: f.Message, Fault: f}
}

func notify(listeners []func(State), st State) {
	for _, fn := range listeners {
		fn(st)
	}
}
