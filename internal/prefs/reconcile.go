package prefs

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tsheet/timesheet/internal/faults"
	"github.com/tsheet/timesheet/pkg/logger"
)

// Sink receives the effective preferences whenever they are (re)applied.
type Sink interface {
	Apply(p Preferences)
}

type SinkFunc func(p Preferences)

func (f SinkFunc) Apply(p Preferences) { f(p) }

// Discard is a Sink that drops everything.
var Discard Sink = SinkFunc(func(Preferences) {})

// RemoteStore persists preferences on the authoritative profile row.
type RemoteStore interface {
	SavePreferences(ctx context.Context, p Preferences) error
}

type RemoteFunc func(ctx context.Context, p Preferences) error

func (f RemoteFunc) SavePreferences(ctx context.Context, p Preferences) error { return f(ctx, p) }

// Resolve merges the remote blob with the local one. A remote value that
// normalizes to anything but the defaults wins outright; otherwise the local
// value is used, which normalizes to the defaults when absent or unreadable.
func Resolve(remote, local any) Preferences {
	if r := Normalize(remote); !r.IsDefault() {
		return r
	}
	return Normalize(local)
}

// Reconciler owns the preference cache: nothing else writes it.
type Reconciler struct {
	mu     sync.Mutex
	cache  Cache
	sink   Sink
	key    string
	legacy string
	log    zerolog.Logger
}

// NewReconciler binds a cache and a sink. scope namespaces the cache keys,
// typically with the profile id; an empty scope uses the bare keys.
func NewReconciler(cache Cache, sink Sink, scope string) *Reconciler {
	if sink == nil {
		sink = Discard
	}
	return &Reconciler{
		cache:  cache,
		sink:   sink,
		key:    ScopedKey(CacheKey, scope),
		legacy: ScopedKey(LegacyCacheKey, scope),
		log:    logger.With("prefs"),
	}
}

// Local returns the raw cached blob, or nil when nothing usable is cached.
// Cache faults are logged and read as a miss.
func (r *Reconciler) Local(ctx context.Context) any {
	for _, key := range []string{r.key, r.legacy} {
		v, ok, err := r.cache.Get(ctx, key)
		if err != nil {
			r.log.Warn().Err(err).Str("key", key).Msg("preference cache read failed")
			continue
		}
		if ok {
			return v
		}
	}
	return nil
}

// Reconcile computes the effective preferences from remote and the cache,
// then applies them to the sink and rewrites the cache. Running it again on
// the same remote value yields the same result.
func (r *Reconciler) Reconcile(ctx context.Context, remote any) Preferences {
	r.mu.Lock()
	defer r.mu.Unlock()

	eff := Resolve(remote, r.Local(ctx))
	r.apply(ctx, eff)
	return eff
}

// Save writes next to the remote store first. Only when that succeeds is the
// cache rewritten, the sink updated and refresh invoked. On failure nothing
// local changes and the fault is returned.
func (r *Reconciler) Save(ctx context.Context, next Preferences, remote RemoteStore, refresh func(context.Context) error) (Preferences, error) {
	if err := next.Validate(); err != nil {
		return Preferences{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := remote.SavePreferences(ctx, next); err != nil {
		if _, ok := faults.KindOf(err); ok {
			return Preferences{}, err
		}
		return Preferences{}, faults.Query(err)
	}

	r.apply(ctx, next)

	if refresh != nil {
		if err := refresh(ctx); err != nil {
			r.log.Warn().Err(err).Msg("refresh after preference save failed")
		}
	}
	return next, nil
}

func (r *Reconciler) apply(ctx context.Context, p Preferences) {
	r.sink.Apply(p)
	if err := r.cache.Set(ctx, r.key, p.String()); err != nil {
		r.log.Warn().Err(err).Str("key", r.key).Msg("preference cache write failed")
	}
}
