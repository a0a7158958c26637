package services

import (
	"context"

	"github.com/tsheet/timesheet/internal/models"
	"github.com/tsheet/timesheet/internal/prefs"
)

// PreferenceService runs the reconciler against the per-profile cache and the
// profile row.
type PreferenceService struct {
	profiles *ProfileService
	cache    prefs.Cache
}

func NewPreferenceService(profiles *ProfileService, cache prefs.Cache) *PreferenceService {
	return &PreferenceService{profiles: profiles, cache: cache}
}

// Effective reconciles the stored ui_prefs with the cache and applies the
// result to sink.
func (s *PreferenceService) Effective(ctx context.Context, profile *models.Profile, sink prefs.Sink) prefs.Preferences {
	var remote any
	if len(profile.UIPrefs) > 0 {
		remote = []byte(profile.UIPrefs)
	}
	return prefs.NewReconciler(s.cache, sink, profile.ID).Reconcile(ctx, remote)
}

// Save persists next on the profile row and, only on success, updates the
// cache and sink and calls refresh.
func (s *PreferenceService) Save(ctx context.Context, profile *models.Profile, next prefs.Preferences, sink prefs.Sink, refresh func(context.Context) error) (prefs.Preferences, error) {
	remote := prefs.RemoteFunc(func(ctx context.Context, p prefs.Preferences) error {
		return s.profiles.SavePreferences(ctx, profile.ID, p)
	})
	return prefs.NewReconciler(s.cache, sink, profile.ID).Save(ctx, next, remote, refresh)
}
