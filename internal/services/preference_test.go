package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsheet/timesheet/internal/faults"
	"github.com/tsheet/timesheet/internal/models"
	"github.com/tsheet/timesheet/internal/prefs"
)

func TestPreferenceService_EffectiveFallsBackToCache(t *testing.T) {
	f := newFixture(t)
	cache := prefs.NewMemoryCache()
	svc := NewPreferenceService(NewProfileService(f.db, nil), cache)
	ctx := context.Background()

	cached := prefs.Preferences{Accent: prefs.AccentRose, Density: prefs.DensityCompact, Radius: prefs.RadiusXL}
	require.NoError(t, cache.Set(ctx, prefs.ScopedKey(prefs.CacheKey, f.contractor.ID), cached.String()))

	var applied prefs.Preferences
	got := svc.Effective(ctx, &f.contractor, prefs.SinkFunc(func(p prefs.Preferences) { applied = p }))
	assert.Equal(t, cached, got)
	assert.Equal(t, cached, applied)

	other := svc.Effective(ctx, &f.report, nil)
	assert.Equal(t, prefs.Defaults(), other, "cache entries are per profile")
}

func TestPreferenceService_SaveThenEffective(t *testing.T) {
	f := newFixture(t)
	profiles := NewProfileService(f.db, nil)
	svc := NewPreferenceService(profiles, prefs.NewMemoryCache())
	ctx := context.Background()
	want := prefs.Preferences{Accent: prefs.AccentEmerald, Density: prefs.DensityComfortable, Radius: prefs.RadiusMD}

	refreshed := false
	got, err := svc.Save(ctx, &f.contractor, want, nil, func(context.Context) error { refreshed = true; return nil })
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, refreshed)

	fresh, err := profiles.FetchProfile(ctx, f.contractor.ID)
	require.NoError(t, err)
	assert.Equal(t, want, svc.Effective(ctx, fresh, nil))
}

func TestPreferenceService_SaveFailureKeepsCache(t *testing.T) {
	f := newFixture(t)
	cache := prefs.NewMemoryCache()
	svc := NewPreferenceService(NewProfileService(f.db, nil), cache)
	ctx := context.Background()
	key := prefs.ScopedKey(prefs.CacheKey, f.contractor.ID)
	require.NoError(t, cache.Set(ctx, key, prefs.Defaults().String()))

	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = svc.Save(ctx, &f.contractor, prefs.Preferences{Accent: prefs.AccentSlate, Density: prefs.DensityCompact, Radius: prefs.RadiusLG}, nil,
		func(context.Context) error { return errors.New("must not run") })
	assert.True(t, faults.IsKind(err, faults.KindQuery), "got %v", err)

	stored, _, _ := cache.Get(ctx, key)
	assert.Equal(t, prefs.Defaults(), prefs.Normalize(stored))
}

func TestPreferenceService_SaveForDeletedProfile(t *testing.T) {
	f := newFixture(t)
	cache := prefs.NewMemoryCache()
	svc := NewPreferenceService(NewProfileService(f.db, nil), cache)
	ctx := context.Background()

	gone := f.contractor
	require.NoError(t, f.db.Delete(&models.Profile{}, "id = ?", gone.ID).Error)

	applied := false
	_, err := svc.Save(ctx, &gone, prefs.Preferences{Accent: prefs.AccentRose, Density: prefs.DensityCompact, Radius: prefs.RadiusXL},
		prefs.SinkFunc(func(prefs.Preferences) { applied = true }), nil)
	assert.True(t, faults.IsKind(err, faults.KindProfileMissing), "got %v", err)
	assert.False(t, applied, "sink must not change after a failed save")

	_, ok, _ := cache.Get(ctx, prefs.ScopedKey(prefs.CacheKey, gone.ID))
	assert.False(t, ok, "cache must not be written after a failed save")
}
