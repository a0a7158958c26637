package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsheet/timesheet/internal/faults"
	"github.com/tsheet/timesheet/internal/models"
	"github.com/tsheet/timesheet/internal/prefs"
	"github.com/tsheet/timesheet/internal/session"
)

func strPtr(s string) *string { return &s }

func profileIDs(rows []models.Profile) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func TestProfileService_FetchProfile(t *testing.T) {
	f := newFixture(t)
	svc := NewProfileService(f.db, nil)
	ctx := context.Background()

	p, err := svc.FetchProfile(ctx, f.manager.ID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Max Manager", p.FullName)

	missing, err := svc.FetchProfile(ctx, "nobody")
	assert.NoError(t, err)
	assert.Nil(t, missing, "a missing row is not an error")
}

func TestProfileService_ListByRole(t *testing.T) {
	f := newFixture(t)
	svc := NewProfileService(f.db, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		actor    models.Profile
		req      ProfileListRequest
		expected []string
	}{
		{"admin sees org", f.admin, ProfileListRequest{}, []string{"admin-1", "con-1", "mgr-1", "rep-1"}},
		{"admin all org scope", f.admin, ProfileListRequest{Scope: "all_org"}, []string{"admin-1", "con-1", "mgr-1", "rep-1"}},
		{"manager sees self and reports", f.manager, ProfileListRequest{}, []string{"mgr-1", "rep-1"}},
		{"manager all org scope is still narrowed", f.manager, ProfileListRequest{Scope: "all_org"}, []string{"mgr-1", "rep-1"}},
		{"contractor sees self", f.contractor, ProfileListRequest{}, []string{"con-1"}},
		{"admin filters by role", f.admin, ProfileListRequest{Role: "contractor"}, []string{"con-1", "rep-1"}},
		{"admin searches", f.admin, ProfileListRequest{Query: "RITA"}, []string{"rep-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := svc.List(ctx, actorOf(tt.actor), &tt.req)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.expected, profileIDs(rows))
		})
	}
}

func TestProfileService_ListNullActive(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Exec("UPDATE profiles SET is_active = NULL WHERE id = ?", f.contractor.ID).Error)
	require.NoError(t, f.db.Model(&models.Profile{}).Where("id = ?", f.report.ID).Update("is_active", false).Error)

	svc := NewProfileService(f.db, nil)
	active, err := svc.List(context.Background(), actorOf(f.admin), &ProfileListRequest{Active: "active"})
	require.NoError(t, err)
	assert.Contains(t, profileIDs(active), f.contractor.ID, "null is_active counts as active")
	assert.NotContains(t, profileIDs(active), f.report.ID)
}

func TestProfileService_UpdateByAdmin(t *testing.T) {
	f := newFixture(t)
	hub := session.NewHub()
	events := hub.Subscribe("watch", f.contractor.ID)
	svc := NewProfileService(f.db, hub)

	rate := 42.5
	updated, err := svc.Update(context.Background(), actorOf(f.admin), f.contractor.ID, &ProfilePatch{
		Role:       strPtr(models.RoleManager),
		HourlyRate: &rate,
		ManagerID:  strPtr(f.manager.ID),
		FullName:   strPtr("  Carl C. "),
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleManager, updated.Role)
	assert.Equal(t, 42.5, updated.HourlyRate)
	assert.True(t, updated.ManagedBy(f.manager.ID))
	assert.Equal(t, "Carl C.", updated.FullName)
	assert.Equal(t, f.orgID, updated.OrgID)

	ev := <-events
	assert.Equal(t, session.EventProfileChanged, ev.Kind)

	cleared, err := svc.Update(context.Background(), actorOf(f.admin), f.contractor.ID, &ProfilePatch{ManagerID: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, cleared.ManagerID)
}

func TestProfileService_UpdateGating(t *testing.T) {
	f := newFixture(t)
	svc := NewProfileService(f.db, nil)
	ctx := context.Background()
	inactive := false

	tests := []struct {
		name   string
		actor  models.Profile
		target string
		patch  ProfilePatch
		err    error
	}{
		{"contractor renames self", f.contractor, f.contractor.ID, ProfilePatch{FullName: strPtr("Carl")}, nil},
		{"contractor sets own role", f.contractor, f.contractor.ID, ProfilePatch{Role: strPtr("admin")}, ErrForbidden},
		{"contractor edits other", f.contractor, f.report.ID, ProfilePatch{FullName: strPtr("x")}, ErrNotFound},
		{"manager renames report", f.manager, f.report.ID, ProfilePatch{FullName: strPtr("Rita R")}, nil},
		{"manager sets report phone", f.manager, f.report.ID, ProfilePatch{Phone: strPtr("555")}, ErrForbidden},
		{"manager deactivates report", f.manager, f.report.ID, ProfilePatch{IsActive: &inactive}, ErrForbidden},
		{"manager edits stranger", f.manager, f.contractor.ID, ProfilePatch{FullName: strPtr("x")}, ErrNotFound},
		{"manager sets own rate", f.manager, f.manager.ID, ProfilePatch{HourlyRate: new(float64)}, ErrForbidden},
		{"admin edits other org", f.admin, f.foreign.ID, ProfilePatch{FullName: strPtr("x")}, ErrNotFound},
		{"admin deactivates", f.admin, f.report.ID, ProfilePatch{IsActive: &inactive}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(ctx, actorOf(tt.actor), tt.target, &tt.patch)
			if tt.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestProfileService_DeniedPatchWritesNothing(t *testing.T) {
	f := newFixture(t)
	svc := NewProfileService(f.db, nil)

	_, err := svc.Update(context.Background(), actorOf(f.contractor), f.contractor.ID, &ProfilePatch{
		FullName: strPtr("Changed"),
		Role:     strPtr("admin"),
	})
	require.ErrorIs(t, err, ErrForbidden)

	p, _ := svc.FetchProfile(context.Background(), f.contractor.ID)
	assert.Equal(t, "Carl Contractor", p.FullName)
	assert.Equal(t, models.RoleContractor, p.Role)
}

func TestProfileService_UpdateValidation(t *testing.T) {
	f := newFixture(t)
	svc := NewProfileService(f.db, nil)
	admin := actorOf(f.admin)
	negative := -1.0

	patches := []ProfilePatch{
		{Role: strPtr("owner")},
		{HourlyRate: &negative},
		{ManagerID: strPtr(f.foreign.ID)},
		{ManagerID: strPtr("missing")},
		{ManagerID: strPtr(f.report.ID)},
	}
	for _, patch := range patches {
		_, err := svc.Update(context.Background(), admin, f.report.ID, &patch)
		assert.True(t, faults.IsKind(err, faults.KindValidation), "patch %+v: got %v", patch, err)
	}
}

func TestProfileService_UpdateMineAndOnboarding(t *testing.T) {
	f := newFixture(t)
	svc := NewProfileService(f.db, nil)
	ctx := context.Background()
	me := actorOf(f.report)

	p, err := svc.UpdateMine(ctx, me, &MyProfilePatch{Phone: strPtr("555-0100"), Address: strPtr("1 Main St"), AvatarURL: strPtr("https://x/a.png")})
	require.NoError(t, err)
	assert.Equal(t, "555-0100", p.Phone)
	assert.Equal(t, "1 Main St", p.Address)

	done, err := svc.CompleteOnboarding(ctx, me)
	require.NoError(t, err)
	require.NotNil(t, done.OnboardingCompletedAt)
	first := *done.OnboardingCompletedAt

	again, err := svc.CompleteOnboarding(ctx, me)
	require.NoError(t, err)
	assert.True(t, first.Equal(*again.OnboardingCompletedAt), "onboarding timestamp must not move")
}

func TestProfileService_SavePreferences(t *testing.T) {
	f := newFixture(t)
	svc := NewProfileService(f.db, nil)
	ctx := context.Background()
	want := prefs.Preferences{Accent: prefs.AccentRose, Density: prefs.DensityCompact, Radius: prefs.RadiusXL}

	require.NoError(t, svc.SavePreferences(ctx, f.contractor.ID, want))

	p, err := svc.FetchProfile(ctx, f.contractor.ID)
	require.NoError(t, err)
	assert.Equal(t, want, prefs.Normalize(p.UIPrefs))
}

func TestProfileService_SavePreferencesMissingRow(t *testing.T) {
	f := newFixture(t)
	svc := NewProfileService(f.db, nil)

	err := svc.SavePreferences(context.Background(), "ghost", prefs.Defaults())
	assert.True(t, faults.IsKind(err, faults.KindProfileMissing), "got %v", err)
}
