package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsheet/timesheet/internal/models"
)

func TestAuditService_WriteAndList(t *testing.T) {
	f := newFixture(t)
	InitAuditLogger(f.db)
	t.Cleanup(func() { InitAuditLogger(nil) })

	entry := AuditEntry{OrgID: f.orgID, ActorID: f.admin.ID, IP: "10.0.0.1"}
	LogInfo(entry, "project", "create", "Created project Website", map[string]string{"name": "Website"})
	LogWarning(entry, "membership", "toggle", "Deactivated membership", nil)
	LogError(AuditEntry{OrgID: "other-org"}, "project", "create", "elsewhere", nil)

	svc := NewAuditService(f.db)
	ctx := context.Background()

	res, err := svc.List(ctx, actorOf(f.admin), &AuditLogListRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total, "other org entries stay hidden")
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 20, res.PageSize)

	filtered, err := svc.List(ctx, actorOf(f.admin), &AuditLogListRequest{Module: "project"})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)
	assert.Equal(t, `{"name":"Website"}`, filtered.Items[0].Extra)
	require.NotNil(t, filtered.Items[0].ActorID)
	assert.Equal(t, f.admin.ID, *filtered.Items[0].ActorID)

	modules, err := svc.GetModules(ctx, actorOf(f.admin))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"project", "membership"}, modules)

	_, err = svc.List(ctx, actorOf(f.manager), &AuditLogListRequest{})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuditService_CleanupOldLogs(t *testing.T) {
	f := newFixture(t)
	svc := NewAuditService(f.db)

	require.NoError(t, f.db.Create(&models.AuditLog{OrgID: f.orgID, Level: "info", CreatedAt: time.Now().AddDate(0, 0, -40)}).Error)
	require.NoError(t, f.db.Create(&models.AuditLog{OrgID: f.orgID, Level: "info", CreatedAt: time.Now()}).Error)

	n, err := svc.CleanupOldLogs(0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "non-positive retention disables cleanup")

	n, err = svc.CleanupOldLogs(30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAuditService_SchedulerRunsSweepers(t *testing.T) {
	f := newFixture(t)
	svc := NewAuditService(f.db)

	swept := make(chan struct{}, 1)
	sweeper := func() int {
		select {
		case swept <- struct{}{}:
		default:
		}
		return 1
	}

	require.Error(t, svc.StartScheduler("not a cron", 30, sweeper))

	svc.runCleanup(30, []Sweeper{sweeper})
	select {
	case <-swept:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not run")
	}

	require.NoError(t, svc.StartScheduler("@every 1h", 30, sweeper))
	svc.StopScheduler()
}
