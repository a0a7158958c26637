package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tsheet/timesheet/internal/access"
	"github.com/tsheet/timesheet/internal/config"
	"github.com/tsheet/timesheet/internal/models"
	"github.com/tsheet/timesheet/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	utils.SetJWTSecret("services-test-secret")
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := models.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:" + name + "?mode=memory&cache=shared",
	}, logger.Silent)
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// fixture is one org with an admin, a manager with one report, an unrelated
// contractor, and a profile in a second org.
type fixture struct {
	db         *gorm.DB
	orgID      string
	admin      models.Profile
	manager    models.Profile
	report     models.Profile
	contractor models.Profile
	foreign    models.Profile
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := openTestDB(t)

	org, err := models.SeedOrganization(db, "Acme")
	require.NoError(t, err)
	other, err := models.SeedOrganization(db, "Globex")
	require.NoError(t, err)

	f := &fixture{db: db, orgID: org.ID}
	f.admin = f.create(t, models.Profile{ID: "admin-1", OrgID: org.ID, Role: models.RoleAdmin, FullName: "Ada Admin"})
	f.manager = f.create(t, models.Profile{ID: "mgr-1", OrgID: org.ID, Role: models.RoleManager, FullName: "Max Manager"})
	f.report = f.create(t, models.Profile{ID: "rep-1", OrgID: org.ID, Role: models.RoleContractor, FullName: "Rita Report", ManagerID: models.String("mgr-1")})
	f.contractor = f.create(t, models.Profile{ID: "con-1", OrgID: org.ID, Role: models.RoleContractor, FullName: "Carl Contractor"})
	f.foreign = f.create(t, models.Profile{ID: "far-1", OrgID: other.ID, Role: models.RoleContractor, FullName: "Fay Foreign"})
	return f
}

func (f *fixture) create(t *testing.T, p models.Profile) models.Profile {
	t.Helper()
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

func (f *fixture) project(t *testing.T, name string, active bool) models.Project {
	t.Helper()
	p := models.Project{OrgID: f.orgID, Name: name, IsActive: models.Bool(active)}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

func actorOf(p models.Profile) access.Actor {
	return access.ActorFromProfile(&p)
}
