package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tsheet/timesheet/internal/config"
	"github.com/tsheet/timesheet/internal/handlers"
	"github.com/tsheet/timesheet/internal/middleware"
	"github.com/tsheet/timesheet/internal/models"
	"github.com/tsheet/timesheet/internal/prefs"
	"github.com/tsheet/timesheet/internal/services"
	"github.com/tsheet/timesheet/internal/session"
	"github.com/tsheet/timesheet/internal/utils"
	"github.com/tsheet/timesheet/pkg/logger"
	gormlogger "gorm.io/gorm/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg          *config.Config
	redis        *redis.Client
	sessions     session.Store
	hub          *session.Hub
	auditService *services.AuditService
	loginLimiter *middleware.RateLimiter

	authHandler       *handlers.AuthHandler
	meHandler         *handlers.MeHandler
	peopleHandler     *handlers.PeopleHandler
	projectHandler    *handlers.ProjectHandler
	membershipHandler *handlers.MembershipHandler
	auditLogHandler   *handlers.AuditLogHandler
	eventsHandler     *handlers.EventsHandler
	healthHandler     *handlers.HealthHandler
	metricsHandler    *handlers.MetricsHandler

	profileService *services.ProfileService
}

// bootstrap initializes all application dependencies: database, session
// backend, services and the cleanup scheduler.
func bootstrap(ctx context.Context, cfg *config.Config) (*appServices, error) {
	utils.SetJWTSecret(cfg.JWT.Secret)

	level := gormlogger.Warn
	if cfg.Server.Mode == "release" {
		level = gormlogger.Error
	}
	db, err := models.Open(&cfg.Database, level)
	if err != nil {
		return nil, err
	}
	models.DB = db

	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	svc := &appServices{cfg: cfg, hub: session.NewHub()}

	// Sessions and the preference cache share Redis when enabled.
	var (
		cache    prefs.Cache
		pinger   handlers.Pinger
		sweepers []services.Sweeper
	)
	if cfg.Redis.Enabled {
		svc.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := session.NewRedisStore(svc.redis)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := store.Ping(pingCtx)
		cancel()
		if err != nil {
			svc.redis.Close()
			return nil, fmt.Errorf("connect redis at %s: %w", cfg.Redis.Addr, err)
		}
		svc.sessions = store
		pinger = store
		cache = prefs.NewRedisCache(svc.redis, cfg.Prefs.CacheTTL)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Sessions and preference cache backed by Redis")
	} else {
		store := session.NewMemoryStore()
		svc.sessions = store
		cache = prefs.NewMemoryCache()
		sweepers = append(sweepers, store.Sweep)
		logger.Info().Msg("Redis disabled, sessions and preference cache kept in memory")
	}

	services.InitAuditLogger(db)

	authService := services.NewAuthService(db, svc.sessions, svc.hub, &cfg.JWT)
	svc.profileService = services.NewProfileService(db, svc.hub)
	projectService := services.NewProjectService(db)
	membershipService := services.NewMembershipService(db)
	preferenceService := services.NewPreferenceService(svc.profileService, cache)
	svc.auditService = services.NewAuditService(db)

	if cfg.Bootstrap.AdminPassword == "" {
		logger.Warn().Msg("Bootstrap admin password not set, skipping admin seeding")
	} else if admin, err := authService.EnsureAdmin(ctx, &cfg.Bootstrap); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	} else if admin != nil {
		logger.Info().Str("profile_id", admin.ID).Str("org_id", admin.OrgID).Msg("Bootstrap admin created")
	}

	if cfg.Audit.CleanupCron != "" {
		if err := svc.auditService.StartScheduler(cfg.Audit.CleanupCron, cfg.Audit.RetentionDays, sweepers...); err != nil {
			return nil, fmt.Errorf("start cleanup scheduler: %w", err)
		}
	}

	svc.loginLimiter = middleware.NewRateLimiter(cfg.RateLimit.LoginRPS, cfg.RateLimit.LoginBurst)

	svc.authHandler = handlers.NewAuthHandler(authService)
	svc.meHandler = handlers.NewMeHandler(svc.profileService, preferenceService)
	svc.peopleHandler = handlers.NewPeopleHandler(svc.profileService, authService)
	svc.projectHandler = handlers.NewProjectHandler(projectService, membershipService)
	svc.membershipHandler = handlers.NewMembershipHandler(membershipService)
	svc.auditLogHandler = handlers.NewAuditLogHandler(svc.auditService)
	svc.eventsHandler = handlers.NewEventsHandler(svc.hub, svc.sessions, svc.profileService, cfg.Session.ResolveTimeout)
	svc.healthHandler = handlers.NewHealthHandler(db, svc.hub, pinger)
	svc.metricsHandler = handlers.NewMetricsHandler(db, svc.hub)

	return svc, nil
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.auditService.StopScheduler()
	s.loginLimiter.Stop()
	logger.Info().Msg("Schedulers stopped")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close redis client")
		}
	}
	if sqlDB, err := models.GetDB().DB(); err == nil {
		sqlDB.Close()
	}
}
