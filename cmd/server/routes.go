package main

import (
	"github.com/gin-gonic/gin"
	"github.com/tsheet/timesheet/internal/middleware"
	"github.com/tsheet/timesheet/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(svc.cfg.CORS.AllowOrigins))

	r.GET("/health", svc.healthHandler.CheckHealth)
	r.GET("/metrics", svc.metricsHandler.Metrics)

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/login", svc.loginLimiter.Middleware(), svc.authHandler.Login)
			auth.POST("/refresh", svc.loginLimiter.Middleware(), svc.authHandler.Refresh)
		}

		// SSE (public route with internal token validation)
		api.GET("/events/session", svc.eventsHandler.StreamSession)

		// Signed in, profile not required yet: /auth/me reports the gap itself.
		session := api.Group("",
			middleware.AuthRequired(),
			middleware.ResolveSession(svc.sessions, svc.profileService, svc.cfg.Session.ResolveTimeout),
		)
		{
			session.GET("/auth/me", svc.authHandler.Me)
			session.POST("/auth/logout", svc.authHandler.Logout)
		}

		protected := session.Group("", middleware.ProfileRequired(), middleware.AuditLog())
		{
			// Me
			protected.GET("/me/nav", svc.meHandler.Nav)
			protected.PUT("/me/profile", svc.meHandler.UpdateProfile)
			protected.POST("/me/onboarding", svc.meHandler.CompleteOnboarding)
			protected.GET("/me/preferences", svc.meHandler.GetPreferences)
			protected.PUT("/me/preferences", svc.meHandler.SavePreferences)

			// People
			protected.GET("/people", svc.peopleHandler.List)
			protected.PUT("/people/:id", svc.peopleHandler.Update)
			protected.POST("/people", middleware.AdminRequired(), svc.peopleHandler.Provision)

			// Projects
			protected.GET("/projects", svc.projectHandler.List)
			protected.GET("/projects/counts", svc.projectHandler.Counts)
			protected.POST("/projects", svc.projectHandler.Create)
			protected.PUT("/projects/:id/active", svc.projectHandler.SetActive)
			protected.PUT("/projects/:id/week-start", svc.projectHandler.SetWeekStart)
			protected.PUT("/projects/:id/name", svc.projectHandler.Rename)
			protected.GET("/projects/:id/members", svc.projectHandler.Members)

			// Memberships
			protected.GET("/memberships", svc.membershipHandler.List)
			protected.PUT("/memberships", svc.membershipHandler.Set)
			protected.POST("/memberships/toggle", svc.membershipHandler.Toggle)

			// Admin
			admin := protected.Group("/admin", middleware.AdminRequired())
			{
				admin.GET("/audit-logs", svc.auditLogHandler.List)
				admin.GET("/audit-logs/modules", svc.auditLogHandler.GetModules)
			}
		}
	}
}
