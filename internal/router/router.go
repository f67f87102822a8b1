package router

import (
	"context"
	"net/http"

	"coursenotify/config"
	"coursenotify/internal/catalog"
	"coursenotify/internal/handler"
	"coursenotify/internal/middleware"
	"coursenotify/internal/repository"
	"coursenotify/internal/service"
	"coursenotify/internal/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Setup wires repositories, services and handlers. push may be nil when push delivery is off.
func Setup(cfg *config.Config, db *gorm.DB, cat *catalog.Catalog, push service.PushSender) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID())
	limiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	rateMw := middleware.RateLimit(limiter)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	coursePrefRepo := repository.NewCoursePreferenceRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	hub := ws.NewHub()

	// Services
	aggregationSvc := service.NewAggregationService(db, cat, roleRepo)
	patchSvc := service.NewPatchService(db, aggregationSvc, cfg.Notifications.MaxOptimisticRetries)
	feedSvc := service.NewFeedService(notificationRepo, coursePrefRepo, cat, cfg.Notifications)
	enrollmentSvc := service.NewEnrollmentService(db, cat)
	unsubscribeSvc := service.NewUnsubscribeService(db, cat, cfg.Unsubscribe)
	notifier := service.NewNotifier(cat, coursePrefRepo, notificationRepo, userRepo, feedSvc, push, hub)

	// Handlers
	preferenceHandler := handler.NewPreferenceHandler(aggregationSvc, patchSvc)
	notificationHandler := handler.NewNotificationHandler(feedSvc, cfg.Notifications)
	unsubscribeHandler := handler.NewUnsubscribeHandler(unsubscribeSvc)
	meHandler := handler.NewMeHandler(userRepo)
	internalHandler := handler.NewInternalHandler(enrollmentSvc, notifier, unsubscribeSvc, userRepo, roleRepo)

	authMw := middleware.AuthRequired(&cfg.JWT)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "catalog_version": cat.Version()})
	})

	api := r.Group("/api/v1")
	{
		// one-click links are opened from email clients, the token is the credential
		api.GET("/notifications/preferences/unsubscribe/:token", rateMw, unsubscribeHandler.Redeem)
		api.POST("/notifications/preferences/unsubscribe/:token", rateMw, unsubscribeHandler.Redeem)

		notifications := api.Group("/notifications")
		notifications.Use(authMw, rateMw)
		{
			notifications.GET("", notificationHandler.List)
			notifications.GET("/count", notificationHandler.Count)
			notifications.PUT("/mark-seen/:app_name", notificationHandler.MarkSeen)
			notifications.PATCH("/read", notificationHandler.MarkRead)
			notifications.GET("/enrollments", preferenceHandler.Enrollments)

			prefs := notifications.Group("/preferences")
			prefs.GET("/courses/:course_id", preferenceHandler.GetCourse)
			prefs.PATCH("/courses/:course_id", preferenceHandler.PatchCourse)
			prefs.GET("/aggregated", preferenceHandler.Aggregated)
			prefs.POST("/update-all", preferenceHandler.UpdateAll)
			prefs.GET("/v2", preferenceHandler.GetFlat)
			prefs.PUT("/v2", preferenceHandler.PutFlat)
		}

		me := api.Group("/me")
		me.Use(authMw, rateMw)
		{
			me.POST("/fcm-token", meHandler.RegisterFCMToken)
		}

		internal := api.Group("/internal")
		internal.Use(middleware.InternalKeyRequired(cfg.Internal.APIKey))
		{
			internal.POST("/users", internalHandler.UpsertUser)
			internal.POST("/roles", internalHandler.Role)
			internal.POST("/enrollments", internalHandler.Enrollment)
			internal.POST("/notifications", internalHandler.Fire)
			internal.POST("/unsubscribe-links", internalHandler.UnsubscribeLink)
		}
	}

	r.GET("/ws/notifications", ws.UpgradeNotificationsWS(&cfg.JWT, hub, func(ctx context.Context, userID uint) (interface{}, error) {
		count, err := feedSvc.Count(ctx, userID)
		if err != nil {
			return nil, err
		}
		return service.CountUpdate{Type: "notification_count", CountResult: count}, nil
	}))

	return r
}
