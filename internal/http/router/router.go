package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"github.com/ignatzorin/agromarket-backend/internal/config"
	"github.com/ignatzorin/agromarket-backend/internal/http/handlers"
	"github.com/ignatzorin/agromarket-backend/internal/http/middleware"
	"github.com/ignatzorin/agromarket-backend/internal/models"
)

// Handlers набор хэндлеров, которые монтирует роутер.
type Handlers struct {
	Health        *handlers.HealthHandler
	Profile       *handlers.ProfileHandler
	Location      *handlers.LocationHandler
	Product       *handlers.ProductHandler
	Order         *handlers.OrderHandler
	Verification  *handlers.VerificationHandler
	Moderation    *handlers.ModerationHandler
	Review        *handlers.ReviewHandler
	Favorite      *handlers.FavoriteHandler
	Earnings      *handlers.EarningsHandler
	Notification  *handlers.NotificationHandler
	Webhook       *handlers.WebhookHandler
	MetricsHandle http.Handler
}

// Deps зависимости middleware.
type Deps struct {
	Tokens       middleware.AccessTokenParser
	Status       middleware.StatusLookup
	LimiterStore limiter.Store
}

func SetupRouter(cfg *config.Config, deps Deps, h Handlers) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	if h.MetricsHandle != nil {
		r.GET("/metrics", gin.WrapH(h.MetricsHandle))
	}

	api := r.Group("/api")
	api.POST("/webhooks/identity", h.Webhook.Identity)

	auth := middleware.AuthMiddleware(deps.Tokens)
	notSuspended := middleware.RequireNotSuspended(deps.Status, true)
	writeLimit := middleware.RateLimitMiddleware(deps.LimiterStore, cfg.RateLimitLimit, cfg.RateLimitPeriod)
	ids := middleware.UUIDParams("id")

	protected := api.Group("")
	protected.Use(auth)

	// Чтение доступно и заблокированным пользователям.
	{
		protected.GET("/users/me", h.Profile.GetMe)
		protected.GET("/users/:id", ids, h.Profile.GetUserProfile)
		protected.GET("/users/:id/reviews", ids, h.Review.ListUserReviews)

		protected.GET("/location/me", h.Location.MyLocation)
		nearby := protected.Group("/location/nearby")
		nearby.GET("/farmers", middleware.RequireRole(models.RoleBuyer, models.RoleAdmin), h.Location.NearbyFarmers)
		nearby.GET("/buyers", middleware.RequireRole(models.RoleFarmer, models.RoleAdmin), h.Location.NearbyBuyers)
		nearby.GET("/products", middleware.RequireRole(models.RoleBuyer, models.RoleAdmin), h.Location.NearbyProducts)

		protected.GET("/products/:id", ids, h.Product.Get)
		protected.GET("/farmers/:id/products", ids, h.Product.ListBySeller)

		protected.GET("/earnings/farmer/summary", middleware.RequireRole(models.RoleFarmer), h.Earnings.FarmerSummary)

		protected.GET("/orders", h.Order.ListMyOrders)
		protected.GET("/orders/:id", ids, h.Order.GetOrder)
		protected.GET("/orders/:id/history", ids, h.Order.History)
		protected.GET("/orders/:id/can-review", ids, h.Review.CanLeaveReview)

		protected.GET("/reviews/:id", ids, h.Review.GetReview)
		protected.GET("/reviews/:id/comments", ids, h.Review.ListComments)

		protected.GET("/favorites", h.Favorite.List)
		protected.GET("/favorites/:id", ids, h.Favorite.Status)

		protected.GET("/notifications", h.Notification.ListNotifications)
		protected.GET("/notifications/unread-count", h.Notification.CountUnread)
		protected.PUT("/notifications/:id/read", ids, h.Notification.MarkAsRead)
		protected.DELETE("/notifications/:id", ids, h.Notification.DeleteNotification)

		// Апелляция должна оставаться доступной заблокированному аккаунту.
		protected.GET("/reports/appeals", h.Moderation.MyAppeals)
		protected.POST("/reports/appeal", h.Moderation.AppealLatest)
		protected.POST("/reports/:id/appeal", ids, h.Moderation.AppealReport)

		verification := protected.Group("/verification")
		verification.POST("/upload-token", writeLimit, h.Verification.UploadToken)
		verification.POST("/upload", writeLimit, h.Verification.Upload)
		verification.POST("/submit", writeLimit, h.Verification.Submit)
		verification.GET("/me", h.Verification.MyStatus)
		verification.GET("/me/latest", h.Verification.MyLatest)
		verification.GET("/:id", ids, h.Verification.GetStatus)
		verification.POST("/:id/respond", ids, h.Verification.RespondMore)
		verification.POST("/:id/appeal", ids, h.Verification.Appeal)
	}

	// Пользовательский контент: блокировка закрывает запись.
	ugc := protected.Group("")
	ugc.Use(notSuspended, writeLimit)
	{
		ugc.PATCH("/users/profile", h.Profile.UpdateProfile)
		ugc.PATCH("/location", h.Location.UpdateLocation)

		ugc.POST("/products", middleware.RequireRole(models.RoleFarmer), h.Product.Create)
		ugc.PATCH("/products/:id", ids, h.Product.Update)
		ugc.DELETE("/products/:id", ids, h.Product.Delete)
		ugc.POST("/products/:id/restore", ids, h.Product.Restore)

		ugc.POST("/orders", h.Order.CreateOrder)
		ugc.PATCH("/orders/:id/status", ids, h.Order.UpdateStatus)
		ugc.POST("/orders/:id/delivered", ids, h.Order.MarkDelivered)
		ugc.POST("/orders/:id/cancel", ids, h.Order.Cancel)

		ugc.POST("/orders/:id/reviews", ids, h.Review.CreateReview)
		ugc.POST("/reviews/:id/comments", ids, h.Review.AddComment)

		ugc.POST("/favorites/:id", ids, h.Favorite.Toggle)

		ugc.POST("/reports", h.Moderation.CreateReport)
	}

	admin := protected.Group("/admin")
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/verification", h.Verification.AdminList)
		admin.GET("/verification/appeals", h.Verification.ListAppeals)
		admin.POST("/verification/appeals/:id/resolve", ids, h.Verification.ResolveAppeal)
		admin.GET("/verification/:id", ids, h.Verification.AdminGet)
		admin.POST("/verification/:id/approve", ids, h.Verification.Approve)
		admin.POST("/verification/:id/reject", ids, h.Verification.Reject)
		admin.POST("/verification/:id/request-more", ids, h.Verification.RequestMoreInfo)
		admin.POST("/verification/:id/comments", ids, h.Verification.Comment)

		admin.GET("/reports", h.Moderation.ListReports)
		admin.GET("/reports/appeals", h.Moderation.ListAppeals)
		admin.POST("/reports/appeals/:id/resolve", ids, h.Moderation.ResolveAppeal)
		admin.POST("/reports/:id/validate", ids, h.Moderation.ValidateReport)
		admin.POST("/reports/:id/reject", ids, h.Moderation.RejectReport)

		admin.POST("/users/:id/suspend", ids, h.Moderation.Suspend)
		admin.POST("/users/:id/unsuspend", ids, h.Moderation.Unsuspend)
		admin.POST("/users/:id/ban", ids, h.Moderation.Ban)
		admin.POST("/users/:id/trust", ids, h.Profile.SetTrusted)

		admin.DELETE("/reviews/:id", ids, h.Review.DeleteReview)
		admin.GET("/audit", h.Notification.AuditLogs)
	}

	return r
}
