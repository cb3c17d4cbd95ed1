package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"picstream-api/auth"
	"picstream-api/config"
	"picstream-api/controllers"
	"picstream-api/middleware"
	"picstream-api/services"
	"picstream-api/visibility"
)

// NewEngine builds a gin engine with the middleware every service shares:
// recovery, structured request logging, security headers, CORS, rate
// limiting, and Prometheus metrics, plus the /health and /metrics endpoints.
func NewEngine(serviceName string, cfg *config.Config, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.RateLimit(300, 50))
	r.Use(middleware.NewMetrics(serviceName).Handler())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// verifier picks the token verification backend: "local" checks the
// signature in-process, anything else delegates to the auth service.
func verifier(cfg *config.Config) auth.Verifier {
	if cfg.TokenVerifyMode == "local" {
		return auth.NewLocalVerifier(auth.NewIssuer(cfg.JWTSecret, cfg.TokenExpiry))
	}
	return auth.NewRemoteVerifier(cfg.AuthServiceURL, cfg.ClientTimeout)
}

func SetupAuthRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config) {
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenExpiry)
	authController := controllers.NewAuthController(db, issuer)
	userController := controllers.NewUserController(db, cfg.UploadDir)

	// The auth service always verifies against its own secret and database.
	requireAuth := middleware.RequireAuth(auth.NewLocalVerifier(issuer))

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/login", authController.Login)
		authGroup.POST("/json-login", authController.JSONLogin)
		authGroup.POST("/register", authController.Register)
		authGroup.POST("/logout", authController.Logout)
		authGroup.GET("/verify-token", requireAuth, authController.VerifyToken)
		authGroup.GET("/user", requireAuth, authController.VerifyToken)
	}

	users := r.Group("/api/users")
	users.Use(requireAuth)
	{
		users.GET("/me", userController.GetMe)
		users.PUT("/me", userController.UpdateMe)
		users.GET("/:user_id", userController.GetUserByID)
	}

	// Profile images saved by UpdateMe.
	r.Static("/uploads", cfg.UploadDir)
}

func SetupFriendshipRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, logger *zap.Logger) {
	authClient := services.NewAuthClient(cfg.AuthServiceURL, cfg.ClientTimeout)
	events := services.NewEventsClient(cfg.WSServiceURL, cfg.ClientTimeout, logger)
	friendshipController := controllers.NewFriendshipController(db, authClient, events, logger)

	requireAuth := middleware.RequireAuth(verifier(cfg))

	// Registered twice: at the root for direct access and under the
	// /api/friendships prefix the gateway routes with.
	for _, prefix := range []string{"", "/api/friendships"} {
		g := r.Group(prefix)
		g.Use(requireAuth)
		{
			g.POST("/", friendshipController.CreateFriendRequest)
			g.GET("/", friendshipController.GetFriendships)
			g.GET("/pending", friendshipController.GetPendingRequests)
			g.GET("/requests", friendshipController.GetRequests)
			g.GET("/check", friendshipController.CheckFriendship)
			g.PATCH("/:id", friendshipController.UpdateStatus)
			g.DELETE("/:id", friendshipController.DeleteFriendship)
		}
	}
}

func SetupImageRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, storage services.Storage, logger *zap.Logger) {
	oracle := services.NewFriendshipClient(cfg.FriendshipServiceURL, cfg.ClientTimeout)
	gate := visibility.NewGate(oracle, logger)
	events := services.NewEventsClient(cfg.WSServiceURL, cfg.ClientTimeout, logger)

	postController := controllers.NewPostController(db, gate, storage, events, cfg.MaxImageSize, logger)
	commentController := controllers.NewCommentController(db, gate, events)
	likeController := controllers.NewLikeController(db, gate, events)

	requireAuth := middleware.RequireAuth(verifier(cfg))

	posts := r.Group("/api/posts")
	posts.Use(requireAuth)
	{
		posts.POST("/", postController.CreatePost)
		posts.GET("/", postController.GetPosts)
		posts.GET("/feed", postController.GetFeed)
		posts.GET("/:id", postController.GetPost)
		posts.PUT("/:id", postController.UpdatePost)
		posts.DELETE("/:id", postController.DeletePost)
		posts.POST("/:id/comments", commentController.CreateComment)
		posts.GET("/:id/comments", commentController.GetComments)
		posts.DELETE("/:id/comments/:comment_id", commentController.DeleteComment)
	}

	likes := r.Group("/api/likes")
	likes.Use(requireAuth)
	{
		likes.POST("/:post_id", likeController.ToggleLike)
	}

	// Locally stored images; MinIO serves its own URLs.
	if !cfg.UseMinio {
		r.Static("/uploads", cfg.UploadDir)
	}
}

func SetupWSRoutes(r *gin.Engine, hub *services.Hub, cfg *config.Config, logger *zap.Logger) {
	wsController := controllers.NewWSController(hub, verifier(cfg), logger)
	eventController := controllers.NewEventController(hub)

	r.GET("/ws", wsController.Connect)

	events := r.Group("/api/events")
	{
		events.POST("/post", eventController.ReceivePostEvent)
		events.POST("/friendship", eventController.ReceiveFriendshipEvent)
	}
}
