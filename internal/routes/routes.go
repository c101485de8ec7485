package routes

import (
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"skillswap_back_end/internal/handlers"
	"skillswap_back_end/internal/middleware"
)

func RegisterRoutes(r *gin.Engine) {
	r.Use(corsConfig())
	r.Use(middleware.APIRateLimit())

	api := r.Group("/api")

	// Profils
	users := api.Group("/users")
	users.Use(middleware.AuthRequired())
	{
		users.GET("/me", handlers.GetMyProfile)
		users.PUT("/me", handlers.UpdateMyProfile)
		users.GET("", handlers.GetPublicUsers)
		users.GET("/search", middleware.SearchRateLimit(), handlers.SearchUsers)
		users.GET("/:id", handlers.GetUserByID)

		// Avis
		users.POST("/:id/reviews", handlers.CreateReview)
		users.GET("/:id/reviews", handlers.GetUserReviews)
		users.GET("/:id/can-review", handlers.CanReviewUser)
	}

	// Demandes d'échange
	swaps := api.Group("/swaps")
	swaps.Use(middleware.AuthRequired())
	{
		swaps.POST("", middleware.SwapCreateRateLimit(), handlers.CreateSwapRequest)
		swaps.GET("", handlers.GetSwapRequests)
		swaps.GET("/:id", handlers.GetSwapRequestByID)
		swaps.PUT("/:id/status", handlers.UpdateSwapStatus)
		swaps.DELETE("/:id", handlers.CancelSwapRequest)
		swaps.POST("/:id/complete", handlers.CompleteSwapRequest)
		swaps.POST("/:id/feedback", handlers.AddSwapFeedback)
	}

	// Avis rédigés par l'utilisateur connecté
	reviews := api.Group("/reviews")
	reviews.Use(middleware.AuthRequired())
	{
		reviews.GET("/mine", handlers.GetMyReviews)
		reviews.PUT("/:id", handlers.UpdateReview)
		reviews.DELETE("/:id", handlers.DeleteReview)
	}

	// Modération
	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.RequireAdmin)
	{
		admin.GET("/users", handlers.GetAllUsers)
		admin.PUT("/users/:id/status", handlers.UpdateUserStatus)
		admin.PUT("/users/:id/skills", handlers.UpdateSkillApproval)
		admin.GET("/swaps", handlers.GetAllSwaps)
	}
}

func corsConfig() gin.HandlerFunc {
	origins := []string{"http://localhost:5173"}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		origins = strings.Split(env, ",")
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
