// Package handlers expose l'API REST. Les handlers traduisent JSON ↔
// domaine et délèguent toute décision aux moteurs ; le mapping erreur →
// code HTTP passe par apperrors.HTTPStatus.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"skillswap_back_end/internal/apperrors"
	"skillswap_back_end/internal/rating"
	"skillswap_back_end/internal/repository"
	"skillswap_back_end/internal/review"
	"skillswap_back_end/internal/swap"
)

var (
	userRepo     *repository.UserRepository
	swapRepo     *repository.SwapRepository
	reviewRepo   *repository.ReviewRepository
	feedbackRepo *repository.FeedbackRepository

	aggregator    *rating.Aggregator
	swapEngine    *swap.Engine
	reviewService *review.Service
)

// Setup câble les repositories et les moteurs. À appeler une fois au
// démarrage, après l'ouverture des connexions.
func Setup() {
	userRepo = repository.NewUserRepository()
	swapRepo = repository.NewSwapRepository()
	reviewRepo = repository.NewReviewRepository()
	feedbackRepo = repository.NewFeedbackRepository()

	aggregator = rating.NewAggregator(reviewRepo, feedbackRepo, userRepo)
	swapEngine = swap.NewEngine(swapRepo, userRepo, aggregator)
	reviewService = review.NewService(reviewRepo, userRepo, aggregator)
}

// respondError traduit une erreur du domaine en réponse JSON
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "Erreur interne"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// newNotifyContext : contexte détaché pour les notifications envoyées en
// goroutine après la réponse HTTP
func newNotifyContext() context.Context {
	return context.Background()
}
