package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"skillswap_back_end/internal/cache"
	"skillswap_back_end/internal/models"
	"skillswap_back_end/internal/review"
)

// CreateReview crée un avis sur un autre utilisateur
func CreateReview(c *gin.Context) {
	userID := c.GetString("user_id")
	targetID := c.Param("id")

	var req struct {
		Rating       int    `json:"rating" binding:"required,min=1,max=5"`
		Comment      string `json:"comment" binding:"required,max=500"`
		SkillContext string `json:"skillContext"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	r, err := reviewService.Create(c.Request.Context(), review.CreateInput{
		ReviewerID:     userID,
		ReviewedUserID: targetID,
		Rating:         req.Rating,
		Comment:        req.Comment,
		SkillContext:   req.SkillContext,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("⭐ Avis créé: %s → %s (note: %d/5)", userID, targetID, req.Rating)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Avis créé avec succès",
		"review":  r,
	})
}

// UpdateReview modifie un avis existant (auteur uniquement)
func UpdateReview(c *gin.Context) {
	userID := c.GetString("user_id")
	reviewID := c.Param("id")

	var req struct {
		Rating       *int    `json:"rating"`
		Comment      *string `json:"comment"`
		SkillContext *string `json:"skillContext"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	r, err := reviewService.Update(c.Request.Context(), reviewID, userID, review.UpdateInput{
		Rating:       req.Rating,
		Comment:      req.Comment,
		SkillContext: req.SkillContext,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Avis mis à jour",
		"review":  r,
	})
}

// DeleteReview supprime un avis (auteur uniquement)
func DeleteReview(c *gin.Context) {
	userID := c.GetString("user_id")
	reviewID := c.Param("id")

	if err := reviewService.Delete(c.Request.Context(), reviewID, userID); err != nil {
		respondError(c, err)
		return
	}

	log.Printf("🗑️ Avis %s supprimé par %s", reviewID, userID)
	c.JSON(http.StatusOK, gin.H{"message": "Avis supprimé"})
}

// GetUserReviews liste les avis visibles d'un utilisateur
func GetUserReviews(c *gin.Context) {
	viewerID := c.GetString("user_id")
	targetID := c.Param("id")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	reviews, total, err := reviewService.ListForUser(c.Request.Context(), targetID, viewerID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews":   reviews,
		"userNames": cache.GetNamesFromCache(c.Request.Context(), reviewerIDs(reviews)),
		"total":     total,
		"page":      page,
		"limit":     limit,
	})
}

func reviewerIDs(reviews []models.Review) []string {
	seen := make(map[string]bool, len(reviews))
	ids := make([]string, 0, len(reviews))
	for _, r := range reviews {
		if !seen[r.ReviewerID] {
			seen[r.ReviewerID] = true
			ids = append(ids, r.ReviewerID)
		}
	}
	return ids
}

// GetMyReviews liste les avis rédigés par l'utilisateur connecté
func GetMyReviews(c *gin.Context) {
	userID := c.GetString("user_id")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	reviews, total, err := reviewService.ListByReviewer(c.Request.Context(), userID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews": reviews,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// CanReviewUser indique si l'utilisateur connecté peut noter la cible
func CanReviewUser(c *gin.Context) {
	userID := c.GetString("user_id")
	targetID := c.Param("id")

	allowed, reason, err := reviewService.CanReview(c.Request.Context(), userID, targetID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"canReview": allowed}
	if reason != "" {
		resp["reason"] = reason
	}
	c.JSON(http.StatusOK, resp)
}
