package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"skillswap_back_end/internal/models"
	"skillswap_back_end/internal/services"
)

// UpdateUserStatus bannit ou débannit un utilisateur (admin)
func UpdateUserStatus(c *gin.Context) {
	targetID := c.Param("id")

	var req struct {
		IsBanned *bool `json:"isBanned" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	if err := userRepo.SetBanned(c.Request.Context(), targetID, *req.IsBanned); err != nil {
		respondError(c, err)
		return
	}

	if *req.IsBanned {
		log.Printf("🚫 Utilisateur banni: %s", targetID)
		go services.RemoveUser(targetID)
	} else {
		log.Printf("✅ Utilisateur débanni: %s", targetID)
		go reindexUser(targetID)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Statut utilisateur mis à jour"})
}

// UpdateSkillApproval approuve ou rejette une compétence offerte (admin)
func UpdateSkillApproval(c *gin.Context) {
	targetID := c.Param("id")

	var req struct {
		SkillName  string `json:"skillName" binding:"required"`
		IsApproved *bool  `json:"isApproved" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	if err := userRepo.SetSkillApproval(c.Request.Context(), targetID, req.SkillName, *req.IsApproved); err != nil {
		respondError(c, err)
		return
	}

	log.Printf("⚖️ Compétence %q de %s: approuvée=%v", req.SkillName, targetID, *req.IsApproved)
	go reindexUser(targetID)

	c.JSON(http.StatusOK, gin.H{"message": "Modération de compétence appliquée"})
}

// GetAllUsers liste tous les profils, bannis et privés compris (admin)
func GetAllUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	users, total, err := userRepo.ListAll(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetAllSwaps liste les demandes d'échange de la plateforme (admin),
// restreintes à un utilisateur si ?user_id= est fourni
func GetAllSwaps(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	status := models.SwapStatus(c.Query("status"))

	var (
		swaps []models.SwapRequest
		total int
		err   error
	)
	if targetID := c.Query("user_id"); targetID != "" {
		swaps, total, err = swapEngine.ListForUser(c.Request.Context(), targetID, status, "all", page, limit)
	} else {
		swaps, total, err = swapEngine.ListAll(c.Request.Context(), status, page, limit)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"swaps": swaps,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func reindexUser(userID string) {
	user, err := userRepo.FindByID(newNotifyContext(), userID)
	if err != nil {
		log.Printf("⚠️ Réindexation impossible pour %s: %v", userID, err)
		return
	}
	services.IndexUser(*user)
}
