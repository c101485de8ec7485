package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"skillswap_back_end/internal/cache"
	"skillswap_back_end/internal/models"
	"skillswap_back_end/internal/swap"
	"skillswap_back_end/internal/utils"
)

// CreateSwapRequest ouvre une demande d'échange vers un autre utilisateur
func CreateSwapRequest(c *gin.Context) {
	userID := c.GetString("user_id")

	var req struct {
		RecipientID      string       `json:"recipientId" binding:"required"`
		SkillOffered     models.Skill `json:"skillOffered" binding:"required"`
		SkillRequested   models.Skill `json:"skillRequested" binding:"required"`
		Message          string       `json:"message"`
		ProposedSchedule string       `json:"proposedSchedule"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	s, err := swapEngine.Create(c.Request.Context(), swap.CreateInput{
		RequesterID:      userID,
		RecipientID:      req.RecipientID,
		SkillOffered:     req.SkillOffered,
		SkillRequested:   req.SkillRequested,
		Message:          req.Message,
		ProposedSchedule: req.ProposedSchedule,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("🤝 Demande d'échange créée: %s → %s", userID, req.RecipientID)
	go notifySwapRequest(s)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Demande d'échange envoyée",
		"swap":    s,
	})
}

// GetSwapRequests liste les demandes de l'utilisateur connecté
// (?type=sent|received|all, ?status=..., ?page=, ?limit=)
func GetSwapRequests(c *gin.Context) {
	userID := c.GetString("user_id")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	kind := c.DefaultQuery("type", "all")
	status := models.SwapStatus(c.Query("status"))

	swaps, total, err := swapEngine.ListForUser(c.Request.Context(), userID, status, kind, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"swaps":     swaps,
		"userNames": cache.GetNamesFromCache(c.Request.Context(), participantIDs(swaps)),
		"total":     total,
		"page":      page,
		"limit":     limit,
	})
}

// participantIDs rassemble les identifiants des deux côtés de chaque
// demande, sans doublon, pour l'enrichissement en noms
func participantIDs(swaps []models.SwapRequest) []string {
	seen := make(map[string]bool, len(swaps)*2)
	ids := make([]string, 0, len(swaps)*2)
	for _, s := range swaps {
		for _, id := range []string{s.RequesterID, s.RecipientID} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// GetSwapRequestByID retourne une demande (participants uniquement)
func GetSwapRequestByID(c *gin.Context) {
	userID := c.GetString("user_id")
	swapID := c.Param("id")

	s, err := swapEngine.Get(c.Request.Context(), swapID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"swap": s})
}

// UpdateSwapStatus : le destinataire accepte ou refuse une demande pending
func UpdateSwapStatus(c *gin.Context) {
	userID := c.GetString("user_id")
	swapID := c.Param("id")

	var req struct {
		Status models.SwapStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	s, err := swapEngine.Respond(c.Request.Context(), swapID, userID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("✅ Demande %s → %s par %s", swapID, s.Status, userID)
	go notifySwapStatus(s, s.RequesterID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Statut mis à jour",
		"swap":    s,
	})
}

// CancelSwapRequest : le demandeur annule sa demande pending
func CancelSwapRequest(c *gin.Context) {
	userID := c.GetString("user_id")
	swapID := c.Param("id")

	s, err := swapEngine.Cancel(c.Request.Context(), swapID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("🚫 Demande %s annulée par %s", swapID, userID)
	go notifySwapStatus(s, s.RecipientID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Demande annulée",
		"swap":    s,
	})
}

// CompleteSwapRequest : un participant clôture un échange accepté
func CompleteSwapRequest(c *gin.Context) {
	userID := c.GetString("user_id")
	swapID := c.Param("id")

	s, err := swapEngine.Complete(c.Request.Context(), swapID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("🎉 Échange %s terminé (clôturé par %s)", swapID, userID)
	go notifySwapStatus(s, s.OtherParticipant(userID))

	c.JSON(http.StatusOK, gin.H{
		"message": "Échange terminé",
		"swap":    s,
	})
}

// AddSwapFeedback enregistre la note d'un participant sur un échange terminé
func AddSwapFeedback(c *gin.Context) {
	userID := c.GetString("user_id")
	swapID := c.Param("id")

	var req struct {
		Rating  int    `json:"rating" binding:"required,min=1,max=5"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	s, err := swapEngine.AttachFeedback(c.Request.Context(), swapID, userID, req.Rating, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("⭐ Feedback déposé sur %s par %s (note: %d/5)", swapID, userID, req.Rating)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Feedback enregistré",
		"swap":    s,
	})
}

// --- Notifications (best-effort, jamais bloquantes) ---

func notifySwapRequest(s *models.SwapRequest) {
	ctx := newNotifyContext()
	recipient, err := cache.GetUserFromCache(ctx, s.RecipientID)
	if err != nil || recipient.Email == "" {
		return
	}
	requesterName := "Un membre"
	if requester, err := cache.GetUserFromCache(ctx, s.RequesterID); err == nil && requester.Name != "" {
		requesterName = requester.Name
	}
	utils.SendSwapRequestEmail(recipient.Email, requesterName, s)
}

func notifySwapStatus(s *models.SwapRequest, targetUserID string) {
	ctx := newNotifyContext()
	target, err := cache.GetUserFromCache(ctx, targetUserID)
	if err != nil || target.Email == "" {
		return
	}
	utils.SendSwapStatusEmail(target.Email, s, s.Status)
}
