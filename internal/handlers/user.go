package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"skillswap_back_end/internal/apperrors"
	"skillswap_back_end/internal/cache"
	"skillswap_back_end/internal/models"
	"skillswap_back_end/internal/moderation"
	"skillswap_back_end/internal/services"
	"skillswap_back_end/internal/swap"
)

const (
	maxNameLen         = 50
	maxLocationLen     = 100
	maxIntroductionLen = 1000
)

// GetMyProfile retourne le profil complet de l'utilisateur connecté
func GetMyProfile(c *gin.Context) {
	userID := c.GetString("user_id")

	user, err := cache.GetUserFromCache(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":              user,
		"isProfileComplete": user.IsProfileComplete(),
	})
}

// UpdateMyProfile met à jour le profil de l'utilisateur connecté.
// Les compétences envoyées repartent approuvées : la modération repasse
// derrière si besoin.
func UpdateMyProfile(c *gin.Context) {
	userID := c.GetString("user_id")

	var req struct {
		Name          *string              `json:"name"`
		Location      *string              `json:"location"`
		Introduction  *string              `json:"introduction"`
		SkillsOffered *[]models.Skill      `json:"skillsOffered"`
		SkillsWanted  *[]models.Skill      `json:"skillsWanted"`
		Availability  *models.Availability `json:"availability"`
		IsPublic      *bool                `json:"isPublic"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	user, err := userRepo.FindByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Location != nil {
		user.Location = *req.Location
	}
	if req.Introduction != nil {
		user.Introduction = *req.Introduction
	}
	if req.SkillsOffered != nil {
		user.SkillsOffered = approveAll(*req.SkillsOffered)
	}
	if req.SkillsWanted != nil {
		user.SkillsWanted = approveAll(*req.SkillsWanted)
	}
	if req.Availability != nil {
		user.Availability = *req.Availability
	}
	if req.IsPublic != nil {
		user.IsPublic = *req.IsPublic
	}

	if err := validateProfile(user); err != nil {
		respondError(c, err)
		return
	}

	now := time.Now().UTC()
	user.LastActive = now
	user.UpdatedAt = now

	if err := userRepo.Save(c.Request.Context(), user); err != nil {
		respondError(c, err)
		return
	}

	log.Printf("✅ Profil mis à jour: %s", userID)
	go services.IndexUser(*user)

	c.JSON(http.StatusOK, gin.H{
		"message":           "Profil mis à jour",
		"user":              user,
		"isProfileComplete": user.IsProfileComplete(),
	})
}

// GetUserByID retourne le profil publiable d'un utilisateur
func GetUserByID(c *gin.Context) {
	viewerID := c.GetString("user_id")
	targetID := c.Param("id")

	user, err := cache.GetUserFromCache(c.Request.Context(), targetID)
	if err != nil {
		respondError(c, err)
		return
	}

	if viewerID == targetID {
		c.JSON(http.StatusOK, gin.H{"user": user})
		return
	}
	if user.IsBanned {
		c.JSON(http.StatusNotFound, gin.H{"error": "Utilisateur introuvable"})
		return
	}
	if !user.IsPublic {
		c.JSON(http.StatusForbidden, gin.H{"error": "Ce profil est privé"})
		return
	}

	listing := moderation.ListingProfile(*user)
	listing.Email = ""
	c.JSON(http.StatusOK, gin.H{"user": listing})
}

// GetPublicUsers liste les profils publics avec filtres optionnels
// (?skill=, ?location=, ?page=, ?limit=)
func GetPublicUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > swap.MaxPageLimit {
		limit = swap.DefaultPageLimit
	}

	users, total, err := userRepo.ListPublic(c.Request.Context(),
		c.Query("skill"), c.Query("location"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	listings := make([]models.User, 0, len(users))
	for _, u := range users {
		listing := moderation.ListingProfile(u)
		listing.Email = ""
		listings = append(listings, listing)
	}

	c.JSON(http.StatusOK, gin.H{
		"users": listings,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// SearchUsers interroge Elasticsearch, avec repli sur le parcours ScyllaDB
// quand l'index est injoignable
func SearchUsers(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètre q requis"})
		return
	}

	results, err := services.SearchUsers(query)
	if err != nil {
		log.Printf("⚠️ Recherche Elastic indisponible, repli ScyllaDB: %v", err)
		users, total, err := userRepo.ListPublic(c.Request.Context(), query, "", 1, swap.MaxPageLimit)
		if err != nil {
			respondError(c, err)
			return
		}
		listings := make([]models.User, 0, len(users))
		for _, u := range users {
			listing := moderation.ListingProfile(u)
			listing.Email = ""
			listings = append(listings, listing)
		}
		c.JSON(http.StatusOK, gin.H{"users": listings, "total": total, "source": "scylla"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": results, "total": len(results), "source": "elastic"})
}

func approveAll(skills []models.Skill) []models.Skill {
	for i := range skills {
		skills[i].IsApproved = true
	}
	return skills
}

func validateProfile(u *models.User) error {
	if u.Name == "" {
		return apperrors.Validation("le nom est obligatoire")
	}
	if utf8.RuneCountInString(u.Name) > maxNameLen {
		return apperrors.Validation("le nom ne peut pas dépasser 50 caractères")
	}
	if utf8.RuneCountInString(u.Location) > maxLocationLen {
		return apperrors.Validation("la localisation ne peut pas dépasser 100 caractères")
	}
	if utf8.RuneCountInString(u.Introduction) > maxIntroductionLen {
		return apperrors.Validation("la présentation ne peut pas dépasser 1000 caractères")
	}
	for _, s := range append(u.SkillsOffered, u.SkillsWanted...) {
		if s.Name == "" {
			return apperrors.Validation("chaque compétence doit avoir un nom")
		}
		if !s.Level.Valid() {
			return apperrors.Validation("niveau de compétence invalide (beginner, intermediate, advanced ou expert)")
		}
		if utf8.RuneCountInString(s.Description) > swap.MaxSkillDescLen {
			return apperrors.Validation("la description d'une compétence ne peut pas dépasser 500 caractères")
		}
	}
	return nil
}
