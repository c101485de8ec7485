package models

import "time"

// Review est un avis durable laissé sur un profil, indépendant d'un swap.
// Un reviewer ne peut laisser qu'un seul avis par utilisateur cible.
type Review struct {
	ID             string    `json:"id" db:"review_id"`
	ReviewerID     string    `json:"reviewerId" db:"reviewer_id"`
	ReviewedUserID string    `json:"reviewedUserId" db:"reviewed_user_id"`
	Rating         int       `json:"rating" db:"rating"` // 1-5
	Comment        string    `json:"comment" db:"comment"`
	SkillContext   string    `json:"skillContext,omitempty" db:"skill_context"`
	IsPublic       bool      `json:"isPublic" db:"is_public"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
