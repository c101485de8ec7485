// Package moderation est le garde‑fou consulté avant tout changement
// d'état : prédicats purs sur les flags de modération, aucune mutation.
package moderation

import "skillswap_back_end/internal/models"

// CanInteract : un utilisateur banni ne peut initier aucune action
func CanInteract(u *models.User) bool {
	return u != nil && !u.IsBanned
}

// CanBeTarget : être destinataire d'un swap ou d'un avis exige un profil
// public et non banni
func CanBeTarget(u *models.User) bool {
	return u != nil && !u.IsBanned && u.IsPublic
}

// ApprovedSkills filtre les compétences refusées par la modération.
// C'est un filtre de listing : les compétences refusées restent stockées
// sur le profil.
func ApprovedSkills(skills []models.Skill) []models.Skill {
	out := make([]models.Skill, 0, len(skills))
	for _, s := range skills {
		if s.IsApproved {
			out = append(out, s)
		}
	}
	return out
}

// ListingProfile retourne une copie du profil prête pour les listings
// publics : compétences offertes filtrées par ApprovedSkills
func ListingProfile(u models.User) models.User {
	u.SkillsOffered = ApprovedSkills(u.SkillsOffered)
	return u
}
