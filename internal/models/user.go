package models

import "time"

// Niveaux de compétence autorisés
type SkillLevel string

const (
	LevelBeginner     SkillLevel = "beginner"
	LevelIntermediate SkillLevel = "intermediate"
	LevelAdvanced     SkillLevel = "advanced"
	LevelExpert       SkillLevel = "expert"
)

func (l SkillLevel) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced, LevelExpert:
		return true
	}
	return false
}

// Skill est une compétence typée, offerte ou recherchée par un utilisateur.
// IsApproved est géré par la modération (true par défaut) : une compétence
// refusée reste sur le profil mais sort des listings publics.
type Skill struct {
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description,omitempty" db:"description"`
	Level       SkillLevel `json:"level" db:"level"`
	IsApproved  bool       `json:"isApproved" db:"is_approved"`
}

type Availability struct {
	Weekdays       bool   `json:"weekdays"`
	Weekends       bool   `json:"weekends"`
	Evenings       bool   `json:"evenings"`
	CustomSchedule string `json:"customSchedule,omitempty"`
}

// Rating est l'agrégat matérialisé (moyenne + nombre de contributions).
// Ce n'est pas une source de vérité : il doit toujours être recalculable
// depuis les avis visibles et les feedbacks de swap journalisés.
type Rating struct {
	Average float64 `json:"average" db:"rating_average"`
	Count   int     `json:"count" db:"rating_count"`
}

type User struct {
	ID            string       `json:"user_id" db:"user_id"`
	Name          string       `json:"name" db:"name"`
	Email         string       `json:"email" db:"email"`
	Location      string       `json:"location,omitempty" db:"location"`
	Introduction  string       `json:"introduction,omitempty" db:"introduction"`
	SkillsOffered []Skill      `json:"skillsOffered"`
	SkillsWanted  []Skill      `json:"skillsWanted"`
	Availability  Availability `json:"availability"`
	IsPublic      bool         `json:"isPublic" db:"is_public"`
	Role          string       `json:"role,omitempty" db:"role"`
	IsBanned      bool         `json:"isBanned" db:"is_banned"`
	Rating        Rating       `json:"rating"`
	LastActive    time.Time    `json:"lastActive" db:"last_active"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" db:"updated_at"`
}

// IsProfileComplete indique si le profil peut apparaître dans le matching
func (u *User) IsProfileComplete() bool {
	return u.Name != "" && u.Email != "" &&
		len(u.SkillsOffered) > 0 && len(u.SkillsWanted) > 0 &&
		u.Introduction != ""
}
