package models

import "time"

// Statuts d'une demande de swap
type SwapStatus string

const (
	SwapPending   SwapStatus = "pending"
	SwapAccepted  SwapStatus = "accepted"
	SwapRejected  SwapStatus = "rejected"
	SwapCancelled SwapStatus = "cancelled"
	SwapCompleted SwapStatus = "completed"
)

func (s SwapStatus) Valid() bool {
	switch s {
	case SwapPending, SwapAccepted, SwapRejected, SwapCancelled, SwapCompleted:
		return true
	}
	return false
}

// Terminal : plus aucune transition possible depuis ce statut
func (s SwapStatus) Terminal() bool {
	switch s {
	case SwapRejected, SwapCancelled, SwapCompleted:
		return true
	}
	return false
}

// CanTransition définit la machine à états :
// pending → {accepted, rejected, cancelled}, accepted → completed.
// Jamais en arrière, jamais de saut.
func CanTransition(from, to SwapStatus) bool {
	switch from {
	case SwapPending:
		return to == SwapAccepted || to == SwapRejected || to == SwapCancelled
	case SwapAccepted:
		return to == SwapCompleted
	}
	return false
}

// Feedback est la note laissée par un participant après un swap terminé.
// Chaque participant dispose de son propre emplacement, utilisable une
// seule fois.
type Feedback struct {
	Rating  int       `json:"rating" db:"rating"`
	Comment string    `json:"comment,omitempty" db:"comment"`
	GivenBy string    `json:"givenBy" db:"given_by"`
	GivenAt time.Time `json:"givenAt" db:"given_at"`
}

type SwapRequest struct {
	ID                string     `json:"id" db:"swap_id"`
	RequesterID       string     `json:"requesterId" db:"requester_id"`
	RecipientID       string     `json:"recipientId" db:"recipient_id"`
	SkillOffered      Skill      `json:"skillOffered"`
	SkillRequested    Skill      `json:"skillRequested"`
	Status            SwapStatus `json:"status" db:"status"`
	Message           string     `json:"message,omitempty" db:"message"`
	ProposedSchedule  string     `json:"proposedSchedule,omitempty" db:"proposed_schedule"`
	RequesterFeedback *Feedback  `json:"requesterFeedback,omitempty"`
	RecipientFeedback *Feedback  `json:"recipientFeedback,omitempty"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

func (s *SwapRequest) IsParticipant(userID string) bool {
	return userID == s.RequesterID || userID == s.RecipientID
}

// OtherParticipant retourne l'autre partie du swap ("" si userID n'en fait
// pas partie)
func (s *SwapRequest) OtherParticipant(userID string) string {
	switch userID {
	case s.RequesterID:
		return s.RecipientID
	case s.RecipientID:
		return s.RequesterID
	}
	return ""
}

// FeedbackFrom retourne le feedback déjà laissé par ce participant, nil sinon
func (s *SwapRequest) FeedbackFrom(userID string) *Feedback {
	if s.RequesterFeedback != nil && s.RequesterFeedback.GivenBy == userID {
		return s.RequesterFeedback
	}
	if s.RecipientFeedback != nil && s.RecipientFeedback.GivenBy == userID {
		return s.RecipientFeedback
	}
	return nil
}
