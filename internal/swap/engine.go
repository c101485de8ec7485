// Package swap porte la machine à états d'une demande de swap entre deux
// utilisateurs. Toute mutation est un compare-and-swap sur le statut : en
// cas de course, le perdant reçoit une erreur InvalidState/Conflict, jamais
// d'écrasement silencieux.
package swap

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"skillswap_back_end/internal/apperrors"
	"skillswap_back_end/internal/moderation"
	"skillswap_back_end/internal/models"
)

const (
	MaxMessageLen    = 1000
	MaxScheduleLen   = 200
	MaxCommentLen    = 500
	MaxSkillDescLen  = 500
	DefaultPageLimit = 10
	MaxPageLimit     = 50
)

// Types de listing
const (
	KindSent     = "sent"
	KindReceived = "received"
	KindAll      = "all"
)

// Store est le contrat de persistance du moteur. Les méthodes de mutation
// sont conditionnelles : applied=false signifie que l'état attendu n'était
// plus là (course perdue ou doublon).
type Store interface {
	Get(ctx context.Context, swapID string) (*models.SwapRequest, error)
	// InsertPending crée la demande si aucune demande pending n'existe
	// pour la paire ordonnée (requester, recipient)
	InsertPending(ctx context.Context, s *models.SwapRequest) (bool, error)
	CompareAndSwapStatus(ctx context.Context, swapID string, from, to models.SwapStatus, at time.Time) (bool, error)
	// AttachFeedback écrit l'emplacement de feedback du côté demandé,
	// seulement si le swap est completed et l'emplacement encore vide
	AttachFeedback(ctx context.Context, swapID string, asRequester bool, fb models.Feedback) (bool, error)
	ListForUser(ctx context.Context, userID string, status models.SwapStatus, kind string, page, limit int) ([]models.SwapRequest, int, error)
	// ListAll parcourt toutes les demandes de la plateforme (modération)
	ListAll(ctx context.Context, status models.SwapStatus, page, limit int) ([]models.SwapRequest, int, error)
}

type UserDirectory interface {
	FindByID(ctx context.Context, userID string) (*models.User, error)
}

// FeedbackRecorder reçoit la note à destination de l'autre participant
// après un feedback accepté (journalisation + repli dans l'agrégat)
type FeedbackRecorder interface {
	RecordSwapFeedback(ctx context.Context, targetID, swapID, givenBy string, rating int) error
}

type Engine struct {
	store    Store
	users    UserDirectory
	feedback FeedbackRecorder
}

func NewEngine(store Store, users UserDirectory, feedback FeedbackRecorder) *Engine {
	return &Engine{store: store, users: users, feedback: feedback}
}

type CreateInput struct {
	RequesterID      string
	RecipientID      string
	SkillOffered     models.Skill
	SkillRequested   models.Skill
	Message          string
	ProposedSchedule string
}

// Create ouvre une demande en statut pending après passage par la
// modération des deux participants
func (e *Engine) Create(ctx context.Context, in CreateInput) (*models.SwapRequest, error) {
	if in.RequesterID == in.RecipientID {
		return nil, apperrors.Validation("impossible de s'envoyer une demande à soi-même")
	}
	if err := validateSkill(in.SkillOffered, "compétence offerte"); err != nil {
		return nil, err
	}
	if err := validateSkill(in.SkillRequested, "compétence recherchée"); err != nil {
		return nil, err
	}
	// limites en caractères, pas en octets (messages accentués)
	if utf8.RuneCountInString(in.Message) > MaxMessageLen {
		return nil, apperrors.Validation("le message ne peut pas dépasser 1000 caractères")
	}
	if utf8.RuneCountInString(in.ProposedSchedule) > MaxScheduleLen {
		return nil, apperrors.Validation("le créneau proposé ne peut pas dépasser 200 caractères")
	}

	requester, err := e.users.FindByID(ctx, in.RequesterID)
	if err != nil {
		return nil, err
	}
	if !moderation.CanInteract(requester) {
		return nil, apperrors.Forbidden("votre compte ne permet pas d'envoyer de demandes")
	}

	recipient, err := e.users.FindByID(ctx, in.RecipientID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, apperrors.NotFound("destinataire introuvable")
		}
		return nil, err
	}
	if !moderation.CanBeTarget(recipient) {
		// un compte banni n'est pas sondable : même réponse qu'un compte absent
		if recipient.IsBanned {
			return nil, apperrors.NotFound("destinataire introuvable")
		}
		return nil, apperrors.Forbidden("impossible d'envoyer une demande à un profil privé")
	}

	now := time.Now().UTC()
	s := &models.SwapRequest{
		ID:               uuid.NewString(),
		RequesterID:      in.RequesterID,
		RecipientID:      in.RecipientID,
		SkillOffered:     in.SkillOffered,
		SkillRequested:   in.SkillRequested,
		Status:           models.SwapPending,
		Message:          in.Message,
		ProposedSchedule: in.ProposedSchedule,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	applied, err := e.store.InsertPending(ctx, s)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, apperrors.Conflict("vous avez déjà une demande en attente avec cet utilisateur")
	}
	return s, nil
}

// Respond : seul le destinataire accepte ou refuse, uniquement depuis pending
func (e *Engine) Respond(ctx context.Context, swapID, actorID string, decision models.SwapStatus) (*models.SwapRequest, error) {
	if decision != models.SwapAccepted && decision != models.SwapRejected {
		return nil, apperrors.Validation("décision invalide : accepted ou rejected attendu")
	}
	s, err := e.store.Get(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if actorID != s.RecipientID {
		return nil, apperrors.Forbidden("seul le destinataire peut répondre à cette demande")
	}
	return e.transition(ctx, s, models.SwapPending, decision)
}

// Cancel : seul le demandeur annule, uniquement depuis pending
func (e *Engine) Cancel(ctx context.Context, swapID, actorID string) (*models.SwapRequest, error) {
	s, err := e.store.Get(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if actorID != s.RequesterID {
		return nil, apperrors.Forbidden("seul le demandeur peut annuler cette demande")
	}
	return e.transition(ctx, s, models.SwapPending, models.SwapCancelled)
}

// Complete : n'importe quel participant peut clôturer un swap accepté.
// Choix assumé : la complétion est unilatérale.
func (e *Engine) Complete(ctx context.Context, swapID, actorID string) (*models.SwapRequest, error) {
	s, err := e.store.Get(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if !s.IsParticipant(actorID) {
		return nil, apperrors.Forbidden("vous ne faites pas partie de ce swap")
	}
	return e.transition(ctx, s, models.SwapAccepted, models.SwapCompleted)
}

func (e *Engine) transition(ctx context.Context, s *models.SwapRequest, from, to models.SwapStatus) (*models.SwapRequest, error) {
	if !models.CanTransition(from, to) {
		return nil, apperrors.Validation(fmt.Sprintf("transition %s → %s interdite", from, to))
	}
	now := time.Now().UTC()
	applied, err := e.store.CompareAndSwapStatus(ctx, s.ID, from, to, now)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, apperrors.InvalidState(fmt.Sprintf("la demande n'est plus au statut %s", from))
	}
	s.Status = to
	s.UpdatedAt = now
	return s, nil
}

// AttachFeedback enregistre la note d'un participant sur un swap terminé,
// puis transmet la contribution à l'agrégateur pour l'AUTRE participant.
// Chaque participant ne peut déposer qu'un seul feedback.
func (e *Engine) AttachFeedback(ctx context.Context, swapID, actorID string, ratingValue int, comment string) (*models.SwapRequest, error) {
	if ratingValue < 1 || ratingValue > 5 {
		return nil, apperrors.Validation("la note doit être comprise entre 1 et 5")
	}
	if utf8.RuneCountInString(comment) > MaxCommentLen {
		return nil, apperrors.Validation("le commentaire ne peut pas dépasser 500 caractères")
	}

	s, err := e.store.Get(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if !s.IsParticipant(actorID) {
		return nil, apperrors.Forbidden("vous ne faites pas partie de ce swap")
	}
	if s.Status != models.SwapCompleted {
		return nil, apperrors.InvalidState("le feedback n'est possible que sur un swap terminé")
	}
	if s.FeedbackFrom(actorID) != nil {
		return nil, apperrors.Conflict("vous avez déjà laissé un feedback sur ce swap")
	}

	fb := models.Feedback{
		Rating:  ratingValue,
		Comment: comment,
		GivenBy: actorID,
		GivenAt: time.Now().UTC(),
	}
	asRequester := actorID == s.RequesterID
	applied, err := e.store.AttachFeedback(ctx, s.ID, asRequester, fb)
	if err != nil {
		return nil, err
	}
	if !applied {
		// course perdue : soit le statut a bougé, soit l'emplacement
		// vient d'être rempli, on relit pour trancher
		cur, err := e.store.Get(ctx, swapID)
		if err != nil {
			return nil, err
		}
		if cur.Status != models.SwapCompleted {
			return nil, apperrors.InvalidState("le feedback n'est possible que sur un swap terminé")
		}
		return nil, apperrors.Conflict("vous avez déjà laissé un feedback sur ce swap")
	}

	if asRequester {
		s.RequesterFeedback = &fb
	} else {
		s.RecipientFeedback = &fb
	}

	target := s.OtherParticipant(actorID)
	if err := e.feedback.RecordSwapFeedback(ctx, target, s.ID, actorID, ratingValue); err != nil {
		return nil, err
	}
	return s, nil
}

// Get : lecture réservée aux participants
func (e *Engine) Get(ctx context.Context, swapID, actorID string) (*models.SwapRequest, error) {
	s, err := e.store.Get(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if !s.IsParticipant(actorID) {
		return nil, apperrors.Forbidden("vous n'êtes pas autorisé à consulter cette demande")
	}
	return s, nil
}

// ListForUser liste les demandes envoyées et/ou reçues, les plus récentes
// d'abord. status vide = tous les statuts.
func (e *Engine) ListForUser(ctx context.Context, userID string, status models.SwapStatus, kind string, page, limit int) ([]models.SwapRequest, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, apperrors.Validation("statut de filtre invalide")
	}
	switch kind {
	case KindSent, KindReceived, KindAll:
	case "":
		kind = KindAll
	default:
		return nil, 0, apperrors.Validation("type de listing invalide : sent, received ou all attendu")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > MaxPageLimit {
		limit = DefaultPageLimit
	}
	return e.store.ListForUser(ctx, userID, status, kind, page, limit)
}

// ListAll liste toutes les demandes de la plateforme, les plus récentes
// d'abord. Réservé à la modération, le filtrage d'accès se fait en amont.
func (e *Engine) ListAll(ctx context.Context, status models.SwapStatus, page, limit int) ([]models.SwapRequest, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, apperrors.Validation("statut de filtre invalide")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > MaxPageLimit {
		limit = DefaultPageLimit
	}
	return e.store.ListAll(ctx, status, page, limit)
}

func validateSkill(s models.Skill, label string) error {
	if s.Name == "" {
		return apperrors.Validation(label + " : le nom est obligatoire")
	}
	if !s.Level.Valid() {
		return apperrors.Validation(label + " : niveau invalide (beginner, intermediate, advanced ou expert)")
	}
	if utf8.RuneCountInString(s.Description) > MaxSkillDescLen {
		return apperrors.Validation(label + " : la description ne peut pas dépasser 500 caractères")
	}
	return nil
}
