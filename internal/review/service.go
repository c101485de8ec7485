// Package review gère les avis durables entre utilisateurs. Chaque
// mutation est suivie d'un recalcul complet de l'agrégat de la cible :
// le déclenchement est explicite dans le flot de contrôle, pas caché dans
// un hook de persistance.
package review

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"skillswap_back_end/internal/apperrors"
	"skillswap_back_end/internal/moderation"
	"skillswap_back_end/internal/models"
)

const (
	MaxCommentLen      = 500
	MaxSkillContextLen = 100
	DefaultPageLimit   = 10
	MaxPageLimit       = 50
)

// Store : persistance des avis. InsertUnique échoue (applied=false) si le
// reviewer a déjà noté cette cible ; Update est conditionnel sur
// l'updated_at relu pour sérialiser les écritures concurrentes.
type Store interface {
	Get(ctx context.Context, reviewID string) (*models.Review, error)
	InsertUnique(ctx context.Context, r *models.Review) (bool, error)
	Update(ctx context.Context, r *models.Review, expectedUpdatedAt time.Time) (bool, error)
	Delete(ctx context.Context, r *models.Review) error
	ListForUser(ctx context.Context, targetID string, page, limit int) ([]models.Review, int, error)
	ListByReviewer(ctx context.Context, reviewerID string, page, limit int) ([]models.Review, int, error)
	FindByPair(ctx context.Context, reviewerID, targetID string) (*models.Review, error)
}

type UserDirectory interface {
	FindByID(ctx context.Context, userID string) (*models.User, error)
}

// Recomputer recalcule l'agrégat de la cible après chaque mutation
type Recomputer interface {
	RecomputeFromReviews(ctx context.Context, targetID string) error
}

type Service struct {
	store   Store
	users   UserDirectory
	ratings Recomputer
}

func NewService(store Store, users UserDirectory, ratings Recomputer) *Service {
	return &Service{store: store, users: users, ratings: ratings}
}

type CreateInput struct {
	ReviewerID     string
	ReviewedUserID string
	Rating         int
	Comment        string
	SkillContext   string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Review, error) {
	if err := validate(in.Rating, in.Comment, in.SkillContext); err != nil {
		return nil, err
	}
	if in.Comment == "" {
		return nil, apperrors.Validation("le commentaire est obligatoire")
	}
	if in.ReviewerID == in.ReviewedUserID {
		return nil, apperrors.Validation("vous ne pouvez pas laisser un avis sur vous-même")
	}

	target, err := s.users.FindByID(ctx, in.ReviewedUserID)
	if err != nil {
		return nil, err
	}
	if target.IsBanned {
		return nil, apperrors.NotFound("utilisateur introuvable")
	}
	if !moderation.CanBeTarget(target) {
		return nil, apperrors.Forbidden("impossible de laisser un avis sur un profil privé")
	}

	now := time.Now().UTC()
	r := &models.Review{
		ID:             uuid.NewString(),
		ReviewerID:     in.ReviewerID,
		ReviewedUserID: in.ReviewedUserID,
		Rating:         in.Rating,
		Comment:        in.Comment,
		SkillContext:   in.SkillContext,
		IsPublic:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	applied, err := s.store.InsertUnique(ctx, r)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, apperrors.Conflict("vous avez déjà laissé un avis sur cet utilisateur")
	}

	if err := s.ratings.RecomputeFromReviews(ctx, in.ReviewedUserID); err != nil {
		return nil, err
	}
	return r, nil
}

type UpdateInput struct {
	Rating       *int
	Comment      *string
	SkillContext *string
}

// Update modifie un avis existant (propriétaire uniquement). L'écriture est
// optimiste : si l'avis a bougé entre la relecture et l'écriture,
// l'appelant reçoit Conflict et doit relire.
func (s *Service) Update(ctx context.Context, reviewID, actorID string, in UpdateInput) (*models.Review, error) {
	r, err := s.store.Get(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if r.ReviewerID != actorID {
		return nil, apperrors.Forbidden("vous n'êtes pas l'auteur de cet avis")
	}

	expected := r.UpdatedAt
	if in.Rating != nil {
		r.Rating = *in.Rating
	}
	if in.Comment != nil {
		r.Comment = *in.Comment
	}
	if in.SkillContext != nil {
		r.SkillContext = *in.SkillContext
	}
	if err := validate(r.Rating, r.Comment, r.SkillContext); err != nil {
		return nil, err
	}
	if r.Comment == "" {
		return nil, apperrors.Validation("le commentaire est obligatoire")
	}
	r.UpdatedAt = time.Now().UTC()

	applied, err := s.store.Update(ctx, r, expected)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, apperrors.Conflict("l'avis a été modifié entre-temps, rechargez-le")
	}

	if err := s.ratings.RecomputeFromReviews(ctx, r.ReviewedUserID); err != nil {
		return nil, err
	}
	return r, nil
}

// Delete supprime un avis (propriétaire uniquement) puis recalcule
// l'agrégat de la cible, y compris quand la suppression vide l'ensemble
func (s *Service) Delete(ctx context.Context, reviewID, actorID string) error {
	r, err := s.store.Get(ctx, reviewID)
	if err != nil {
		return err
	}
	if r.ReviewerID != actorID {
		return apperrors.Forbidden("vous n'êtes pas l'auteur de cet avis")
	}
	if err := s.store.Delete(ctx, r); err != nil {
		return err
	}
	return s.ratings.RecomputeFromReviews(ctx, r.ReviewedUserID)
}

// ListForUser retourne les avis visibles d'une cible. Un profil privé
// n'est consultable que par lui-même.
func (s *Service) ListForUser(ctx context.Context, targetID, viewerID string, page, limit int) ([]models.Review, int, error) {
	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return nil, 0, err
	}
	if !target.IsPublic && viewerID != targetID {
		return nil, 0, apperrors.Forbidden("impossible de consulter les avis d'un profil privé")
	}
	page, limit = clampPage(page, limit)
	return s.store.ListForUser(ctx, targetID, page, limit)
}

func (s *Service) ListByReviewer(ctx context.Context, reviewerID string, page, limit int) ([]models.Review, int, error) {
	page, limit = clampPage(page, limit)
	return s.store.ListByReviewer(ctx, reviewerID, page, limit)
}

// CanReview indique si reviewerID peut encore noter targetID, avec la
// raison du refus le cas échéant
func (s *Service) CanReview(ctx context.Context, reviewerID, targetID string) (bool, string, error) {
	if reviewerID == targetID {
		return false, "vous ne pouvez pas laisser un avis sur vous-même", nil
	}
	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return false, "utilisateur introuvable", nil
		}
		return false, "", err
	}
	if !moderation.CanBeTarget(target) {
		return false, "impossible de laisser un avis sur ce profil", nil
	}
	existing, err := s.store.FindByPair(ctx, reviewerID, targetID)
	if err != nil && !apperrors.IsKind(err, apperrors.KindNotFound) {
		return false, "", err
	}
	if existing != nil {
		return false, "vous avez déjà laissé un avis sur cet utilisateur", nil
	}
	return true, "", nil
}

func validate(ratingValue int, comment, skillContext string) error {
	if ratingValue < 1 || ratingValue > 5 {
		return apperrors.Validation("la note doit être comprise entre 1 et 5")
	}
	// limites en caractères, pas en octets (commentaires accentués)
	if utf8.RuneCountInString(comment) > MaxCommentLen {
		return apperrors.Validation("le commentaire ne peut pas dépasser 500 caractères")
	}
	if utf8.RuneCountInString(skillContext) > MaxSkillContextLen {
		return apperrors.Validation("le contexte de compétence ne peut pas dépasser 100 caractères")
	}
	return nil
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > MaxPageLimit {
		limit = DefaultPageLimit
	}
	return page, limit
}
