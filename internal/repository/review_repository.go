package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gocql/gocql"

	"skillswap_back_end/internal/apperrors"
	"skillswap_back_end/internal/database"
	"skillswap_back_end/internal/models"
)

// ReviewRepository est l'implémentation ScyllaDB du store d'avis.
// L'unicité (reviewer, cible) est garantie par reviews_by_pair + INSERT IF
// NOT EXISTS ; les mises à jour sont conditionnelles sur updated_at. Les
// tables reviews_by_user et reviews_by_reviewer portent une copie complète
// pour les listings, la table reviews fait foi.
type ReviewRepository struct{}

func NewReviewRepository() *ReviewRepository { return &ReviewRepository{} }

func (r *ReviewRepository) Get(ctx context.Context, reviewID string) (*models.Review, error) {
	rid, err := parseUUID(reviewID)
	if err != nil {
		return nil, err
	}
	session, err := database.GetSwapsSession()
	if err != nil {
		return nil, err
	}

	var (
		rev                    models.Review
		reviewerID, reviewedID gocql.UUID
	)
	err = session.Query(`SELECT reviewer_id, reviewed_user_id, rating, comment, skill_context,
		is_public, created_at, updated_at FROM reviews WHERE review_id = ?`, rid).
		WithContext(ctx).
		Scan(&reviewerID, &reviewedID, &rev.Rating, &rev.Comment, &rev.SkillContext,
			&rev.IsPublic, &rev.CreatedAt, &rev.UpdatedAt)
	if err == gocql.ErrNotFound {
		return nil, apperrors.NotFound("avis introuvable")
	}
	if err != nil {
		return nil, fmt.Errorf("erreur lecture avis: %v", err)
	}

	rev.ID = reviewID
	rev.ReviewerID = reviewerID.String()
	rev.ReviewedUserID = reviewedID.String()
	return &rev, nil
}

// InsertUnique réserve d'abord la paire (reviewer, cible), puis écrit
// l'avis et ses copies de listing. applied=false : avis déjà existant.
func (r *ReviewRepository) InsertUnique(ctx context.Context, rev *models.Review) (bool, error) {
	rid, err := parseUUID(rev.ID)
	if err != nil {
		return false, err
	}
	reviewerID, err := parseUUID(rev.ReviewerID)
	if err != nil {
		return false, err
	}
	reviewedID, err := parseUUID(rev.ReviewedUserID)
	if err != nil {
		return false, err
	}
	session, err := database.GetSwapsSession()
	if err != nil {
		return false, err
	}

	applied, err := session.Query(`INSERT INTO reviews_by_pair (reviewer_id, reviewed_user_id, review_id)
		VALUES (?, ?, ?) IF NOT EXISTS`, reviewerID, reviewedID, rid).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return false, fmt.Errorf("erreur réservation paire d'avis: %v", err)
	}
	if !applied {
		return false, nil
	}

	err = session.Query(`INSERT INTO reviews (review_id, reviewer_id, reviewed_user_id, rating,
		comment, skill_context, is_public, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rid, reviewerID, reviewedID, rev.Rating, rev.Comment, rev.SkillContext,
		rev.IsPublic, rev.CreatedAt, rev.UpdatedAt).
		WithContext(ctx).Exec()
	if err != nil {
		if derr := session.Query(`DELETE FROM reviews_by_pair WHERE reviewer_id = ? AND reviewed_user_id = ?`,
			reviewerID, reviewedID).WithContext(ctx).Exec(); derr != nil {
			log.Printf("⚠️ Paire d'avis orpheline %s → %s: %v", rev.ReviewerID, rev.ReviewedUserID, derr)
		}
		return false, fmt.Errorf("erreur création avis: %v", err)
	}

	r.writeListingCopies(ctx, session, rev, rid, reviewerID, reviewedID)
	return true, nil
}

// Update écrit conditionnellement sur l'updated_at relu par l'appelant.
// applied=false : un autre écrivain est passé entre-temps.
func (r *ReviewRepository) Update(ctx context.Context, rev *models.Review, expectedUpdatedAt time.Time) (bool, error) {
	rid, err := parseUUID(rev.ID)
	if err != nil {
		return false, err
	}
	session, err := database.GetSwapsSession()
	if err != nil {
		return false, err
	}

	applied, err := session.Query(`UPDATE reviews SET rating = ?, comment = ?, skill_context = ?, updated_at = ?
		WHERE review_id = ? IF updated_at = ?`,
		rev.Rating, rev.Comment, rev.SkillContext, rev.UpdatedAt, rid, expectedUpdatedAt).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return false, fmt.Errorf("erreur mise à jour avis: %v", err)
	}
	if !applied {
		return false, nil
	}

	reviewerID, _ := parseUUID(rev.ReviewerID)
	reviewedID, _ := parseUUID(rev.ReviewedUserID)
	r.writeListingCopies(ctx, session, rev, rid, reviewerID, reviewedID)
	return true, nil
}

func (r *ReviewRepository) Delete(ctx context.Context, rev *models.Review) error {
	rid, err := parseUUID(rev.ID)
	if err != nil {
		return err
	}
	reviewerID, err := parseUUID(rev.ReviewerID)
	if err != nil {
		return err
	}
	reviewedID, err := parseUUID(rev.ReviewedUserID)
	if err != nil {
		return err
	}
	session, err := database.GetSwapsSession()
	if err != nil {
		return err
	}

	if err := session.Query(`DELETE FROM reviews WHERE review_id = ?`, rid).
		WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("erreur suppression avis: %v", err)
	}
	if err := session.Query(`DELETE FROM reviews_by_pair WHERE reviewer_id = ? AND reviewed_user_id = ?`,
		reviewerID, reviewedID).WithContext(ctx).Exec(); err != nil {
		log.Printf("⚠️ Erreur libération paire d'avis: %v", err)
	}
	if err := session.Query(`DELETE FROM reviews_by_user WHERE reviewed_user_id = ? AND created_at = ? AND review_id = ?`,
		reviewedID, rev.CreatedAt, rid).WithContext(ctx).Exec(); err != nil {
		log.Printf("⚠️ Erreur suppression copie reviews_by_user: %v", err)
	}
	if err := session.Query(`DELETE FROM reviews_by_reviewer WHERE reviewer_id = ? AND created_at = ? AND review_id = ?`,
		reviewerID, rev.CreatedAt, rid).WithContext(ctx).Exec(); err != nil {
		log.Printf("⚠️ Erreur suppression copie reviews_by_reviewer: %v", err)
	}
	return nil
}

// ListForUser retourne les avis visibles d'une cible, les plus récents
// d'abord (ordre de clustering de la partition)
func (r *ReviewRepository) ListForUser(ctx context.Context, targetID string, page, limit int) ([]models.Review, int, error) {
	reviewedID, err := parseUUID(targetID)
	if err != nil {
		return nil, 0, err
	}
	session, err := database.GetSwapsSession()
	if err != nil {
		return nil, 0, err
	}

	iter := session.Query(`SELECT review_id, reviewer_id, rating, comment, skill_context, is_public,
		created_at, updated_at FROM reviews_by_user WHERE reviewed_user_id = ?`, reviewedID).
		WithContext(ctx).Iter()

	var all []models.Review
	var (
		rid, reviewerID gocql.UUID
		rev             models.Review
	)
	for iter.Scan(&rid, &reviewerID, &rev.Rating, &rev.Comment, &rev.SkillContext, &rev.IsPublic,
		&rev.CreatedAt, &rev.UpdatedAt) {
		if !rev.IsPublic {
			rev = models.Review{}
			continue
		}
		rev.ID = rid.String()
		rev.ReviewerID = reviewerID.String()
		rev.ReviewedUserID = targetID
		all = append(all, rev)
		rev = models.Review{}
	}
	if err := iter.Close(); err != nil {
		return nil, 0, fmt.Errorf("erreur parcours avis: %v", err)
	}

	return paginateReviews(all, page, limit), len(all), nil
}

func (r *ReviewRepository) ListByReviewer(ctx context.Context, reviewerID string, page, limit int) ([]models.Review, int, error) {
	rvID, err := parseUUID(reviewerID)
	if err != nil {
		return nil, 0, err
	}
	session, err := database.GetSwapsSession()
	if err != nil {
		return nil, 0, err
	}

	iter := session.Query(`SELECT review_id, reviewed_user_id, rating, comment, skill_context, is_public,
		created_at, updated_at FROM reviews_by_reviewer WHERE reviewer_id = ?`, rvID).
		WithContext(ctx).Iter()

	var all []models.Review
	var (
		rid, reviewedID gocql.UUID
		rev             models.Review
	)
	for iter.Scan(&rid, &reviewedID, &rev.Rating, &rev.Comment, &rev.SkillContext, &rev.IsPublic,
		&rev.CreatedAt, &rev.UpdatedAt) {
		rev.ID = rid.String()
		rev.ReviewerID = reviewerID
		rev.ReviewedUserID = reviewedID.String()
		all = append(all, rev)
		rev = models.Review{}
	}
	if err := iter.Close(); err != nil {
		return nil, 0, fmt.Errorf("erreur parcours avis: %v", err)
	}

	return paginateReviews(all, page, limit), len(all), nil
}

func (r *ReviewRepository) FindByPair(ctx context.Context, reviewerID, targetID string) (*models.Review, error) {
	rvID, err := parseUUID(reviewerID)
	if err != nil {
		return nil, err
	}
	reviewedID, err := parseUUID(targetID)
	if err != nil {
		return nil, err
	}
	session, err := database.GetSwapsSession()
	if err != nil {
		return nil, err
	}

	var rid gocql.UUID
	err = session.Query(`SELECT review_id FROM reviews_by_pair WHERE reviewer_id = ? AND reviewed_user_id = ?`,
		rvID, reviewedID).WithContext(ctx).Scan(&rid)
	if err == gocql.ErrNotFound {
		return nil, apperrors.NotFound("avis introuvable")
	}
	if err != nil {
		return nil, fmt.Errorf("erreur recherche paire d'avis: %v", err)
	}
	return r.Get(ctx, rid.String())
}

// VisibleReviewRatings alimente le recalcul d'agrégat : les notes de tous
// les avis actuellement visibles de la cible
func (r *ReviewRepository) VisibleReviewRatings(ctx context.Context, targetID string) ([]int, error) {
	reviewedID, err := parseUUID(targetID)
	if err != nil {
		return nil, err
	}
	session, err := database.GetSwapsSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(`SELECT rating, is_public FROM reviews_by_user WHERE reviewed_user_id = ?`, reviewedID).
		WithContext(ctx).Iter()

	var ratings []int
	var (
		value    int
		isPublic bool
	)
	for iter.Scan(&value, &isPublic) {
		if isPublic {
			ratings = append(ratings, value)
		}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("erreur lecture notes: %v", err)
	}
	return ratings, nil
}

func (r *ReviewRepository) writeListingCopies(ctx context.Context, session *gocql.Session, rev *models.Review, rid, reviewerID, reviewedID gocql.UUID) {
	err := session.Query(`INSERT INTO reviews_by_user (reviewed_user_id, created_at, review_id, reviewer_id,
		rating, comment, skill_context, is_public, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reviewedID, rev.CreatedAt, rid, reviewerID, rev.Rating, rev.Comment,
		rev.SkillContext, rev.IsPublic, rev.UpdatedAt).
		WithContext(ctx).Exec()
	if err != nil {
		log.Printf("⚠️ Erreur copie reviews_by_user: %v", err)
	}

	err = session.Query(`INSERT INTO reviews_by_reviewer (reviewer_id, created_at, review_id, reviewed_user_id,
		rating, comment, skill_context, is_public, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reviewerID, rev.CreatedAt, rid, reviewedID, rev.Rating, rev.Comment,
		rev.SkillContext, rev.IsPublic, rev.UpdatedAt).
		WithContext(ctx).Exec()
	if err != nil {
		log.Printf("⚠️ Erreur copie reviews_by_reviewer: %v", err)
	}
}

func paginateReviews(reviews []models.Review, page, limit int) []models.Review {
	start := (page - 1) * limit
	if start >= len(reviews) {
		return nil
	}
	end := start + limit
	if end > len(reviews) {
		end = len(reviews)
	}
	return reviews[start:end]
}
