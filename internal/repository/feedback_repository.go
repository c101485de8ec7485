package repository

import (
	"context"
	"fmt"
	"time"

	"skillswap_back_end/internal/database"
)

// FeedbackRepository journalise les retours post-échange dans
// swap_feedback_by_user, une ligne par retour reçu, partitionnée par cible.
// C'est la deuxième source du recalcul d'agrégat à côté des avis.
type FeedbackRepository struct{}

func NewFeedbackRepository() *FeedbackRepository { return &FeedbackRepository{} }

func (r *FeedbackRepository) Append(ctx context.Context, targetID, swapID, givenBy string, rating int, at time.Time) error {
	tgt, err := parseUUID(targetID)
	if err != nil {
		return err
	}
	sid, err := parseUUID(swapID)
	if err != nil {
		return err
	}
	author, err := parseUUID(givenBy)
	if err != nil {
		return err
	}
	session, err := database.GetSwapsSession()
	if err != nil {
		return err
	}

	// (swap_id, given_by) en clustering : réécrire la même ligne est
	// idempotent, le journal ne peut pas compter un retour deux fois
	err = session.Query(`INSERT INTO swap_feedback_by_user (reviewed_user_id, swap_id, given_by, rating, created_at)
		VALUES (?, ?, ?, ?, ?)`, tgt, sid, author, rating, at).
		WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("erreur journal retours: %v", err)
	}
	return nil
}

func (r *FeedbackRepository) Ratings(ctx context.Context, targetID string) ([]int, error) {
	tgt, err := parseUUID(targetID)
	if err != nil {
		return nil, err
	}
	session, err := database.GetSwapsSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(`SELECT rating FROM swap_feedback_by_user WHERE reviewed_user_id = ?`, tgt).
		WithContext(ctx).Iter()

	var ratings []int
	var value int
	for iter.Scan(&value) {
		ratings = append(ratings, value)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("erreur lecture journal retours: %v", err)
	}
	return ratings, nil
}
