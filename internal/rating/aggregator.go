// Package rating maintient l'agrégat {moyenne, count} stocké sur chaque
// utilisateur. Source canonique : l'union des avis visibles et des
// feedbacks de swap journalisés. Le chemin incrémental n'est qu'un
// raccourci dont le recalcul complet reproduit exactement le résultat.
package rating

import (
	"context"
	"fmt"
	"time"

	"skillswap_back_end/internal/apperrors"
)

// Snapshot est l'agrégat matérialisé relu/écrit sur l'utilisateur
type Snapshot struct {
	Average float64
	Count   int
}

// ReviewSource expose les notes des avis actuellement visibles d'une cible
type ReviewSource interface {
	VisibleReviewRatings(ctx context.Context, targetID string) ([]int, error)
}

// FeedbackJournal conserve une ligne par feedback de swap accepté, pour
// que le recalcul complet couvre aussi ces contributions
type FeedbackJournal interface {
	Append(ctx context.Context, targetID, swapID, givenBy string, ratingValue int, at time.Time) error
	Ratings(ctx context.Context, targetID string) ([]int, error)
}

// IdentityStore écrit l'agrégat sur l'utilisateur. CompareAndSetRating est
// conditionnel sur le count courant : applied=false signale une écriture
// concurrente.
type IdentityStore interface {
	CurrentRating(ctx context.Context, userID string) (Snapshot, error)
	ApplyRatingUpdate(ctx context.Context, userID string, s Snapshot) error
	CompareAndSetRating(ctx context.Context, userID string, old, updated Snapshot) (bool, error)
}

type Aggregator struct {
	reviews    ReviewSource
	journal    FeedbackJournal
	identities IdentityStore
}

func NewAggregator(reviews ReviewSource, journal FeedbackJournal, identities IdentityStore) *Aggregator {
	return &Aggregator{reviews: reviews, journal: journal, identities: identities}
}

// RecomputeFromReviews recalcule l'agrégat depuis l'ensemble complet des
// contributions visibles et l'écrit en bloc. Idempotent : deux appels
// successifs sans écriture intermédiaire donnent le même résultat.
func (a *Aggregator) RecomputeFromReviews(ctx context.Context, targetID string) error {
	reviewRatings, err := a.reviews.VisibleReviewRatings(ctx, targetID)
	if err != nil {
		return err
	}
	feedbackRatings, err := a.journal.Ratings(ctx, targetID)
	if err != nil {
		return err
	}

	total := 0
	count := 0
	for _, r := range append(reviewRatings, feedbackRatings...) {
		if r < 1 || r > 5 {
			return apperrors.Integrity(fmt.Sprintf("note hors limites persistée pour %s : %d", targetID, r))
		}
		total += r
		count++
	}

	snap := Snapshot{Count: count}
	if count > 0 {
		snap.Average = float64(total) / float64(count)
	}
	return a.identities.ApplyRatingUpdate(ctx, targetID, snap)
}

// FoldIncremental replie une nouvelle note dans l'agrégat existant :
// newAverage = (oldAverage*oldCount + rating) / (oldCount+1).
// L'écriture est conditionnelle ; si elle perd la course contre une autre
// mutation, on retombe sur le recalcul complet qui fait foi.
func (a *Aggregator) FoldIncremental(ctx context.Context, targetID string, ratingValue int) error {
	if ratingValue < 1 || ratingValue > 5 {
		return apperrors.Validation("la note doit être comprise entre 1 et 5")
	}

	cur, err := a.identities.CurrentRating(ctx, targetID)
	if err != nil {
		return err
	}
	if cur.Count < 0 {
		return apperrors.Integrity(fmt.Sprintf("compteur de notes négatif persisté pour %s : %d", targetID, cur.Count))
	}

	updated := Snapshot{
		Average: (cur.Average*float64(cur.Count) + float64(ratingValue)) / float64(cur.Count+1),
		Count:   cur.Count + 1,
	}
	applied, err := a.identities.CompareAndSetRating(ctx, targetID, cur, updated)
	if err != nil {
		return err
	}
	if !applied {
		return a.RecomputeFromReviews(ctx, targetID)
	}
	return nil
}

// RecordSwapFeedback journalise la contribution d'un feedback de swap puis
// la replie dans l'agrégat de la cible
func (a *Aggregator) RecordSwapFeedback(ctx context.Context, targetID, swapID, givenBy string, ratingValue int) error {
	if err := a.journal.Append(ctx, targetID, swapID, givenBy, ratingValue, time.Now().UTC()); err != nil {
		return err
	}
	return a.FoldIncremental(ctx, targetID, ratingValue)
}
