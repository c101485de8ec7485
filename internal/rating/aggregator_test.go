package rating

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillswap_back_end/internal/apperrors"
)

type memReviews struct {
	ratings map[string][]int
}

func (m *memReviews) VisibleReviewRatings(_ context.Context, targetID string) ([]int, error) {
	return m.ratings[targetID], nil
}

type journalEntry struct {
	swapID, givenBy string
	rating          int
}

type memJournal struct {
	entries map[string][]journalEntry
}

func (m *memJournal) Append(_ context.Context, targetID, swapID, givenBy string, ratingValue int, _ time.Time) error {
	m.entries[targetID] = append(m.entries[targetID], journalEntry{swapID, givenBy, ratingValue})
	return nil
}

func (m *memJournal) Ratings(_ context.Context, targetID string) ([]int, error) {
	var out []int
	for _, e := range m.entries[targetID] {
		out = append(out, e.rating)
	}
	return out, nil
}

// memIdentities simule l'écriture conditionnelle sur le count :
// failCASOnce fait perdre la première écriture incrémentale, comme une
// mutation concurrente de l'agrégat
type memIdentities struct {
	snapshots   map[string]Snapshot
	failCASOnce bool
	casCalls    int
	applyCalls  int
}

func (m *memIdentities) CurrentRating(_ context.Context, userID string) (Snapshot, error) {
	return m.snapshots[userID], nil
}

func (m *memIdentities) ApplyRatingUpdate(_ context.Context, userID string, s Snapshot) error {
	m.applyCalls++
	m.snapshots[userID] = s
	return nil
}

func (m *memIdentities) CompareAndSetRating(_ context.Context, userID string, old, updated Snapshot) (bool, error) {
	m.casCalls++
	if m.failCASOnce {
		m.failCASOnce = false
		return false, nil
	}
	if m.snapshots[userID].Count != old.Count {
		return false, nil
	}
	m.snapshots[userID] = updated
	return true, nil
}

func newTestAggregator() (*Aggregator, *memReviews, *memJournal, *memIdentities) {
	reviews := &memReviews{ratings: make(map[string][]int)}
	journal := &memJournal{entries: make(map[string][]journalEntry)}
	identities := &memIdentities{snapshots: make(map[string]Snapshot)}
	return NewAggregator(reviews, journal, identities), reviews, journal, identities
}

func TestFoldIncremental(t *testing.T) {
	a, _, _, ids := newTestAggregator()
	ctx := context.Background()

	// (4.0 × 3 + 5) / 4 = 4.25
	ids.snapshots["bob"] = Snapshot{Average: 4.0, Count: 3}
	require.NoError(t, a.FoldIncremental(ctx, "bob", 5))
	assert.Equal(t, Snapshot{Average: 4.25, Count: 4}, ids.snapshots["bob"])

	// première contribution d'un profil vierge
	require.NoError(t, a.FoldIncremental(ctx, "carol", 3))
	assert.Equal(t, Snapshot{Average: 3.0, Count: 1}, ids.snapshots["carol"])
}

func TestFoldIncremental_Validation(t *testing.T) {
	a, _, _, _ := newTestAggregator()
	ctx := context.Background()

	err := a.FoldIncremental(ctx, "bob", 0)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	err = a.FoldIncremental(ctx, "bob", 6)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestFoldIncremental_IntegrityFault(t *testing.T) {
	a, _, _, ids := newTestAggregator()

	ids.snapshots["bob"] = Snapshot{Average: 4.0, Count: -2}
	err := a.FoldIncremental(context.Background(), "bob", 5)
	assert.True(t, apperrors.IsKind(err, apperrors.KindIntegrity))
}

func TestFoldIncremental_FallsBackOnLostRace(t *testing.T) {
	a, reviews, journal, ids := newTestAggregator()
	ctx := context.Background()

	// l'état persisté réel : deux avis + un feedback journalisé
	reviews.ratings["bob"] = []int{5, 4}
	require.NoError(t, journal.Append(ctx, "bob", "swap-1", "alice", 3, time.Now()))
	ids.snapshots["bob"] = Snapshot{Average: 4.5, Count: 2}
	ids.failCASOnce = true

	// la CAS perd : le recalcul complet écrase avec la vérité
	require.NoError(t, a.FoldIncremental(ctx, "bob", 3))
	assert.Equal(t, Snapshot{Average: 4.0, Count: 3}, ids.snapshots["bob"])
	assert.Equal(t, 1, ids.applyCalls)
}

func TestRecomputeFromReviews(t *testing.T) {
	a, reviews, journal, ids := newTestAggregator()
	ctx := context.Background()

	// union avis + journal de feedbacks
	reviews.ratings["bob"] = []int{5, 4}
	require.NoError(t, journal.Append(ctx, "bob", "swap-1", "alice", 3, time.Now()))

	require.NoError(t, a.RecomputeFromReviews(ctx, "bob"))
	assert.Equal(t, Snapshot{Average: 4.0, Count: 3}, ids.snapshots["bob"])

	// idempotent : un second recalcul sans écriture donne le même résultat
	require.NoError(t, a.RecomputeFromReviews(ctx, "bob"))
	assert.Equal(t, Snapshot{Average: 4.0, Count: 3}, ids.snapshots["bob"])
}

func TestRecomputeFromReviews_EmptySet(t *testing.T) {
	a, reviews, _, ids := newTestAggregator()
	ctx := context.Background()

	reviews.ratings["bob"] = []int{5}
	require.NoError(t, a.RecomputeFromReviews(ctx, "bob"))
	require.Equal(t, Snapshot{Average: 5.0, Count: 1}, ids.snapshots["bob"])

	// suppression du dernier avis : moyenne neutre, pas de division par zéro
	reviews.ratings["bob"] = nil
	require.NoError(t, a.RecomputeFromReviews(ctx, "bob"))
	assert.Equal(t, Snapshot{Average: 0, Count: 0}, ids.snapshots["bob"])
}

func TestRecomputeFromReviews_IntegrityFault(t *testing.T) {
	a, reviews, _, _ := newTestAggregator()

	reviews.ratings["bob"] = []int{5, 9}
	err := a.RecomputeFromReviews(context.Background(), "bob")
	assert.True(t, apperrors.IsKind(err, apperrors.KindIntegrity))
}

func TestRecordSwapFeedback(t *testing.T) {
	a, _, journal, ids := newTestAggregator()
	ctx := context.Background()

	ids.snapshots["bob"] = Snapshot{Average: 4.0, Count: 3}
	require.NoError(t, a.RecordSwapFeedback(ctx, "bob", "swap-1", "alice", 5))

	// journalisé ET replié dans l'agrégat
	require.Len(t, journal.entries["bob"], 1)
	assert.Equal(t, journalEntry{"swap-1", "alice", 5}, journal.entries["bob"][0])
	assert.Equal(t, Snapshot{Average: 4.25, Count: 4}, ids.snapshots["bob"])
}
