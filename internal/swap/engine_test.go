package swap

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillswap_back_end/internal/apperrors"
	"skillswap_back_end/internal/models"
)

// memStore implémente Store en mémoire avec la même sémantique
// conditionnelle que l'implémentation ScyllaDB
type memStore struct {
	mu    sync.Mutex
	swaps map[string]*models.SwapRequest
	pairs map[string]string // "requester→recipient" → swapID pending
}

func newMemStore() *memStore {
	return &memStore{
		swaps: make(map[string]*models.SwapRequest),
		pairs: make(map[string]string),
	}
}

func pairKey(requesterID, recipientID string) string { return requesterID + "→" + recipientID }

func (m *memStore) Get(_ context.Context, swapID string) (*models.SwapRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.swaps[swapID]
	if !ok {
		return nil, apperrors.NotFound("demande de swap introuvable")
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) InsertPending(_ context.Context, s *models.SwapRequest) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairKey(s.RequesterID, s.RecipientID)
	if _, exists := m.pairs[key]; exists {
		return false, nil
	}
	cp := *s
	m.pairs[key] = s.ID
	m.swaps[s.ID] = &cp
	return true, nil
}

func (m *memStore) CompareAndSwapStatus(_ context.Context, swapID string, from, to models.SwapStatus, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.swaps[swapID]
	if !ok || s.Status != from {
		return false, nil
	}
	s.Status = to
	s.UpdatedAt = at
	if from == models.SwapPending {
		delete(m.pairs, pairKey(s.RequesterID, s.RecipientID))
	}
	return true, nil
}

func (m *memStore) AttachFeedback(_ context.Context, swapID string, asRequester bool, fb models.Feedback) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.swaps[swapID]
	if !ok || s.Status != models.SwapCompleted {
		return false, nil
	}
	if asRequester {
		if s.RequesterFeedback != nil {
			return false, nil
		}
		s.RequesterFeedback = &fb
	} else {
		if s.RecipientFeedback != nil {
			return false, nil
		}
		s.RecipientFeedback = &fb
	}
	return true, nil
}

func (m *memStore) ListForUser(_ context.Context, userID string, status models.SwapStatus, kind string, page, limit int) ([]models.SwapRequest, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.SwapRequest
	for _, s := range m.swaps {
		sent := s.RequesterID == userID
		received := s.RecipientID == userID
		if !sent && !received {
			continue
		}
		if kind == KindSent && !sent {
			continue
		}
		if kind == KindReceived && !received {
			continue
		}
		if status != "" && s.Status != status {
			continue
		}
		all = append(all, *s)
	}
	total := len(all)
	start := (page - 1) * limit
	if start >= total {
		return nil, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (m *memStore) ListAll(_ context.Context, status models.SwapStatus, page, limit int) ([]models.SwapRequest, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.SwapRequest
	for _, s := range m.swaps {
		if status != "" && s.Status != status {
			continue
		}
		all = append(all, *s)
	}
	total := len(all)
	start := (page - 1) * limit
	if start >= total {
		return nil, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

type memDirectory struct {
	users map[string]*models.User
}

func (d *memDirectory) FindByID(_ context.Context, userID string) (*models.User, error) {
	u, ok := d.users[userID]
	if !ok {
		return nil, apperrors.NotFound("utilisateur introuvable")
	}
	cp := *u
	return &cp, nil
}

type recordedFeedback struct {
	targetID, swapID, givenBy string
	rating                    int
}

type memRecorder struct {
	mu      sync.Mutex
	records []recordedFeedback
}

func (r *memRecorder) RecordSwapFeedback(_ context.Context, targetID, swapID, givenBy string, rating int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, recordedFeedback{targetID, swapID, givenBy, rating})
	return nil
}

func testUser(id string) *models.User {
	return &models.User{
		ID:       id,
		Name:     "User " + id,
		Email:    id + "@test.local",
		IsPublic: true,
	}
}

func testSkill(name string) models.Skill {
	return models.Skill{Name: name, Level: models.LevelIntermediate, IsApproved: true}
}

func newTestEngine(t *testing.T) (*Engine, *memStore, *memDirectory, *memRecorder) {
	t.Helper()
	store := newMemStore()
	dir := &memDirectory{users: map[string]*models.User{
		"alice": testUser("alice"),
		"bob":   testUser("bob"),
		"carol": testUser("carol"),
	}}
	rec := &memRecorder{}
	return NewEngine(store, dir, rec), store, dir, rec
}

func createInput(requester, recipient string) CreateInput {
	return CreateInput{
		RequesterID:    requester,
		RecipientID:    recipient,
		SkillOffered:   testSkill("guitare"),
		SkillRequested: testSkill("espagnol"),
		Message:        "On échange ?",
	}
}

func TestCreate_HappyPath(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	s, err := e.Create(context.Background(), createInput("alice", "bob"))
	require.NoError(t, err)
	assert.Equal(t, models.SwapPending, s.Status)
	assert.Equal(t, "alice", s.RequesterID)
	assert.Equal(t, "bob", s.RecipientID)
	assert.NotEmpty(t, s.ID)
}

func TestCreate_Validation(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Create(ctx, createInput("alice", "alice"))
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation), "demande vers soi-même")

	in := createInput("alice", "bob")
	in.SkillOffered.Name = ""
	_, err = e.Create(ctx, in)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation), "compétence sans nom")

	in = createInput("alice", "bob")
	in.SkillRequested.Level = "jedi"
	_, err = e.Create(ctx, in)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation), "niveau inconnu")

	in = createInput("alice", "bob")
	in.Message = string(make([]byte, MaxMessageLen+1))
	_, err = e.Create(ctx, in)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation), "message trop long")
}

func TestCreate_ModerationGates(t *testing.T) {
	e, _, dir, _ := newTestEngine(t)
	ctx := context.Background()

	// destinataire inconnu
	_, err := e.Create(ctx, createInput("alice", "ghost"))
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	// destinataire banni : indistinguable d'un compte absent
	dir.users["bob"].IsBanned = true
	_, err = e.Create(ctx, createInput("alice", "bob"))
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	dir.users["bob"].IsBanned = false

	// destinataire privé
	dir.users["bob"].IsPublic = false
	_, err = e.Create(ctx, createInput("alice", "bob"))
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
	dir.users["bob"].IsPublic = true

	// demandeur banni
	dir.users["alice"].IsBanned = true
	_, err = e.Create(ctx, createInput("alice", "bob"))
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
}

func TestCreate_OnePendingPerPair(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Create(ctx, createInput("alice", "bob"))
	require.NoError(t, err)

	// doublon dans le même sens : refusé
	_, err = e.Create(ctx, createInput("alice", "bob"))
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))

	// sens inverse : la paire est ordonnée, donc autorisé
	_, err = e.Create(ctx, createInput("bob", "alice"))
	assert.NoError(t, err)
}

func TestCreate_AllowedAgainAfterRejection(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	s, err := e.Create(ctx, createInput("alice", "bob"))
	require.NoError(t, err)

	_, err = e.Respond(ctx, s.ID, "bob", models.SwapRejected)
	require.NoError(t, err)

	// la demande rejetée ne bloque plus la paire
	_, err = e.Create(ctx, createInput("alice", "bob"))
	assert.NoError(t, err)
}

func TestRespond(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	s, err := e.Create(ctx, createInput("alice", "bob"))
	require.NoError(t, err)

	// seul le destinataire répond
	_, err = e.Respond(ctx, s.ID, "alice", models.SwapAccepted)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
	_, err = e.Respond(ctx, s.ID, "carol", models.SwapAccepted)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))

	// décision hors {accepted, rejected}
	_, err = e.Respond(ctx, s.ID, "bob", models.SwapCompleted)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	got, err := e.Respond(ctx, s.ID, "bob", models.SwapAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.SwapAccepted, got.Status)

	// la demande n'est plus pending : la seconde réponse perd
	_, err = e.Respond(ctx, s.ID, "bob", models.SwapRejected)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidState))
}

func TestCancel(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	s, err := e.Create(ctx, createInput("alice", "bob"))
	require.NoError(t, err)

	// seul le demandeur annule
	_, err = e.Cancel(ctx, s.ID, "bob")
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))

	got, err := e.Cancel(ctx, s.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.SwapCancelled, got.Status)

	// plus d'annulation possible après acceptation
	s2, err := e.Create(ctx, createInput("alice", "bob"))
	require.NoError(t, err)
	_, err = e.Respond(ctx, s2.ID, "bob", models.SwapAccepted)
	require.NoError(t, err)
	_, err = e.Cancel(ctx, s2.ID, "alice")
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidState))
}

func TestComplete(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	s, err := e.Create(ctx, createInput("alice", "bob"))
	require.NoError(t, err)

	// pas de complétion depuis pending
	_, err = e.Complete(ctx, s.ID, "alice")
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidState))

	_, err = e.Respond(ctx, s.ID, "bob", models.SwapAccepted)
	require.NoError(t, err)

	_, err = e.Complete(ctx, s.ID, "carol")
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))

	got, err := e.Complete(ctx, s.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, models.SwapCompleted, got.Status)

	// complétion unilatérale : le second appel perd la course
	_, err = e.Complete(ctx, s.ID, "alice")
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidState))
}

func completedSwap(t *testing.T, e *Engine) *models.SwapRequest {
	t.Helper()
	ctx := context.Background()
	s, err := e.Create(ctx, createInput("alice", "bob"))
	require.NoError(t, err)
	_, err = e.Respond(ctx, s.ID, "bob", models.SwapAccepted)
	require.NoError(t, err)
	_, err = e.Complete(ctx, s.ID, "alice")
	require.NoError(t, err)
	return s
}

func TestAttachFeedback_PerParticipant(t *testing.T) {
	e, _, _, rec := newTestEngine(t)
	ctx := context.Background()
	s := completedSwap(t, e)

	// chaque participant dépose une fois
	got, err := e.AttachFeedback(ctx, s.ID, "alice", 5, "super échange")
	require.NoError(t, err)
	require.NotNil(t, got.RequesterFeedback)
	assert.Equal(t, "alice", got.RequesterFeedback.GivenBy)

	_, err = e.AttachFeedback(ctx, s.ID, "bob", 4, "")
	require.NoError(t, err)

	// deuxième dépôt du même participant : refusé
	_, err = e.AttachFeedback(ctx, s.ID, "alice", 3, "")
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))

	// la contribution va à l'AUTRE participant
	require.Len(t, rec.records, 2)
	assert.Equal(t, recordedFeedback{"bob", s.ID, "alice", 5}, rec.records[0])
	assert.Equal(t, recordedFeedback{"alice", s.ID, "bob", 4}, rec.records[1])
}

func TestAttachFeedback_Guards(t *testing.T) {
	e, _, _, rec := newTestEngine(t)
	ctx := context.Background()

	s, err := e.Create(ctx, createInput("alice", "bob"))
	require.NoError(t, err)

	// pas de feedback avant completed
	_, err = e.AttachFeedback(ctx, s.ID, "alice", 5, "")
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidState))

	_, err = e.Respond(ctx, s.ID, "bob", models.SwapAccepted)
	require.NoError(t, err)
	_, err = e.AttachFeedback(ctx, s.ID, "alice", 5, "")
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidState))

	_, err = e.Complete(ctx, s.ID, "alice")
	require.NoError(t, err)

	// non participant
	_, err = e.AttachFeedback(ctx, s.ID, "carol", 5, "")
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))

	// note hors limites
	_, err = e.AttachFeedback(ctx, s.ID, "alice", 0, "")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	_, err = e.AttachFeedback(ctx, s.ID, "alice", 6, "")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	// rien ne doit avoir été transmis à l'agrégateur
	assert.Empty(t, rec.records)
}

func TestGet_ParticipantsOnly(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	s, err := e.Create(ctx, createInput("alice", "bob"))
	require.NoError(t, err)

	_, err = e.Get(ctx, s.ID, "alice")
	assert.NoError(t, err)
	_, err = e.Get(ctx, s.ID, "bob")
	assert.NoError(t, err)
	_, err = e.Get(ctx, s.ID, "carol")
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
}

func TestListForUser(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	s1, err := e.Create(ctx, createInput("alice", "bob"))
	require.NoError(t, err)
	_, err = e.Create(ctx, createInput("alice", "carol"))
	require.NoError(t, err)
	_, err = e.Create(ctx, createInput("bob", "alice"))
	require.NoError(t, err)
	_, err = e.Respond(ctx, s1.ID, "bob", models.SwapRejected)
	require.NoError(t, err)

	all, total, err := e.ListForUser(ctx, "alice", "", KindAll, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, all, 3)

	sent, total, err := e.ListForUser(ctx, "alice", "", KindSent, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, sent, 2)

	pending, total, err := e.ListForUser(ctx, "alice", models.SwapPending, KindSent, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, pending, 1)

	// filtres invalides
	_, _, err = e.ListForUser(ctx, "alice", "weird", KindAll, 1, 10)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	_, _, err = e.ListForUser(ctx, "alice", "", "sideways", 1, 10)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestCreate_MessageLengthInCharacters(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	// 1000 caractères accentués dépassent 1000 octets mais restent valides
	in := createInput("alice", "bob")
	in.Message = strings.Repeat("é", MaxMessageLen)
	_, err := e.Create(ctx, in)
	assert.NoError(t, err)

	in = createInput("alice", "carol")
	in.Message = strings.Repeat("é", MaxMessageLen+1)
	_, err = e.Create(ctx, in)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestAttachFeedback_CommentLengthInCharacters(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()
	s := completedSwap(t, e)

	_, err := e.AttachFeedback(ctx, s.ID, "alice", 5, strings.Repeat("à", MaxCommentLen))
	assert.NoError(t, err)

	_, err = e.AttachFeedback(ctx, s.ID, "bob", 4, strings.Repeat("à", MaxCommentLen+1))
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestListAll(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	s1, err := e.Create(ctx, createInput("alice", "bob"))
	require.NoError(t, err)
	_, err = e.Create(ctx, createInput("alice", "carol"))
	require.NoError(t, err)
	_, err = e.Create(ctx, createInput("bob", "carol"))
	require.NoError(t, err)
	_, err = e.Respond(ctx, s1.ID, "bob", models.SwapAccepted)
	require.NoError(t, err)

	// parcours plateforme entière, tous participants confondus
	all, total, err := e.ListAll(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, all, 3)

	accepted, total, err := e.ListAll(ctx, models.SwapAccepted, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, accepted, 1)
	assert.Equal(t, s1.ID, accepted[0].ID)

	// pagination
	page2, total, err := e.ListAll(ctx, "", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page2, 1)

	_, _, err = e.ListAll(ctx, "weird", 1, 10)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestRespond_ConcurrentDecisions(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	s, err := e.Create(ctx, createInput("alice", "bob"))
	require.NoError(t, err)

	// accept et cancel en parallèle : exactement un gagnant
	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = e.Respond(ctx, s.ID, "bob", models.SwapAccepted)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = e.Cancel(ctx, s.ID, "alice")
	}()
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidState))
		}
	}
	assert.Equal(t, 1, winners)
}
