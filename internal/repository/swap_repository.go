package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/gocql/gocql"

	"skillswap_back_end/internal/apperrors"
	"skillswap_back_end/internal/database"
	"skillswap_back_end/internal/models"
	"skillswap_back_end/internal/swap"
)

// SwapRepository est l'implémentation ScyllaDB du store du moteur de swap.
// L'atomicité des transitions repose sur les LWT :
//   - pending_by_pair + INSERT IF NOT EXISTS garantit une seule demande
//     pending par paire ordonnée (demandeur, destinataire) ;
//   - le statut ne bouge que via UPDATE ... IF status = ?, le perdant
//     d'une course voit applied=false ;
//   - chaque emplacement de feedback n'est inscriptible qu'une fois
//     (IF ... = null) et seulement au statut completed.
type SwapRepository struct{}

func NewSwapRepository() *SwapRepository { return &SwapRepository{} }

func (r *SwapRepository) Get(ctx context.Context, swapID string) (*models.SwapRequest, error) {
	sid, err := parseUUID(swapID)
	if err != nil {
		return nil, err
	}
	session, err := database.GetSwapsSession()
	if err != nil {
		return nil, err
	}

	var (
		s                        models.SwapRequest
		requesterID, recipientID gocql.UUID
		offeredJSON, wantedJSON  string
		fbRequester, fbRecipient string
		status                   string
	)
	err = session.Query(`SELECT requester_id, recipient_id, skill_offered, skill_requested, status,
		message, proposed_schedule, fb_requester, fb_recipient, created_at, updated_at
		FROM swaps WHERE swap_id = ?`, sid).
		WithContext(ctx).
		Scan(&requesterID, &recipientID, &offeredJSON, &wantedJSON, &status,
			&s.Message, &s.ProposedSchedule, &fbRequester, &fbRecipient, &s.CreatedAt, &s.UpdatedAt)
	if err == gocql.ErrNotFound {
		return nil, apperrors.NotFound("demande de swap introuvable")
	}
	if err != nil {
		return nil, fmt.Errorf("erreur lecture swap: %v", err)
	}

	s.ID = swapID
	s.RequesterID = requesterID.String()
	s.RecipientID = recipientID.String()
	s.Status = models.SwapStatus(status)
	decodeSkill(&s.SkillOffered, offeredJSON, swapID, "skill_offered")
	decodeSkill(&s.SkillRequested, wantedJSON, swapID, "skill_requested")
	s.RequesterFeedback = decodeFeedback(fbRequester, swapID)
	s.RecipientFeedback = decodeFeedback(fbRecipient, swapID)
	return &s, nil
}

// InsertPending réserve d'abord la paire ordonnée, puis écrit la demande
// et ses lignes d'index. applied=false : une demande pending existe déjà.
func (r *SwapRepository) InsertPending(ctx context.Context, s *models.SwapRequest) (bool, error) {
	sid, err := parseUUID(s.ID)
	if err != nil {
		return false, err
	}
	requesterID, err := parseUUID(s.RequesterID)
	if err != nil {
		return false, err
	}
	recipientID, err := parseUUID(s.RecipientID)
	if err != nil {
		return false, err
	}
	session, err := database.GetSwapsSession()
	if err != nil {
		return false, err
	}

	applied, err := session.Query(`INSERT INTO pending_by_pair (requester_id, recipient_id, swap_id)
		VALUES (?, ?, ?) IF NOT EXISTS`, requesterID, recipientID, sid).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return false, fmt.Errorf("erreur réservation paire: %v", err)
	}
	if !applied {
		return false, nil
	}

	offeredJSON, _ := json.Marshal(s.SkillOffered)
	wantedJSON, _ := json.Marshal(s.SkillRequested)

	err = session.Query(`INSERT INTO swaps (swap_id, requester_id, recipient_id, skill_offered,
		skill_requested, status, message, proposed_schedule, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sid, requesterID, recipientID, string(offeredJSON), string(wantedJSON),
		string(s.Status), s.Message, s.ProposedSchedule, s.CreatedAt, s.UpdatedAt).
		WithContext(ctx).Exec()
	if err != nil {
		// la réservation ne doit pas rester orpheline
		if derr := session.Query(`DELETE FROM pending_by_pair WHERE requester_id = ? AND recipient_id = ?`,
			requesterID, recipientID).WithContext(ctx).Exec(); derr != nil {
			log.Printf("⚠️ Paire orpheline %s → %s: %v", s.RequesterID, s.RecipientID, derr)
		}
		return false, fmt.Errorf("erreur création swap: %v", err)
	}

	r.insertIndexRow(ctx, session, requesterID, s, swap.KindSent, recipientID)
	r.insertIndexRow(ctx, session, recipientID, s, swap.KindReceived, requesterID)
	return true, nil
}

func (r *SwapRepository) insertIndexRow(ctx context.Context, session *gocql.Session, owner gocql.UUID, s *models.SwapRequest, kind string, other gocql.UUID) {
	sid, _ := parseUUID(s.ID)
	err := session.Query(`INSERT INTO swaps_by_user (user_id, created_at, swap_id, kind, status, other_user_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		owner, s.CreatedAt, sid, kind, string(s.Status), other).
		WithContext(ctx).Exec()
	if err != nil {
		log.Printf("⚠️ Erreur index swaps_by_user (%s): %v", kind, err)
	}
}

// CompareAndSwapStatus fait avancer le statut en une seule écriture
// conditionnelle. En sortie de pending, la réservation de paire est levée.
func (r *SwapRepository) CompareAndSwapStatus(ctx context.Context, swapID string, from, to models.SwapStatus, at time.Time) (bool, error) {
	sid, err := parseUUID(swapID)
	if err != nil {
		return false, err
	}
	session, err := database.GetSwapsSession()
	if err != nil {
		return false, err
	}

	applied, err := session.Query(`UPDATE swaps SET status = ?, updated_at = ? WHERE swap_id = ? IF status = ?`,
		string(to), at, sid, string(from)).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return false, fmt.Errorf("erreur transition swap: %v", err)
	}
	if !applied {
		return false, nil
	}

	// post-transition : nettoyage de la paire et rafraîchissement des index
	var (
		requesterID, recipientID gocql.UUID
		createdAt                time.Time
	)
	err = session.Query(`SELECT requester_id, recipient_id, created_at FROM swaps WHERE swap_id = ?`, sid).
		WithContext(ctx).Scan(&requesterID, &recipientID, &createdAt)
	if err != nil {
		log.Printf("⚠️ Swap %s : relecture post-transition impossible: %v", swapID, err)
		return true, nil
	}

	if from == models.SwapPending {
		if err := session.Query(`DELETE FROM pending_by_pair WHERE requester_id = ? AND recipient_id = ?`,
			requesterID, recipientID).WithContext(ctx).Exec(); err != nil {
			log.Printf("⚠️ Erreur libération paire pour swap %s: %v", swapID, err)
		}
	}

	for _, owner := range []gocql.UUID{requesterID, recipientID} {
		if err := session.Query(`UPDATE swaps_by_user SET status = ? WHERE user_id = ? AND created_at = ? AND swap_id = ?`,
			string(to), owner, createdAt, sid).WithContext(ctx).Exec(); err != nil {
			log.Printf("⚠️ Erreur rafraîchissement index swaps_by_user: %v", err)
		}
	}
	return true, nil
}

// AttachFeedback remplit l'emplacement de feedback d'un côté, une seule
// fois, et uniquement tant que le swap est completed
func (r *SwapRepository) AttachFeedback(ctx context.Context, swapID string, asRequester bool, fb models.Feedback) (bool, error) {
	sid, err := parseUUID(swapID)
	if err != nil {
		return false, err
	}
	session, err := database.GetSwapsSession()
	if err != nil {
		return false, err
	}

	fbJSON, _ := json.Marshal(fb)
	column := "fb_recipient"
	if asRequester {
		column = "fb_requester"
	}
	stmt := fmt.Sprintf(`UPDATE swaps SET %s = ?, updated_at = ? WHERE swap_id = ? IF status = ? AND %s = null`,
		column, column)
	applied, err := session.Query(stmt, string(fbJSON), fb.GivenAt, sid, string(models.SwapCompleted)).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return false, fmt.Errorf("erreur écriture feedback: %v", err)
	}
	return applied, nil
}

// ListForUser parcourt la partition d'index de l'utilisateur (déjà triée
// du plus récent au plus ancien), filtre, pagine, puis relit les demandes
// complètes de la page
func (r *SwapRepository) ListForUser(ctx context.Context, userID string, status models.SwapStatus, kind string, page, limit int) ([]models.SwapRequest, int, error) {
	uid, err := parseUUID(userID)
	if err != nil {
		return nil, 0, err
	}
	session, err := database.GetSwapsSession()
	if err != nil {
		return nil, 0, err
	}

	iter := session.Query(`SELECT swap_id, kind, status FROM swaps_by_user WHERE user_id = ?`, uid).
		WithContext(ctx).Iter()

	var ids []string
	var (
		sid      gocql.UUID
		rowKind  string
		rowState string
	)
	for iter.Scan(&sid, &rowKind, &rowState) {
		if kind != swap.KindAll && rowKind != kind {
			continue
		}
		if status != "" && models.SwapStatus(rowState) != status {
			continue
		}
		ids = append(ids, sid.String())
	}
	if err := iter.Close(); err != nil {
		return nil, 0, fmt.Errorf("erreur parcours swaps: %v", err)
	}

	total := len(ids)
	start := (page - 1) * limit
	if start >= total {
		return nil, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}

	swaps := make([]models.SwapRequest, 0, end-start)
	for _, id := range ids[start:end] {
		s, err := r.Get(ctx, id)
		if err != nil {
			log.Printf("⚠️ Swap %s présent dans l'index mais illisible: %v", id, err)
			continue
		}
		swaps = append(swaps, *s)
	}
	return swaps, total, nil
}

// ListAll parcourt la table swaps entière (modération), filtre par statut,
// trie du plus récent au plus ancien et pagine
func (r *SwapRepository) ListAll(ctx context.Context, status models.SwapStatus, page, limit int) ([]models.SwapRequest, int, error) {
	session, err := database.GetSwapsSession()
	if err != nil {
		return nil, 0, err
	}

	iter := session.Query(`SELECT swap_id, requester_id, recipient_id, skill_offered, skill_requested,
		status, message, proposed_schedule, fb_requester, fb_recipient, created_at, updated_at
		FROM swaps`).WithContext(ctx).Iter()

	var all []models.SwapRequest
	var (
		s                        models.SwapRequest
		sid                      gocql.UUID
		requesterID, recipientID gocql.UUID
		offeredJSON, wantedJSON  string
		fbRequester, fbRecipient string
		rowState                 string
	)
	for iter.Scan(&sid, &requesterID, &recipientID, &offeredJSON, &wantedJSON, &rowState,
		&s.Message, &s.ProposedSchedule, &fbRequester, &fbRecipient, &s.CreatedAt, &s.UpdatedAt) {
		if status != "" && models.SwapStatus(rowState) != status {
			s = models.SwapRequest{}
			continue
		}
		s.ID = sid.String()
		s.RequesterID = requesterID.String()
		s.RecipientID = recipientID.String()
		s.Status = models.SwapStatus(rowState)
		decodeSkill(&s.SkillOffered, offeredJSON, s.ID, "skill_offered")
		decodeSkill(&s.SkillRequested, wantedJSON, s.ID, "skill_requested")
		s.RequesterFeedback = decodeFeedback(fbRequester, s.ID)
		s.RecipientFeedback = decodeFeedback(fbRecipient, s.ID)
		all = append(all, s)
		s = models.SwapRequest{}
	}
	if err := iter.Close(); err != nil {
		return nil, 0, fmt.Errorf("erreur parcours swaps: %v", err)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
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

func decodeSkill(dst *models.Skill, raw, swapID, column string) {
	if raw == "" {
		return
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		log.Printf("⚠️ Colonne %s illisible pour swap %s: %v", column, swapID, err)
	}
}

func decodeFeedback(raw, swapID string) *models.Feedback {
	if raw == "" {
		return nil
	}
	var fb models.Feedback
	if err := json.Unmarshal([]byte(raw), &fb); err != nil {
		log.Printf("⚠️ Feedback illisible pour swap %s: %v", swapID, err)
		return nil
	}
	return &fb
}
