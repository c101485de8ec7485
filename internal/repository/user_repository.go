package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"skillswap_back_end/internal/apperrors"
	"skillswap_back_end/internal/database"
	"skillswap_back_end/internal/models"
	"skillswap_back_end/internal/rating"
)

// UserRepository est l'implémentation ScyllaDB de l'annuaire d'identités.
// Les compétences et disponibilités sont stockées en JSON dans des
// colonnes text, l'agrégat de notes dans deux colonnes dédiées.
type UserRepository struct{}

func NewUserRepository() *UserRepository { return &UserRepository{} }

const userColumns = `name, email, location, introduction, skills_offered, skills_wanted,
	availability, is_public, role, is_banned, rating_average, rating_count,
	last_active, created_at, updated_at`

func (r *UserRepository) FindByID(ctx context.Context, userID string) (*models.User, error) {
	uid, err := parseUUID(userID)
	if err != nil {
		return nil, err
	}
	session, err := database.GetUsersSession()
	if err != nil {
		return nil, err
	}

	var (
		u                                  models.User
		offeredJSON, wantedJSON, availJSON string
	)
	err = session.Query(`SELECT `+userColumns+` FROM users WHERE user_id = ?`, uid).
		WithContext(ctx).
		Scan(&u.Name, &u.Email, &u.Location, &u.Introduction, &offeredJSON, &wantedJSON,
			&availJSON, &u.IsPublic, &u.Role, &u.IsBanned, &u.Rating.Average, &u.Rating.Count,
			&u.LastActive, &u.CreatedAt, &u.UpdatedAt)
	if err == gocql.ErrNotFound {
		return nil, apperrors.NotFound("utilisateur introuvable")
	}
	if err != nil {
		return nil, fmt.Errorf("erreur lecture utilisateur: %v", err)
	}

	u.ID = userID
	decodeUserJSON(&u, offeredJSON, wantedJSON, availJSON)
	return &u, nil
}

// Save écrit le profil complet (création ou mise à jour) et invalide le cache
func (r *UserRepository) Save(ctx context.Context, u *models.User) error {
	uid, err := parseUUID(u.ID)
	if err != nil {
		return err
	}
	session, err := database.GetUsersSession()
	if err != nil {
		return err
	}

	offeredJSON, _ := json.Marshal(u.SkillsOffered)
	wantedJSON, _ := json.Marshal(u.SkillsWanted)
	availJSON, _ := json.Marshal(u.Availability)

	err = session.Query(`INSERT INTO users (user_id, `+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uid, u.Name, u.Email, u.Location, u.Introduction, string(offeredJSON), string(wantedJSON),
		string(availJSON), u.IsPublic, u.Role, u.IsBanned, u.Rating.Average, u.Rating.Count,
		u.LastActive, u.CreatedAt, u.UpdatedAt).
		WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("erreur écriture utilisateur: %v", err)
	}

	if u.Email != "" {
		if err := session.Query(`INSERT INTO users_by_email (email, user_id) VALUES (?, ?)`,
			u.Email, uid).WithContext(ctx).Exec(); err != nil {
			log.Printf("⚠️ Erreur index users_by_email: %v", err)
		}
	}

	invalidateUserCache(ctx, u.ID)
	return nil
}

// SetBanned pose ou lève le flag de bannissement consulté par la modération
func (r *UserRepository) SetBanned(ctx context.Context, userID string, banned bool) error {
	uid, err := parseUUID(userID)
	if err != nil {
		return err
	}
	session, err := database.GetUsersSession()
	if err != nil {
		return err
	}
	applied, err := session.Query(`UPDATE users SET is_banned = ?, updated_at = ? WHERE user_id = ? IF EXISTS`,
		banned, time.Now().UTC(), uid).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("erreur mise à jour bannissement: %v", err)
	}
	if !applied {
		return apperrors.NotFound("utilisateur introuvable")
	}
	invalidateUserCache(ctx, userID)
	return nil
}

// SetSkillApproval change le flag de modération d'une compétence offerte,
// repérée par son nom. Écriture conditionnelle sur la valeur relue : une
// écriture concurrente du profil fait perdre la course (Conflict).
func (r *UserRepository) SetSkillApproval(ctx context.Context, userID, skillName string, approved bool) error {
	uid, err := parseUUID(userID)
	if err != nil {
		return err
	}
	session, err := database.GetUsersSession()
	if err != nil {
		return err
	}

	var offeredJSON string
	err = session.Query(`SELECT skills_offered FROM users WHERE user_id = ?`, uid).
		WithContext(ctx).Scan(&offeredJSON)
	if err == gocql.ErrNotFound {
		return apperrors.NotFound("utilisateur introuvable")
	}
	if err != nil {
		return fmt.Errorf("erreur lecture compétences: %v", err)
	}

	var skills []models.Skill
	if offeredJSON != "" {
		if err := json.Unmarshal([]byte(offeredJSON), &skills); err != nil {
			return fmt.Errorf("compétences illisibles pour %s: %v", userID, err)
		}
	}
	found := false
	for i := range skills {
		if strings.EqualFold(skills[i].Name, skillName) {
			skills[i].IsApproved = approved
			found = true
		}
	}
	if !found {
		return apperrors.NotFound("compétence introuvable sur ce profil")
	}

	updatedJSON, _ := json.Marshal(skills)
	applied, err := session.Query(`UPDATE users SET skills_offered = ?, updated_at = ? WHERE user_id = ? IF skills_offered = ?`,
		string(updatedJSON), time.Now().UTC(), uid, offeredJSON).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("erreur mise à jour compétence: %v", err)
	}
	if !applied {
		return apperrors.Conflict("le profil a été modifié entre-temps, réessayez")
	}
	invalidateUserCache(ctx, userID)
	return nil
}

// ListPublic parcourt les profils publics non bannis avec filtres
// optionnels compétence/lieu, triés du plus récent au plus ancien
func (r *UserRepository) ListPublic(ctx context.Context, skillFilter, locationFilter string, page, limit int) ([]models.User, int, error) {
	session, err := database.GetUsersSession()
	if err != nil {
		return nil, 0, err
	}

	iter := session.Query(`SELECT user_id, ` + userColumns + ` FROM users`).WithContext(ctx).Iter()

	var matched []models.User
	var (
		uid                                gocql.UUID
		u                                  models.User
		offeredJSON, wantedJSON, availJSON string
	)
	for iter.Scan(&uid, &u.Name, &u.Email, &u.Location, &u.Introduction, &offeredJSON, &wantedJSON,
		&availJSON, &u.IsPublic, &u.Role, &u.IsBanned, &u.Rating.Average, &u.Rating.Count,
		&u.LastActive, &u.CreatedAt, &u.UpdatedAt) {
		if !u.IsPublic || u.IsBanned {
			u = models.User{}
			continue
		}
		u.ID = uid.String()
		decodeUserJSON(&u, offeredJSON, wantedJSON, availJSON)
		if matchesFilters(&u, skillFilter, locationFilter) {
			matched = append(matched, u)
		}
		u = models.User{}
	}
	if err := iter.Close(); err != nil {
		return nil, 0, fmt.Errorf("erreur parcours utilisateurs: %v", err)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := len(matched)
	pageItems := paginateUsers(matched, page, limit)
	return pageItems, total, nil
}

// ListAll parcourt tous les profils sans filtre de visibilité (modération),
// triés du plus récent au plus ancien
func (r *UserRepository) ListAll(ctx context.Context, page, limit int) ([]models.User, int, error) {
	session, err := database.GetUsersSession()
	if err != nil {
		return nil, 0, err
	}

	iter := session.Query(`SELECT user_id, ` + userColumns + ` FROM users`).WithContext(ctx).Iter()

	var all []models.User
	var (
		uid                                gocql.UUID
		u                                  models.User
		offeredJSON, wantedJSON, availJSON string
	)
	for iter.Scan(&uid, &u.Name, &u.Email, &u.Location, &u.Introduction, &offeredJSON, &wantedJSON,
		&availJSON, &u.IsPublic, &u.Role, &u.IsBanned, &u.Rating.Average, &u.Rating.Count,
		&u.LastActive, &u.CreatedAt, &u.UpdatedAt) {
		u.ID = uid.String()
		decodeUserJSON(&u, offeredJSON, wantedJSON, availJSON)
		all = append(all, u)
		u = models.User{}
	}
	if err := iter.Close(); err != nil {
		return nil, 0, fmt.Errorf("erreur parcours utilisateurs: %v", err)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginateUsers(all, page, limit), len(all), nil
}

// --- Agrégat de notes (consommé par l'agrégateur) ---

func (r *UserRepository) CurrentRating(ctx context.Context, userID string) (rating.Snapshot, error) {
	uid, err := parseUUID(userID)
	if err != nil {
		return rating.Snapshot{}, err
	}
	session, err := database.GetUsersSession()
	if err != nil {
		return rating.Snapshot{}, err
	}
	var snap rating.Snapshot
	err = session.Query(`SELECT rating_average, rating_count FROM users WHERE user_id = ?`, uid).
		WithContext(ctx).Scan(&snap.Average, &snap.Count)
	if err == gocql.ErrNotFound {
		return rating.Snapshot{}, apperrors.NotFound("utilisateur introuvable")
	}
	if err != nil {
		return rating.Snapshot{}, fmt.Errorf("erreur lecture agrégat: %v", err)
	}
	return snap, nil
}

// ApplyRatingUpdate écrase l'agrégat avec la valeur recalculée (le
// recalcul complet fait foi)
func (r *UserRepository) ApplyRatingUpdate(ctx context.Context, userID string, snap rating.Snapshot) error {
	uid, err := parseUUID(userID)
	if err != nil {
		return err
	}
	session, err := database.GetUsersSession()
	if err != nil {
		return err
	}
	err = session.Query(`UPDATE users SET rating_average = ?, rating_count = ?, updated_at = ? WHERE user_id = ?`,
		snap.Average, snap.Count, time.Now().UTC(), uid).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("erreur écriture agrégat: %v", err)
	}
	invalidateUserCache(ctx, userID)
	return nil
}

// CompareAndSetRating : écriture conditionnelle sur le count courant,
// utilisée par le repli incrémental. Le count sert de jeton de version.
func (r *UserRepository) CompareAndSetRating(ctx context.Context, userID string, old, updated rating.Snapshot) (bool, error) {
	uid, err := parseUUID(userID)
	if err != nil {
		return false, err
	}
	session, err := database.GetUsersSession()
	if err != nil {
		return false, err
	}
	applied, err := session.Query(`UPDATE users SET rating_average = ?, rating_count = ?, updated_at = ? WHERE user_id = ? IF rating_count = ?`,
		updated.Average, updated.Count, time.Now().UTC(), uid, old.Count).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return false, fmt.Errorf("erreur écriture conditionnelle agrégat: %v", err)
	}
	if applied {
		invalidateUserCache(ctx, userID)
	}
	return applied, nil
}

// --- Helpers ---

func parseUUID(id string) (gocql.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return gocql.UUID{}, apperrors.Validation("identifiant invalide")
	}
	return gocql.UUID(parsed), nil
}

func decodeUserJSON(u *models.User, offeredJSON, wantedJSON, availJSON string) {
	if offeredJSON != "" {
		if err := json.Unmarshal([]byte(offeredJSON), &u.SkillsOffered); err != nil {
			log.Printf("⚠️ Compétences offertes illisibles pour %s: %v", u.ID, err)
		}
	}
	if wantedJSON != "" {
		if err := json.Unmarshal([]byte(wantedJSON), &u.SkillsWanted); err != nil {
			log.Printf("⚠️ Compétences recherchées illisibles pour %s: %v", u.ID, err)
		}
	}
	if availJSON != "" {
		if err := json.Unmarshal([]byte(availJSON), &u.Availability); err != nil {
			log.Printf("⚠️ Disponibilités illisibles pour %s: %v", u.ID, err)
		}
	}
}

func matchesFilters(u *models.User, skillFilter, locationFilter string) bool {
	if locationFilter != "" && !strings.Contains(strings.ToLower(u.Location), strings.ToLower(locationFilter)) {
		return false
	}
	if skillFilter == "" {
		return true
	}
	needle := strings.ToLower(skillFilter)
	for _, s := range u.SkillsOffered {
		if s.IsApproved && strings.Contains(strings.ToLower(s.Name), needle) {
			return true
		}
	}
	for _, s := range u.SkillsWanted {
		if strings.Contains(strings.ToLower(s.Name), needle) {
			return true
		}
	}
	return false
}

func paginateUsers(users []models.User, page, limit int) []models.User {
	start := (page - 1) * limit
	if start >= len(users) {
		return nil
	}
	end := start + limit
	if end > len(users) {
		end = len(users)
	}
	return users[start:end]
}

func invalidateUserCache(ctx context.Context, userID string) {
	if database.Redis == nil {
		return
	}
	if err := database.Redis.Del(ctx, "user:"+userID, "user_name:"+userID).Err(); err != nil {
		log.Printf("⚠️ Erreur invalidation cache user:%s: %v", userID, err)
	}
}
