package cache

import (
	"context"
	"encoding/json"
	"time"

	"skillswap_back_end/internal/database"
	"skillswap_back_end/internal/models"
	"skillswap_back_end/internal/repository"
)

const UserCacheTTL = 5 * time.Minute

var users = repository.NewUserRepository()

// GetUserFromCache récupère un utilisateur depuis Redis ou ScyllaDB
func GetUserFromCache(ctx context.Context, userID string) (*models.User, error) {
	key := "user:" + userID

	// 1. Essayer le cache Redis
	if database.Redis != nil {
		data, err := database.Redis.Get(ctx, key).Result()
		if err == nil {
			var user models.User
			if json.Unmarshal([]byte(data), &user) == nil {
				return &user, nil
			}
		}
	}

	// 2. Récupérer de ScyllaDB
	user, err := users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 3. Mettre en cache
	if database.Redis != nil {
		jsonData, _ := json.Marshal(user)
		database.Redis.Set(ctx, key, jsonData, UserCacheTTL)
	}

	return user, nil
}

// GetNamesFromCache récupère plusieurs noms d'utilisateurs d'un coup,
// pour enrichir les listings d'échanges et d'avis
func GetNamesFromCache(ctx context.Context, userIDs []string) map[string]string {
	result := make(map[string]string)
	missingIDs := []string{}

	// 1. Essayer de récupérer depuis Redis
	for _, userID := range userIDs {
		if _, ok := result[userID]; ok {
			continue
		}
		if database.Redis != nil {
			key := "user_name:" + userID
			name, err := database.Redis.Get(ctx, key).Result()
			if err == nil {
				result[userID] = name
				continue
			}
		}
		missingIDs = append(missingIDs, userID)
	}

	// 2. Récupérer les manquants depuis ScyllaDB
	for _, userID := range missingIDs {
		user, err := users.FindByID(ctx, userID)
		if err != nil {
			continue
		}
		result[userID] = user.Name
		if database.Redis != nil {
			database.Redis.Set(ctx, "user_name:"+userID, user.Name, UserCacheTTL)
		}
	}

	return result
}
