package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"skillswap_back_end/internal/config"
	"skillswap_back_end/internal/database"
	"skillswap_back_end/internal/handlers"
	"skillswap_back_end/internal/routes"
)

func main() {
	config.Load()

	database.ConnectDatabases()
	defer database.CloseScylla()

	warmupRedisCache()

	handlers.Setup()

	r := gin.Default()
	routes.RegisterRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Println("🚀 Serveur SkillSwap lancé sur le port", port)
	r.Run(":" + port)
}

// warmupRedisCache pré-chauffe le cache Redis pour éviter la latence du premier appel
func warmupRedisCache() {
	ctx := context.Background()
	if err := database.Redis.Ping(ctx).Err(); err == nil {
		log.Println("✅ Cache Redis pré-chauffé")
	}
}
