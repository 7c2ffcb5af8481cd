// AppMissao/main.go
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"

	"appmissao/config"
	"appmissao/internal/handlers"
	"appmissao/internal/media"
	"appmissao/internal/notify"
	"appmissao/internal/ratelimit"
	"appmissao/internal/realtime"
	"appmissao/internal/routes"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	config.LoadJWTKey()
	config.ConnectDB()
	config.ConnectRedis()
	config.ConnectMercadoPago()

	hub := realtime.NewHub()
	go hub.Run()

	notifySvc := notify.NewService(config.DB, nil)

	mediaSigner, err := media.FromEnv(context.Background())
	if err != nil {
		slog.Error("Erro ao configurar o armazenamento de mídia", "error", err)
		os.Exit(1)
	}
	if mediaSigner == nil {
		slog.Warn("R2_ENDPOINT/R2_BUCKET não definidos; upload de mídia desativado.")
	}

	handlers.Setup(hub, notifySvc, mediaSigner)

	var limiterStore ratelimit.Store
	if config.RDB != nil {
		limiterStore = &ratelimit.RedisStore{RDB: config.RDB}
	} else {
		limiterStore = ratelimit.NewMemoryStore()
	}
	limiter := ratelimit.FromEnv(limiterStore)

	r := gin.Default()
	routes.RegisterRoutes(r, limiter)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	slog.Info("Server starting", "port", port)
	if err := r.Run(":" + port); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}
