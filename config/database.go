// AppMissao/config/database.go

package config

import (
	"log/slog"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"appmissao/models"
)

var DB *gorm.DB

func ConnectDB() {
	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		slog.Error("Erro crítico: variável de ambiente DB_URL não definida.")
		os.Exit(1)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		slog.Error("Erro ao conectar ao banco de dados", "error", err)
		os.Exit(1)
	}

	DB = db
	slog.Info("Database connection established")

	if err := db.AutoMigrate(
		&models.User{},
		&models.Provider{},
		&models.Mission{},
		&models.Proposal{},
		&models.Payment{},
		&models.Message{},
		&models.Review{},
		&models.NotificationDevice{},
		&models.NotificationPref{},
	); err != nil {
		slog.Error("Erro ao migrar o esquema do banco", "error", err)
		os.Exit(1)
	}
}
