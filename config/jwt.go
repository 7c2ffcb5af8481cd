// AppMissao/config/jwt.go
package config

import (
	"log/slog"
	"os"
)

var JwtKey []byte

func LoadJWTKey() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		slog.Error("Erro crítico: variável de ambiente JWT_SECRET não definida.")
		os.Exit(1)
	}
	JwtKey = []byte(secret)
}
