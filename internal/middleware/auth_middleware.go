package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"appmissao/config"
	"appmissao/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

// CachedUserData é a identidade resolvida do usuário, cacheada no Redis para
// evitar um SELECT por requisição.
type CachedUserData struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// AuthMiddleware valida o JWT (header Authorization ou query token, para o
// upgrade de WebSocket) e injeta a identidade no contexto.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ""
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				handleAuthError(c, "Token mal formatado")
				return
			}
			tokenStr = parts[1]
		} else {
			tokenStr = c.Query("token")
		}
		if tokenStr == "" {
			handleAuthError(c, "Token não fornecido")
			return
		}

		token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return config.JwtKey, nil
		})
		if err != nil || !token.Valid {
			handleAuthError(c, "Token inválido ou expirado")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			handleAuthError(c, "Token inválido ou expirado")
			return
		}
		userIDFloat, ok := claims["id"].(float64)
		if !ok {
			handleAuthError(c, "Token inválido ou expirado")
			return
		}
		userID := uint(userIDFloat)

		cacheKey := fmt.Sprintf("user:%d:identity", userID)
		if config.RDB != nil {
			cached, err := config.RDB.Get(config.Ctx, cacheKey).Result()
			if err == nil {
				var userData CachedUserData
				if json.Unmarshal([]byte(cached), &userData) == nil {
					setContextAndProceed(c, &userData)
					return
				}
				slog.Warn("Failed to unmarshal cached identity", "user_id", userID)
			} else if err != redis.Nil {
				slog.Error("Redis GET command failed", "error", err, "user_id", userID)
			}
		}

		var dbUser models.User
		if err := config.DB.First(&dbUser, userID).Error; err != nil {
			handleAuthError(c, "Usuário do token não existe mais")
			return
		}

		userData := CachedUserData{
			UserID: dbUser.ID,
			Email:  dbUser.Email,
			Name:   dbUser.Name,
			Role:   dbUser.Role,
		}

		if config.RDB != nil {
			if jsonData, err := json.Marshal(userData); err != nil {
				slog.Error("Failed to marshal identity for caching", "error", err, "user_id", userID)
			} else if err := config.RDB.Set(config.Ctx, cacheKey, jsonData, 10*time.Minute).Err(); err != nil {
				slog.Error("Failed to SET identity to cache", "error", err, "user_id", userID)
			}
		}

		setContextAndProceed(c, &userData)
	}
}

func setContextAndProceed(c *gin.Context, userData *CachedUserData) {
	c.Set("user_id", userData.UserID)
	c.Set("email", userData.Email)
	c.Set("name", userData.Name)
	c.Set("role", userData.Role)
	c.Next()
}

// RequireRole barra a requisição quando o papel do usuário não é o exigido.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if current, exists := c.Get("role"); exists {
			if v, ok := current.(string); ok && v == role {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "Sem permissão"})
		c.Abort()
	}
}

// InvalidateIdentityCache remove a identidade cacheada após mudança de perfil.
func InvalidateIdentityCache(userID uint) {
	if config.RDB == nil {
		return
	}
	if err := config.RDB.Del(config.Ctx, fmt.Sprintf("user:%d:identity", userID)).Err(); err != nil {
		slog.Error("Failed to invalidate identity cache", "error", err, "user_id", userID)
	}
}

func handleAuthError(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": message})
	c.Abort()
}
