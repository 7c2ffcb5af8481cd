package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"appmissao/config"
	"appmissao/models"
)

// RegisterDeviceInput registra um token de push do app.
type RegisterDeviceInput struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform"`
}

// RegisterDeviceHandler faz upsert do token (user_id, token): reenvio do
// mesmo token só renova last_seen_at.
func RegisterDeviceHandler(c *gin.Context) {
	var input RegisterDeviceInput
	if err := c.ShouldBindJSON(&input); err != nil || strings.TrimSpace(input.Token) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token inválido"})
		return
	}

	device := models.NotificationDevice{
		UserID:     currentUserID(c),
		Token:      strings.TrimSpace(input.Token),
		Platform:   input.Platform,
		LastSeenAt: time.Now(),
	}
	err := config.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"platform", "last_seen_at", "updated_at"}),
	}).Create(&device).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Não foi possível registrar o dispositivo"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"registered": true})
}

// GetPrefsHandler devolve as preferências de notificação; sem linha salva,
// tudo habilitado.
func GetPrefsHandler(c *gin.Context) {
	var pref models.NotificationPref
	err := config.DB.Where("user_id = ?", currentUserID(c)).First(&pref).Error
	if err != nil {
		pref = models.NotificationPref{
			UserID:       currentUserID(c),
			AllowPayment: true,
			AllowMission: true,
			AllowChat:    true,
			AllowGeneral: true,
		}
	}
	c.JSON(http.StatusOK, pref)
}

// UpdatePrefsInput atualiza o opt-in por categoria. Campos omitidos mantêm o
// valor atual.
type UpdatePrefsInput struct {
	AllowPayment *bool `json:"allow_payment"`
	AllowMission *bool `json:"allow_mission"`
	AllowChat    *bool `json:"allow_chat"`
	AllowGeneral *bool `json:"allow_general"`
}

// UpdatePrefsHandler grava as preferências, criando a linha no primeiro uso.
func UpdatePrefsHandler(c *gin.Context) {
	var input UpdatePrefsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos"})
		return
	}
	userID := currentUserID(c)

	var pref models.NotificationPref
	err := config.DB.Where("user_id = ?", userID).First(&pref).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Não foi possível carregar as preferências"})
			return
		}
		pref = models.NotificationPref{
			UserID:       userID,
			AllowPayment: true,
			AllowMission: true,
			AllowChat:    true,
			AllowGeneral: true,
		}
	}

	if input.AllowPayment != nil {
		pref.AllowPayment = *input.AllowPayment
	}
	if input.AllowMission != nil {
		pref.AllowMission = *input.AllowMission
	}
	if input.AllowChat != nil {
		pref.AllowChat = *input.AllowChat
	}
	if input.AllowGeneral != nil {
		pref.AllowGeneral = *input.AllowGeneral
	}

	if err := config.DB.Save(&pref).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Não foi possível salvar as preferências"})
		return
	}
	c.JSON(http.StatusOK, pref)
}

// TestPushHandler dispara um push de teste para o próprio usuário.
func TestPushHandler(c *gin.Context) {
	outcome := NotifySvc.Notify(c.Request.Context(), []uint{currentUserID(c)},
		"general", "Teste", "Notificações funcionando", nil)
	c.JSON(http.StatusOK, gin.H{"outcome": outcome.String()})
}
