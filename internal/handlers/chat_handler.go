package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"appmissao/config"
	"appmissao/models"
)

// ChatSummaryItem resume uma conversa (uma missão com prestador atribuído).
type ChatSummaryItem struct {
	Mission     models.Mission  `json:"mission"`
	LastMessage *models.Message `json:"last_message"`
	UnreadCount int64           `json:"unread_count"`
}

// ListChatsHandler lista as conversas do usuário: cada missão com prestador
// atribuído da qual ele participa, com a última mensagem e o contador de não
// lidas.
func ListChatsHandler(c *gin.Context) {
	userID := currentUserID(c)

	var missionsList []models.Mission
	if err := config.DB.
		Where("provider_id IS NOT NULL").
		Where("user_id = ? OR provider_id = ?", userID, userID).
		Order("updated_at DESC").Find(&missionsList).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Não foi possível listar as conversas"})
		return
	}

	response := make([]ChatSummaryItem, 0, len(missionsList))
	for _, mission := range missionsList {
		item := ChatSummaryItem{Mission: mission}

		var last models.Message
		if err := config.DB.Where("mission_id = ?", mission.ID).
			Order("created_at DESC").Limit(1).First(&last).Error; err == nil {
			item.LastMessage = &last
		}

		seenColumn := "seen_by_provider_at"
		if mission.UserID == userID {
			seenColumn = "seen_by_user_at"
		}
		config.DB.Model(&models.Message{}).
			Where("mission_id = ? AND sender_id != ? AND "+seenColumn+" IS NULL", mission.ID, userID).
			Count(&item.UnreadCount)

		response = append(response, item)
	}
	c.JSON(http.StatusOK, gin.H{"data": response})
}

// ListMessagesHandler devolve o histórico paginado da conversa e marca como
// lidas as mensagens recebidas.
func ListMessagesHandler(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	mission, ok := chatParticipantMission(c, id)
	if !ok {
		return
	}
	userID := currentUserID(c)

	var messages []models.Message
	if err := config.DB.Where("mission_id = ?", id).
		Order("created_at DESC").Scopes(Paginate(c)).
		Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Não foi possível carregar as mensagens"})
		return
	}

	seenColumn := "seen_by_provider_at"
	if mission.UserID == userID {
		seenColumn = "seen_by_user_at"
	}
	config.DB.Model(&models.Message{}).
		Where("mission_id = ? AND sender_id != ? AND "+seenColumn+" IS NULL", id, userID).
		Update(seenColumn, time.Now())

	c.JSON(http.StatusOK, gin.H{"data": messages})
}

// SendMessageInput é a mensagem enviada na conversa da missão.
type SendMessageInput struct {
	Content string `json:"content" binding:"required"`
	Type    string `json:"type"`
}

// SendMessageHandler grava a mensagem, deduplicando reenvios do app (mesma
// missão, remetente e conteúdo em até 3s), publica chat_message no hub e
// notifica o outro participante.
func SendMessageHandler(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	mission, ok := chatParticipantMission(c, id)
	if !ok {
		return
	}
	// Missão encerrada mantém o histórico legível mas não aceita mensagem nova.
	if mission.Status == models.MissionCompleted || mission.Status == models.MissionCancelled {
		c.JSON(http.StatusConflict, gin.H{"error": "Conversa encerrada"})
		return
	}
	var input SendMessageInput
	if err := c.ShouldBindJSON(&input); err != nil || strings.TrimSpace(input.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Mensagem vazia"})
		return
	}
	msgType := input.Type
	if msgType == "" {
		msgType = "text"
	}
	userID := currentUserID(c)
	content := strings.TrimSpace(input.Content)

	var duplicate models.Message
	err := config.DB.
		Where("mission_id = ? AND sender_id = ? AND content = ? AND created_at > ?",
			id, userID, content, time.Now().Add(-3*time.Second)).
		First(&duplicate).Error
	if err == nil {
		c.JSON(http.StatusOK, duplicate)
		return
	}

	message := models.Message{
		MissionID: id,
		SenderID:  userID,
		Type:      msgType,
		Content:   content,
	}
	if err := config.DB.Create(&message).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Não foi possível enviar a mensagem"})
		return
	}

	Hub.Publish("chat_message", message)

	recipient := mission.UserID
	if recipient == userID && mission.ProviderID != nil {
		recipient = *mission.ProviderID
	}
	if recipient != userID {
		preview := content
		if len(preview) > 80 {
			preview = preview[:80]
		}
		NotifySvc.Notify(c.Request.Context(), []uint{recipient}, "chat", "Nova mensagem", preview,
			map[string]any{"mission_id": mission.ID, "message_id": message.ID})
	}

	c.JSON(http.StatusCreated, message)
}

// chatParticipantMission carrega a missão e barra quem não participa dela.
func chatParticipantMission(c *gin.Context, missionID uint) (*models.Mission, bool) {
	var mission models.Mission
	if err := config.DB.First(&mission, missionID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Missão não encontrada"})
		return nil, false
	}
	userID := currentUserID(c)
	if mission.UserID != userID && (mission.ProviderID == nil || *mission.ProviderID != userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Sem permissão"})
		return nil, false
	}
	return &mission, true
}
