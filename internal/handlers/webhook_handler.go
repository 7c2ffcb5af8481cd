package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// webhookBody aceita os dois formatos que o Mercado Pago envia: corpo JSON
// {type, data.id} e querystring ?topic=payment&id=....
type webhookBody struct {
	Type string `json:"type"`
	Data struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// MPWebhookHandler processa a notificação do processador. A resposta é
// sempre 200: falha interna não pode fazer o MP reentregar para sempre, a
// reconciliação alcança o mesmo estado pelo upsert idempotente.
func MPWebhookHandler(c *gin.Context) {
	var body webhookBody
	_ = c.ShouldBindJSON(&body)

	notifType := body.Type
	if notifType == "" {
		notifType = c.Query("topic")
	}
	if notifType == "" {
		notifType = c.Query("type")
	}

	paymentID, _ := body.Data.ID.Int64()
	if paymentID == 0 {
		if raw := c.Query("data.id"); raw != "" {
			paymentID, _ = strconv.ParseInt(raw, 10, 64)
		} else if raw := c.Query("id"); raw != "" {
			paymentID, _ = strconv.ParseInt(raw, 10, 64)
		}
	}

	result, err := PaymentSvc.HandleWebhook(c.Request.Context(), notifType, paymentID)
	if err != nil {
		slog.Error("Webhook processing failed", "type", notifType, "payment_id", paymentID, "error", err)
	} else if !result.Ignored {
		slog.Info("Webhook processed", "payment_id", result.PaymentID,
			"status", result.Status, "mission_id", result.MissionID, "advance", result.Advance.String())
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
