package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"appmissao/config"
	"appmissao/internal/payments"
	"appmissao/models"
)

// PreferenceInput seleciona qual parcela cobrar via checkout hospedado.
type PreferenceInput struct {
	Kind string `json:"kind"`
}

// CreatePreferenceHandler cria explicitamente uma preferência de pagamento
// para a missão. Só o dono pode pedir; erro do processador propaga (502/503).
func CreatePreferenceHandler(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input PreferenceInput
	if err := c.ShouldBindJSON(&input); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos"})
		return
	}
	kind := input.Kind
	if kind == "" {
		kind = models.PaymentKindFull
	}
	result, err := PaymentSvc.RequestPreference(c.Request.Context(), id, currentUserID(c), kind, currentEmail(c))
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ChargeCardInput são os dados do Brick de cartão.
type ChargeCardInput struct {
	Kind                 string `json:"kind"`
	Token                string `json:"token" binding:"required"`
	PaymentMethodID      string `json:"payment_method_id" binding:"required"`
	Installments         int    `json:"installments"`
	IssuerID             *int   `json:"issuer_id"`
	IdentificationType   string `json:"identification_type"`
	IdentificationNumber string `json:"identification_number"`
	PayerEmail           string `json:"payer_email"`
}

// ChargeCardHandler cobra o cartão de forma síncrona. Aprovado move a missão
// para in_progress na mesma resposta.
func ChargeCardHandler(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input ChargeCardInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados de cartão incompletos"})
		return
	}
	payerEmail := input.PayerEmail
	if payerEmail == "" {
		payerEmail = currentEmail(c)
	}
	result, err := PaymentSvc.ChargeCard(c.Request.Context(), id, currentUserID(c), payments.ChargeCardInput{
		Kind:                 input.Kind,
		CardToken:            input.Token,
		PaymentMethodID:      input.PaymentMethodID,
		Installments:         input.Installments,
		IssuerID:             input.IssuerID,
		IdentificationType:   input.IdentificationType,
		IdentificationNumber: input.IdentificationNumber,
		PayerEmail:           payerEmail,
	})
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListMissionPaymentsHandler lista o ledger de uma missão para os
// participantes.
func ListMissionPaymentsHandler(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var mission models.Mission
	if err := config.DB.First(&mission, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Missão não encontrada"})
		return
	}
	userID := currentUserID(c)
	if mission.UserID != userID && (mission.ProviderID == nil || *mission.ProviderID != userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Sem permissão"})
		return
	}

	rows, err := paymentStore.ListByMission(id)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

// GetPaymentHandler devolve uma linha do ledger para um participante da
// missão correspondente.
func GetPaymentHandler(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	payment, err := paymentStore.Get(id)
	if err != nil {
		writeAppError(c, err)
		return
	}
	var mission models.Mission
	if err := config.DB.First(&mission, payment.MissionID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Missão não encontrada"})
		return
	}
	userID := currentUserID(c)
	if mission.UserID != userID && (mission.ProviderID == nil || *mission.ProviderID != userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Sem permissão"})
		return
	}
	c.JSON(http.StatusOK, payment)
}

// RefundInput permite estorno parcial; amount 0 estorna o total.
type RefundInput struct {
	Amount float64 `json:"amount"`
}

// RefundPaymentHandler solicita o estorno de um pagamento ao processador.
func RefundPaymentHandler(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input RefundInput
	if err := c.ShouldBindJSON(&input); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos"})
		return
	}
	refunds, err := PaymentSvc.Refund(c.Request.Context(), id, currentUserID(c), input.Amount)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refunds": refunds})
}

// MPPublicKeyHandler expõe a public key usada pelo Brick no app.
func MPPublicKeyHandler(c *gin.Context) {
	if config.MP == nil || config.MP.PublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Mercado Pago não configurado"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"public_key": config.MP.PublicKey})
}

// MPStatusHandler informa se o processador está configurado.
func MPStatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"configured": config.MP.Configured()})
}

// ExportPaymentsHandler gera uma planilha xlsx com o ledger do usuário
// autenticado (pagador ou recebedor), opcionalmente restrito a uma missão
// via ?mission_id=.
func ExportPaymentsHandler(c *gin.Context) {
	userID := currentUserID(c)
	query := config.DB.Where("user_id = ? OR provider_id = ?", userID, userID)
	if missionStr := c.Query("mission_id"); missionStr != "" {
		query = query.Where("mission_id = ?", missionStr)
	}
	var rows []models.Payment
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Não foi possível exportar os pagamentos"})
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Pagamentos"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "Missão", "Referência", "Valor", "Moeda", "Status", "Detalhe", "Método", "MP Payment ID", "Criado em"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	for i, p := range rows {
		values := []interface{}{
			p.ID, p.MissionID, p.ExternalRef, p.Amount, p.Currency,
			p.Status, p.StatusDetail, p.PaymentMethodID, p.MPPaymentID,
			p.CreatedAt.Format("02/01/2006 15:04"),
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	filename := fmt.Sprintf("pagamentos_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao gerar a planilha"})
	}
}
