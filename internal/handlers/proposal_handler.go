package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"appmissao/config"
	"appmissao/models"
)

// CreateProposalInput é a oferta do prestador sobre uma missão aberta.
type CreateProposalInput struct {
	MissionID    uint    `json:"mission_id" binding:"required"`
	Price        float64 `json:"price"`
	DeadlineDays int     `json:"deadline_days"`
}

// CreateProposalHandler registra a proposta do prestador autenticado.
func CreateProposalHandler(c *gin.Context) {
	var input CreateProposalInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos"})
		return
	}
	proposal, err := ProposalSvc.Submit(c.Request.Context(),
		input.MissionID, currentUserID(c), currentRole(c), input.Price, input.DeadlineDays)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, proposal)
}

// ListMissionProposalsHandler lista as propostas de uma missão. O dono vê
// todas; o prestador vê apenas as próprias.
func ListMissionProposalsHandler(c *gin.Context) {
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
	query := config.DB.Where("mission_id = ?", id)
	switch {
	case mission.UserID == userID:
		// dono vê todas
	case currentRole(c) == models.RolePrestador:
		query = query.Where("user_id = ?", userID)
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "Sem permissão"})
		return
	}

	var result []models.Proposal
	if err := query.Order("created_at DESC").Find(&result).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Não foi possível listar as propostas"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// DecideProposalInput é a decisão do dono da missão.
type DecideProposalInput struct {
	Status string `json:"status" binding:"required"`
}

// DecideProposalHandler aceita ou rejeita uma proposta. Aceitar move a missão
// para in_progress com o prestador da proposta e rejeita as demais.
func DecideProposalHandler(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input DecideProposalInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos"})
		return
	}
	proposal, err := ProposalSvc.Decide(c.Request.Context(), id, currentUserID(c), input.Status)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, proposal)
}

// ProposalStatsHandler devolve os contadores de propostas do prestador.
func ProposalStatsHandler(c *gin.Context) {
	if currentRole(c) != models.RolePrestador {
		c.JSON(http.StatusForbidden, gin.H{"error": "Sem permissão"})
		return
	}
	userID := currentUserID(c)

	type row struct {
		Status string
		Total  int64
	}
	var rows []row
	if err := config.DB.Model(&models.Proposal{}).
		Select("status, count(*) as total").
		Where("user_id = ?", userID).
		Group("status").Scan(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Não foi possível calcular as estatísticas"})
		return
	}

	stats := gin.H{
		models.ProposalSent:     int64(0),
		models.ProposalAccepted: int64(0),
		models.ProposalRejected: int64(0),
	}
	var total int64
	for _, r := range rows {
		stats[r.Status] = r.Total
		total += r.Total
	}
	stats["total"] = total
	c.JSON(http.StatusOK, stats)
}
