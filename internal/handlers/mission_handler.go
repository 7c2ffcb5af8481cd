package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"appmissao/config"
	"appmissao/internal/missions"
	"appmissao/internal/store"
	"appmissao/models"
)

// CreateMissionInput são os campos aceitos na publicação de uma missão.
type CreateMissionInput struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Category    string   `json:"category"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	Budget      *float64 `json:"budget"`
}

// CreateMissionHandler publica a missão. Com budget positivo o depósito é
// disparado automaticamente; falha do processador não impede a publicação.
func CreateMissionHandler(c *gin.Context) {
	if currentRole(c) != models.RoleCliente {
		c.JSON(http.StatusForbidden, gin.H{"error": "Sem permissão"})
		return
	}
	var input CreateMissionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos"})
		return
	}

	result, err := MissionSvc.Create(c.Request.Context(), currentUserID(c), currentEmail(c), missions.CreateInput{
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		Category:    input.Category,
		Lat:         input.Lat,
		Lng:         input.Lng,
		Budget:      input.Budget,
	})
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"mission": result.Mission,
		"deposit": result.Deposit.String(),
	})
}

// ListMissionsHandler devolve as missões abertas para descoberta, com filtros
// opcionais de categoria, busca textual e raio geográfico (haversine).
func ListMissionsHandler(c *gin.Context) {
	query := config.DB.Model(&models.Mission{}).Where("status = ?", models.MissionOpen)

	if category := strings.TrimSpace(c.Query("category")); category != "" {
		query = query.Where("category = ?", category)
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := "%" + q + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ?", like, like)
	}

	if minStr := c.Query("min_budget"); minStr != "" {
		if min, err := strconv.ParseFloat(minStr, 64); err == nil {
			query = query.Where("budget >= ?", min)
		}
	}
	if maxStr := c.Query("max_budget"); maxStr != "" {
		if max, err := strconv.ParseFloat(maxStr, 64); err == nil {
			query = query.Where("budget <= ?", max)
		}
	}

	latStr, lngStr := c.Query("lat"), c.Query("lng")
	if latStr != "" && lngStr != "" {
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lng, errLng := strconv.ParseFloat(lngStr, 64)
		if errLat != nil || errLng != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Coordenadas inválidas"})
			return
		}
		radiusKm := 25.0
		if r, err := strconv.ParseFloat(c.Query("radius_km"), 64); err == nil && r > 0 {
			radiusKm = r
		}
		// Distância esférica em km; 6371 é o raio médio da Terra.
		haversine := "6371 * acos(least(1.0, cos(radians(?)) * cos(radians(lat)) * cos(radians(lng) - radians(?)) + sin(radians(?)) * sin(radians(lat))))"
		query = query.Where("lat IS NOT NULL AND lng IS NOT NULL").
			Where(haversine+" <= ?", lat, lng, lat, radiusKm)
	}

	var totalRows int64
	query.Count(&totalRows)

	var result []models.Mission
	if err := query.Order("created_at DESC").Scopes(Paginate(c)).Find(&result).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Não foi possível listar as missões"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, result, totalRows))
}

// MyMissionsHandler lista as missões publicadas pelo usuário autenticado.
func MyMissionsHandler(c *gin.Context) {
	var result []models.Mission
	if err := config.DB.Where("user_id = ?", currentUserID(c)).
		Order("created_at DESC").Find(&result).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Não foi possível listar as missões"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// AssignedMissionsHandler lista as missões atribuídas ao prestador autenticado.
func AssignedMissionsHandler(c *gin.Context) {
	if currentRole(c) != models.RolePrestador {
		c.JSON(http.StatusForbidden, gin.H{"error": "Sem permissão"})
		return
	}
	var result []models.Mission
	if err := config.DB.Where("provider_id = ?", currentUserID(c)).
		Order("updated_at DESC").Find(&result).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Não foi possível listar as missões"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GetMissionHandler devolve uma missão. Missões abertas são públicas; fora
// disso só os participantes enxergam.
func GetMissionHandler(c *gin.Context) {
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
	isParticipant := mission.UserID == userID ||
		(mission.ProviderID != nil && *mission.ProviderID == userID)
	if mission.Status != models.MissionOpen && !isParticipant {
		c.JSON(http.StatusForbidden, gin.H{"error": "Sem permissão"})
		return
	}
	c.JSON(http.StatusOK, mission)
}

// UpdateMissionInput é a atualização parcial do dono. Campos omitidos não são
// tocados.
type UpdateMissionInput struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Location    *string  `json:"location"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	Budget      *float64 `json:"budget"`
	Status      *string  `json:"status"`
}

// UpdateMissionHandler aplica o PATCH do dono. Transição para completed
// libera os pagamentos aprovados; para cancelled libera apenas o depósito.
func UpdateMissionHandler(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input UpdateMissionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos"})
		return
	}

	result, err := MissionSvc.Patch(c.Request.Context(), id, currentUserID(c), store.MissionPatch{
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		Lat:         input.Lat,
		Lng:         input.Lng,
		Budget:      input.Budget,
		Status:      input.Status,
	})
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"mission": result.Mission,
		"release": result.Release.String(),
	})
}

// AcceptMissionHandler atribui a missão ao prestador autenticado. Entre dois
// prestadores concorrentes, só um recebe 200; o outro recebe 409.
func AcceptMissionHandler(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	mission, err := MissionSvc.Accept(c.Request.Context(), id, currentUserID(c), currentRole(c))
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, mission)
}

// ProviderStatusInput sinaliza o novo status reportado pelo prestador.
type ProviderStatusInput struct {
	Status string `json:"status" binding:"required"`
}

// ProviderStatusHandler permite ao prestador atribuído marcar
// awaiting_confirmation (dispara a cobrança do restante) ou cancelled.
func ProviderStatusHandler(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input ProviderStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos"})
		return
	}
	result, err := MissionSvc.SetProviderStatus(c.Request.Context(), id, currentUserID(c), currentRole(c), input.Status)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"mission":   result.Mission,
		"remainder": result.Remainder.String(),
	})
}
