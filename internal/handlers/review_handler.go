package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"appmissao/config"
	"appmissao/models"
)

// CreateReviewInput é a avaliação do cliente sobre o prestador.
type CreateReviewInput struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

// CreateReviewHandler registra a avaliação de uma missão concluída. Uma por
// avaliador por missão; o agregado do prestador é recalculado na transação.
func CreateReviewHandler(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input CreateReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos"})
		return
	}
	if input.Rating < 1 || input.Rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nota deve ser de 1 a 5"})
		return
	}

	var mission models.Mission
	if err := config.DB.First(&mission, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Missão não encontrada"})
		return
	}
	userID := currentUserID(c)
	if mission.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Sem permissão"})
		return
	}
	if mission.Status != models.MissionCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "Missão ainda não concluída"})
		return
	}
	if mission.ProviderID == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Missão sem prestador"})
		return
	}

	var count int64
	config.DB.Model(&models.Review{}).
		Where("mission_id = ? AND rater_id = ?", id, userID).Count(&count)
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Missão já avaliada"})
		return
	}

	comment := strings.TrimSpace(input.Comment)
	review := models.Review{
		MissionID:  id,
		RaterID:    userID,
		ProviderID: *mission.ProviderID,
		Rating:     input.Rating,
		Comment:    comment,
		Status:     "published",
	}
	if strings.Contains(comment, "http://") || strings.Contains(comment, "https://") {
		review.AbuseFlags = "link"
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&review).Error; err != nil {
			return err
		}
		return recalcProviderRating(tx, review.ProviderID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Não foi possível salvar a avaliação"})
		return
	}
	c.JSON(http.StatusCreated, review)
}

// recalcProviderRating recalcula média e total de avaliações publicadas.
func recalcProviderRating(tx *gorm.DB, providerUserID uint) error {
	type agg struct {
		Avg   float64
		Total int64
	}
	var a agg
	if err := tx.Model(&models.Review{}).
		Select("coalesce(avg(rating), 0) as avg, count(*) as total").
		Where("provider_id = ? AND status = ?", providerUserID, "published").
		Scan(&a).Error; err != nil {
		return err
	}
	now := time.Now()
	return tx.Model(&models.Provider{}).
		Where("user_id = ?", providerUserID).
		Updates(map[string]interface{}{
			"rating_avg":     a.Avg,
			"rating_count":   a.Total,
			"last_review_at": &now,
		}).Error
}

// ProviderReviewsHandler lista as avaliações publicadas de um prestador.
func ProviderReviewsHandler(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var totalRows int64
	query := config.DB.Model(&models.Review{}).
		Where("provider_id = ? AND status = ?", id, "published")
	query.Count(&totalRows)

	var reviews []models.Review
	if err := query.Order("created_at DESC").Scopes(Paginate(c)).Find(&reviews).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Não foi possível listar as avaliações"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, reviews, totalRows))
}

// ProviderRatingHandler devolve o agregado de reputação de um prestador.
func ProviderRatingHandler(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var provider models.Provider
	if err := config.DB.Where("user_id = ?", id).First(&provider).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Prestador não encontrado"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rating_avg":     provider.RatingAvg,
		"rating_count":   provider.RatingCount,
		"last_review_at": provider.LastReviewAt,
	})
}

// FeaturedProvidersHandler lista os prestadores em destaque, ordenados por
// reputação.
func FeaturedProvidersHandler(c *gin.Context) {
	var result []models.Provider
	query := config.DB.Model(&models.Provider{}).Where("rating_count > 0")
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Order("rating_avg DESC, rating_count DESC").Limit(10).Find(&result).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Não foi possível listar os prestadores"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GetMyProviderHandler devolve o perfil profissional do prestador autenticado.
func GetMyProviderHandler(c *gin.Context) {
	var provider models.Provider
	if err := config.DB.Where("user_id = ?", currentUserID(c)).First(&provider).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Perfil de prestador não encontrado"})
		return
	}
	c.JSON(http.StatusOK, provider)
}

// UpdateMyProviderInput são os campos editáveis do perfil profissional.
// Documento não é editável depois do cadastro.
type UpdateMyProviderInput struct {
	CompanyName     *string `json:"company_name"`
	Phone           *string `json:"phone"`
	Category        *string `json:"category"`
	Bio             *string `json:"bio"`
	ServiceRadiusKm *int    `json:"service_radius_km"`
}

// UpdateMyProviderHandler atualiza o perfil profissional do prestador.
func UpdateMyProviderHandler(c *gin.Context) {
	var provider models.Provider
	if err := config.DB.Where("user_id = ?", currentUserID(c)).First(&provider).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Perfil de prestador não encontrado"})
		return
	}
	var input UpdateMyProviderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos"})
		return
	}

	updates := map[string]interface{}{}
	if input.CompanyName != nil {
		updates["company_name"] = strings.TrimSpace(*input.CompanyName)
	}
	if input.Phone != nil {
		phone := digitsOnly.ReplaceAllString(*input.Phone, "")
		if len(phone) < 10 || len(phone) > 13 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Telefone inválido"})
			return
		}
		updates["phone"] = phone
	}
	if input.Category != nil {
		updates["category"] = strings.TrimSpace(*input.Category)
	}
	if input.Bio != nil {
		updates["bio"] = strings.TrimSpace(*input.Bio)
	}
	if input.ServiceRadiusKm != nil {
		if *input.ServiceRadiusKm < 1 || *input.ServiceRadiusKm > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Raio de atendimento inválido"})
			return
		}
		updates["service_radius_km"] = *input.ServiceRadiusKm
	}
	if len(updates) == 0 {
		c.JSON(http.StatusOK, provider)
		return
	}
	if err := config.DB.Model(&provider).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Não foi possível atualizar o perfil"})
		return
	}
	c.JSON(http.StatusOK, provider)
}
