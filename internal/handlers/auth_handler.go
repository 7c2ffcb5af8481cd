package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"appmissao/config"
	"appmissao/internal/middleware"
	"appmissao/models"
)

var digitsOnly = regexp.MustCompile(`\D`)

// RegisterInput aceita o cadastro de cliente ou prestador. Campos de perfil
// profissional só são exigidos quando role = prestador.
type RegisterInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role"`

	CompanyName string `json:"company_name"`
	Document    string `json:"document"`
	Phone       string `json:"phone"`
	Category    string `json:"category"`
}

// RegisterHandler cria o usuário e, para prestador, o perfil profissional na
// mesma transação.
func RegisterHandler(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos"})
		return
	}

	role := input.Role
	if role == "" {
		role = models.RoleCliente
	}
	if role != models.RoleCliente && role != models.RolePrestador {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Papel inválido"})
		return
	}

	document := digitsOnly.ReplaceAllString(input.Document, "")
	phone := digitsOnly.ReplaceAllString(input.Phone, "")
	if role == models.RolePrestador {
		if len(document) != 11 && len(document) != 14 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "CPF ou CNPJ inválido"})
			return
		}
		if len(phone) < 10 || len(phone) > 13 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Telefone inválido"})
			return
		}
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	var count int64
	config.DB.Model(&models.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "E-mail já cadastrado"})
		return
	}
	if role == models.RolePrestador {
		config.DB.Model(&models.Provider{}).Where("document = ?", document).Count(&count)
		if count > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "CPF/CNPJ já cadastrado"})
			return
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao processar a senha"})
		return
	}

	user := models.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: string(hashed),
		Role:         role,
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if role == models.RolePrestador {
			provider := models.Provider{
				UserID:      user.ID,
				CompanyName: strings.TrimSpace(input.CompanyName),
				Document:    document,
				Phone:       phone,
				Category:    strings.TrimSpace(input.Category),
			}
			if err := tx.Create(&provider).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		slog.Error("Failed to register user", "error", err, "email", email)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Não foi possível concluir o cadastro"})
		return
	}

	token, err := issueToken(&user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao gerar o token"})
		return
	}
	slog.Info("User registered", "user_id", user.ID, "role", role)
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": userPayload(&user)})
}

// LoginInput são as credenciais de acesso.
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginHandler autentica por e-mail e senha e devolve o JWT.
func LoginHandler(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos"})
		return
	}

	var user models.User
	err := config.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Error("Login lookup failed", "error", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "E-mail ou senha incorretos"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "E-mail ou senha incorretos"})
		return
	}

	token, err := issueToken(&user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao gerar o token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": userPayload(&user)})
}

// MeHandler devolve o perfil do usuário autenticado; para prestador inclui o
// perfil profissional.
func MeHandler(c *gin.Context) {
	var user models.User
	if err := config.DB.First(&user, currentUserID(c)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Usuário não encontrado"})
		return
	}
	payload := gin.H{"user": userPayload(&user)}
	if user.Role == models.RolePrestador {
		var provider models.Provider
		if err := config.DB.Where("user_id = ?", user.ID).First(&provider).Error; err == nil {
			payload["provider"] = provider
		}
	}
	c.JSON(http.StatusOK, payload)
}

// UpdateMeInput aceita a troca do nome de exibição.
type UpdateMeInput struct {
	Name string `json:"name" binding:"required"`
}

// UpdateMeHandler atualiza o perfil básico do usuário e invalida a identidade
// cacheada para a mudança valer na próxima requisição.
func UpdateMeHandler(c *gin.Context) {
	var input UpdateMeInput
	if err := c.ShouldBindJSON(&input); err != nil || strings.TrimSpace(input.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos"})
		return
	}

	var user models.User
	if err := config.DB.First(&user, currentUserID(c)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Usuário não encontrado"})
		return
	}
	user.Name = strings.TrimSpace(input.Name)
	if err := config.DB.Save(&user).Error; err != nil {
		slog.Error("Failed to update user profile", "error", err, "user_id", user.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Não foi possível atualizar o perfil"})
		return
	}
	middleware.InvalidateIdentityCache(user.ID)
	c.JSON(http.StatusOK, gin.H{"user": userPayload(&user)})
}

// CheckUniqueHandler informa se um e-mail ou documento ainda está livre.
// Usado pelo formulário de cadastro para validação incremental.
func CheckUniqueHandler(c *gin.Context) {
	email := strings.ToLower(strings.TrimSpace(c.Query("email")))
	document := digitsOnly.ReplaceAllString(c.Query("document"), "")
	if email == "" && document == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Informe email ou document"})
		return
	}

	result := gin.H{}
	var count int64
	if email != "" {
		config.DB.Model(&models.User{}).Where("email = ?", email).Count(&count)
		result["email_available"] = count == 0
	}
	if document != "" {
		config.DB.Model(&models.Provider{}).Where("document = ?", document).Count(&count)
		result["document_available"] = count == 0
	}
	c.JSON(http.StatusOK, result)
}

func issueToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
		"role":  user.Role,
		"exp":   time.Now().Add(7 * 24 * time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(config.JwtKey)
}

func userPayload(user *models.User) gin.H {
	return gin.H{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
		"role":  user.Role,
	}
}
