package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PresignUploadInput pede a URL de upload de um arquivo. Scope delimita o
// prefixo no bucket (chat, mission, portfolio, profile); vazio cai em chat.
type PresignUploadInput struct {
	Filename string `json:"filename" binding:"required"`
	Scope    string `json:"scope"`
}

// PresignUploadHandler devolve a URL pré-assinada de PUT no bucket de mídia.
func PresignUploadHandler(c *gin.Context) {
	var input PresignUploadInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos"})
		return
	}
	upload, err := MediaSigner.PresignUpload(c.Request.Context(), input.Scope, input.Filename)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, upload)
}

// PresignDownloadHandler devolve uma URL de leitura pré-assinada para uma
// chave já existente no bucket.
func PresignDownloadHandler(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos"})
		return
	}
	url, err := MediaSigner.PresignGet(c.Request.Context(), key)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
