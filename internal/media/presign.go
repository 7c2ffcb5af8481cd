// Package media gera URLs pré-assinadas contra o bucket de mídia (R2/S3).
// O backend nunca recebe o binário: o app envia direto ao bucket e depois
// referencia a URL pública (ou pré-assinada) onde precisar.
package media

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"appmissao/internal/apperr"
)

// Presigner assina PUTs de objetos no bucket de mídia.
type Presigner struct {
	presign   *s3.PresignClient
	bucket    string
	publicURL string
	expiry    time.Duration
}

// FromEnv monta o presigner com R2_ENDPOINT, R2_BUCKET, R2_ACCESS_KEY_ID,
// R2_SECRET_ACCESS_KEY e R2_PUBLIC_URL. Sem endpoint ou bucket devolve nil
// e o recurso de mídia responde 503.
func FromEnv(ctx context.Context) (*Presigner, error) {
	endpoint := os.Getenv("R2_ENDPOINT")
	bucket := os.Getenv("R2_BUCKET")
	if endpoint == "" || bucket == "" {
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			os.Getenv("R2_ACCESS_KEY_ID"), os.Getenv("R2_SECRET_ACCESS_KEY"), "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &Presigner{
		presign:   s3.NewPresignClient(client),
		bucket:    bucket,
		publicURL: strings.TrimRight(os.Getenv("R2_PUBLIC_URL"), "/"),
		expiry:    10 * time.Minute,
	}, nil
}

// Upload é o resultado da pré-assinatura.
type Upload struct {
	UploadURL   string `json:"upload_url"`
	PublicURL   string `json:"public_url"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
}

var allowedExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
	".m4a": true, ".mp3": true, ".ogg": true, ".pdf": true,
}

// Escopos delimitam os prefixos de chave permitidos no bucket.
var allowedScopes = map[string]bool{
	"chat": true, "mission": true, "portfolio": true, "profile": true,
}

// PresignUpload assina o PUT de um objeto <scope>/<uuid><ext>. Escopo vazio
// cai em chat, o caso mais comum.
func (p *Presigner) PresignUpload(ctx context.Context, scope, filename string) (*Upload, error) {
	if p == nil {
		return nil, apperr.Gateway(0, "media-unavailable", "Armazenamento de mídia não configurado")
	}
	if scope == "" {
		scope = "chat"
	}
	if !allowedScopes[scope] {
		return nil, apperr.InvalidArgument("Escopo de mídia inválido")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return nil, apperr.InvalidArgument("Tipo de arquivo não suportado")
	}
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := scope + "/" + uuid.New().String() + ext

	req, err := p.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(p.expiry))
	if err != nil {
		return nil, apperr.Gateway(0, "media-presign", "Falha ao assinar upload")
	}

	public := ""
	if p.publicURL != "" {
		public = p.publicURL + "/" + key
	}
	return &Upload{UploadURL: req.URL, PublicURL: public, Key: key, ContentType: contentType}, nil
}

// PresignGet assina a leitura de um objeto já enviado. Útil quando o bucket
// não expõe URL pública.
func (p *Presigner) PresignGet(ctx context.Context, key string) (string, error) {
	if p == nil {
		return "", apperr.Gateway(0, "media-unavailable", "Armazenamento de mídia não configurado")
	}
	scope, _, found := strings.Cut(key, "/")
	if !found || !allowedScopes[scope] {
		return "", apperr.InvalidArgument("Chave de mídia inválida")
	}
	req, err := p.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.expiry))
	if err != nil {
		return "", apperr.Gateway(0, "media-presign", "Falha ao assinar download")
	}
	return req.URL, nil
}
