// Package notify entrega notificações push aos dispositivos registrados,
// filtrando pelo opt-in por categoria de cada usuário. Tudo aqui é
// best-effort: falha nunca propaga para a operação que disparou o aviso.
package notify

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"appmissao/internal/effects"
	"appmissao/models"
)

// Sender empurra uma notificação para um token de dispositivo. A entrega
// real (FCM/APNs) fica atrás desta interface; o default apenas loga.
type Sender interface {
	Send(ctx context.Context, token, platform, title, body string, data map[string]any) error
}

// LogSender é o Sender padrão quando nenhum provedor de push está configurado.
type LogSender struct{}

func (LogSender) Send(_ context.Context, token, platform, title, body string, _ map[string]any) error {
	slog.Info("Push delivery (log only)", "token_prefix", prefix(token), "platform", platform, "title", title)
	return nil
}

func prefix(token string) string {
	if len(token) > 12 {
		return token[:12]
	}
	return token
}

// Service consulta preferências e dispositivos e despacha pelo Sender.
type Service struct {
	DB     *gorm.DB
	Sender Sender
}

func NewService(db *gorm.DB, sender Sender) *Service {
	if sender == nil {
		sender = LogSender{}
	}
	return &Service{DB: db, Sender: sender}
}

// Notify envia title/body para os usuários informados, pulando quem desativou
// a categoria. Usuário sem linha de preferência conta como tudo habilitado.
func (s *Service) Notify(ctx context.Context, userIDs []uint, category, title, body string, data map[string]any) effects.Outcome {
	if s == nil || len(userIDs) == 0 {
		return effects.Skipped
	}
	sent := 0
	failed := 0
	for _, userID := range userIDs {
		if userID == 0 {
			continue
		}
		if !s.allowed(userID, category) {
			continue
		}
		var devices []models.NotificationDevice
		if err := s.DB.Where("user_id = ?", userID).Order("last_seen_at DESC").Find(&devices).Error; err != nil {
			slog.Error("Failed to load notification devices", "user_id", userID, "error", err)
			failed++
			continue
		}
		for _, d := range devices {
			if err := s.Sender.Send(ctx, d.Token, d.Platform, title, body, data); err != nil {
				slog.Warn("Push delivery failed", "user_id", userID, "error", err)
				failed++
				continue
			}
			sent++
		}
	}
	switch {
	case sent > 0:
		return effects.Succeeded
	case failed > 0:
		return effects.FailedIgnored
	default:
		return effects.Skipped
	}
}

func (s *Service) allowed(userID uint, category string) bool {
	var pref models.NotificationPref
	err := s.DB.Where("user_id = ?", userID).Limit(1).Find(&pref).Error
	if err != nil {
		slog.Error("Failed to load notification prefs", "user_id", userID, "error", err)
		return true
	}
	if pref.ID == 0 {
		return true
	}
	return pref.Allows(category)
}
