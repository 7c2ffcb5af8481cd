package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationDevice é um token de push registrado por um usuário.
type NotificationDevice struct {
	gorm.Model
	UserID     uint      `json:"user_id" gorm:"not null;uniqueIndex:uniq_user_token,priority:1"`
	Token      string    `json:"token" gorm:"size:512;not null;uniqueIndex:uniq_user_token,priority:2"`
	Platform   string    `json:"platform" gorm:"size:32"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// NotificationPref guarda o opt-in por categoria de notificação.
// Uma linha por usuário; criada com tudo habilitado no primeiro acesso.
type NotificationPref struct {
	gorm.Model
	UserID       uint `json:"user_id" gorm:"not null;uniqueIndex"`
	AllowPayment bool `json:"allow_payment" gorm:"not null;default:true"`
	AllowMission bool `json:"allow_mission" gorm:"not null;default:true"`
	AllowChat    bool `json:"allow_chat" gorm:"not null;default:true"`
	AllowGeneral bool `json:"allow_general" gorm:"not null;default:true"`
}

// Allows responde se a categoria está habilitada para o usuário.
func (p NotificationPref) Allows(category string) bool {
	switch category {
	case "payment":
		return p.AllowPayment
	case "mission":
		return p.AllowMission
	case "chat":
		return p.AllowChat
	default:
		return p.AllowGeneral
	}
}
