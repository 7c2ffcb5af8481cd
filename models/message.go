package models

import (
	"time"

	"gorm.io/gorm"
)

// Message é uma mensagem do chat de uma missão (log append-only).
type Message struct {
	gorm.Model
	MissionID        uint       `json:"mission_id" gorm:"not null;index"`
	SenderID         uint       `json:"sender_id" gorm:"not null"`
	Type             string     `json:"type" gorm:"type:varchar(16);not null;default:'text'"`
	Content          string     `json:"content" gorm:"not null"`
	SeenByUserAt     *time.Time `json:"seen_by_user_at"`
	SeenByProviderAt *time.Time `json:"seen_by_provider_at"`
}
