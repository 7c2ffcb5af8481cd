package models

import "gorm.io/gorm"

const (
	ProposalSent     = "sent"
	ProposalAccepted = "accepted"
	ProposalRejected = "rejected"
)

// Proposal é a oferta de um prestador para uma missão aberta.
type Proposal struct {
	gorm.Model
	MissionID    uint    `json:"mission_id" gorm:"not null;index"`
	UserID       uint    `json:"user_id" gorm:"not null;index"`
	Price        float64 `json:"price" gorm:"type:numeric(10,2);not null"`
	DeadlineDays int     `json:"deadline_days" gorm:"not null"`
	Status       string  `json:"status" gorm:"type:varchar(20);not null;default:'sent'"`
}
