package models

import "gorm.io/gorm"

// Status possíveis de uma missão. 'completed' e 'cancelled' são terminais.
const (
	MissionOpen                 = "open"
	MissionInProgress           = "in_progress"
	MissionAwaitingConfirmation = "awaiting_confirmation"
	MissionCompleted            = "completed"
	MissionCancelled            = "cancelled"
)

// ValidMissionStatus informa se s é um dos cinco status conhecidos.
func ValidMissionStatus(s string) bool {
	switch s {
	case MissionOpen, MissionInProgress, MissionAwaitingConfirmation, MissionCompleted, MissionCancelled:
		return true
	}
	return false
}

// Mission é um serviço publicado por um cliente.
// ProviderID é nulo enquanto status == open e nunca muda depois de atribuído;
// toda mutação de status passa pela máquina de estados, nunca por escrita direta.
type Mission struct {
	gorm.Model
	UserID      uint     `json:"user_id" gorm:"not null;index"`
	ProviderID  *uint    `json:"provider_id" gorm:"index"`
	Title       string   `json:"title" gorm:"not null"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Lat         *float64 `json:"lat" gorm:"type:numeric(9,6)"`
	Lng         *float64 `json:"lng" gorm:"type:numeric(9,6)"`
	Budget      *float64 `json:"budget" gorm:"type:numeric(10,2)"`
	Category    string   `json:"category" gorm:"size:64;index"`
	Status      string   `json:"status" gorm:"type:varchar(32);not null;default:'open';index"`
}
