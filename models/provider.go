package models

import (
	"time"

	"gorm.io/gorm"
)

// Provider é o perfil de prestador vinculado a um usuário com papel 'prestador'.
type Provider struct {
	gorm.Model
	UserID          uint       `json:"user_id" gorm:"not null;index"`
	CompanyName     string     `json:"company_name" gorm:"not null"`
	Document        string     `json:"document" gorm:"size:32;not null;uniqueIndex"`
	Phone           string     `json:"phone" gorm:"size:32"`
	Category        string     `json:"category" gorm:"size:64"`
	Bio             string     `json:"bio"`
	ServiceRadiusKm int        `json:"service_radius_km" gorm:"not null;default:25"`
	RatingAvg       float64    `json:"rating_avg" gorm:"type:numeric(4,2);not null;default:0"`
	RatingCount     int        `json:"rating_count" gorm:"not null;default:0"`
	LastReviewAt    *time.Time `json:"last_review_at"`
}
