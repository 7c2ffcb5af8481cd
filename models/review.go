package models

import "gorm.io/gorm"

// Review é a avaliação do cliente após a conclusão de uma missão.
type Review struct {
	gorm.Model
	MissionID  uint   `json:"mission_id" gorm:"not null;uniqueIndex:uniq_mission_rater,priority:1"`
	ProviderID uint   `json:"provider_id" gorm:"not null;index"`
	RaterID    uint   `json:"rater_id" gorm:"not null;uniqueIndex:uniq_mission_rater,priority:2"`
	Rating     int    `json:"rating" gorm:"not null"`
	Comment    string `json:"comment"`
	Status     string `json:"status" gorm:"type:varchar(16);not null;default:'published'"`
	Moderated  bool   `json:"moderated" gorm:"not null;default:false"`
	AbuseFlags string `json:"abuse_flags"`
}
