package models

import "gorm.io/gorm"

const (
	RoleCliente   = "cliente"
	RolePrestador = "prestador"
)

// User é a conta autenticável; o papel define o lado do marketplace.
type User struct {
	gorm.Model
	Name         string `json:"name" gorm:"not null"`
	Email        string `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"not null"`
	Role         string `json:"role" gorm:"type:varchar(50);not null;default:'cliente'"`
}
