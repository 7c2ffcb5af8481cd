package models

import (
	"time"

	"gorm.io/gorm"
)

// Status internos do ledger. O Mercado Pago também reporta status próprios
// (in_process, rejected, ...) que são gravados como chegam.
const (
	PaymentPending   = "pending"
	PaymentApproved  = "approved"
	PaymentReleased  = "released"
	PaymentRefunded  = "refunded"
	PaymentCancelled = "cancelled"
)

// Tipos de parcela correlacionados pelo external_ref `mission:<id>:<kind>`.
const (
	PaymentKindDeposit   = "deposit"
	PaymentKindRemainder = "remainder"
	PaymentKindFull      = "full"
)

// Payment é uma cobrança do ledger de uma missão. Linhas são criadas somente
// pela orquestração (criação de missão, awaiting_confirmation, cobrança de
// cartão, webhook) e reconciliadas pelo MPPaymentID ou ExternalRef.
type Payment struct {
	gorm.Model
	MissionID  uint  `json:"mission_id" gorm:"not null;index"`
	ProposalID *uint `json:"proposal_id"`
	UserID     *uint `json:"user_id"`
	ProviderID *uint `json:"provider_id"`

	Amount   float64 `json:"amount" gorm:"type:numeric(10,2);not null"`
	Currency string  `json:"currency" gorm:"size:8;not null;default:'BRL'"`
	Status   string  `json:"status" gorm:"type:varchar(32);not null;default:'pending';index"`

	MPPreferenceID string `json:"mp_preference_id" gorm:"size:128;index"`
	MPPaymentID    string `json:"mp_payment_id" gorm:"size:64;index"`
	ExternalRef    string `json:"external_ref" gorm:"size:128;index"`

	// Campos de conciliação reportados pelo processador.
	StatusDetail     string     `json:"status_detail" gorm:"size:64"`
	PaymentMethodID  string     `json:"payment_method_id" gorm:"size:64"`
	PayerEmail       string     `json:"payer_email" gorm:"size:254"`
	CollectorID      string     `json:"collector_id" gorm:"size:64"`
	NetReceived      *float64   `json:"net_received" gorm:"type:numeric(10,2)"`
	FeeAmount        *float64   `json:"fee_amount" gorm:"type:numeric(10,2)"`
	Installments     *int       `json:"installments"`
	CardLastFour     string     `json:"card_last_four" gorm:"size:4"`
	OrderID          string     `json:"order_id" gorm:"size:64"`
	MoneyReleaseDate *time.Time `json:"money_release_date"`
	RefundStatus     string     `json:"refund_status" gorm:"size:32"`
	RefundAmount     *float64   `json:"refund_amount" gorm:"type:numeric(10,2)"`
	RefundedAt       *time.Time `json:"refunded_at"`
	CanceledAt       *time.Time `json:"canceled_at"`
}
