package mp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"appmissao/internal/apperr"
)

// PaymentData é o detalhe de um pagamento como reportado pelo processador.
type PaymentData struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	StatusDetail      string      `json:"status_detail"`
	TransactionAmount float64     `json:"transaction_amount"`
	CurrencyID        string      `json:"currency_id"`
	ExternalReference string      `json:"external_reference"`
	PaymentMethodID   string      `json:"payment_method_id"`
	CollectorID       json.Number `json:"collector_id"`
	NetReceivedAmount float64     `json:"net_received_amount"`
	Installments      int         `json:"installments"`
	MoneyReleaseDate  string      `json:"money_release_date"`
	Payer             struct {
		Email string `json:"email"`
	} `json:"payer"`
	Card struct {
		LastFourDigits string `json:"last_four_digits"`
	} `json:"card"`
	Order struct {
		ID json.Number `json:"id"`
	} `json:"order"`
	FeeDetails []struct {
		Amount float64 `json:"amount"`
	} `json:"fee_details"`
	Refunds []Refund `json:"refunds"`
}

// Refund é um estorno reportado pelo processador.
type Refund struct {
	ID          json.Number `json:"id"`
	Amount      float64     `json:"amount"`
	DateCreated string      `json:"date_created"`
}

// FeeTotal soma as tarifas reportadas.
func (p *PaymentData) FeeTotal() float64 {
	var total float64
	for _, f := range p.FeeDetails {
		total += f.Amount
	}
	return total
}

// RefundTotal soma os estornos reportados.
func (p *PaymentData) RefundTotal() float64 {
	var total float64
	for _, r := range p.Refunds {
		total += r.Amount
	}
	return total
}

// ReleaseDate converte money_release_date, quando presente.
func (p *PaymentData) ReleaseDate() *time.Time {
	if p.MoneyReleaseDate == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, p.MoneyReleaseDate)
	if err != nil {
		return nil
	}
	return &t
}

// GetPayment busca o detalhe completo de um pagamento pelo id do processador.
func (c *Client) GetPayment(ctx context.Context, paymentID int64) (*PaymentData, error) {
	if !c.Configured() {
		return nil, unavailable()
	}
	resp, body, err := c.get(ctx, fmt.Sprintf("/v1/payments/%d", paymentID))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, gatewayError(resp.StatusCode, parseGatewayBody(body), body)
	}
	var data PaymentData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, decodeError()
	}
	return &data, nil
}

// ChargeInput é uma cobrança direta com token de cartão.
type ChargeInput struct {
	MissionID            uint
	Amount               float64
	Kind                 string
	CardToken            string
	PaymentMethodID      string
	Installments         int
	IssuerID             *int
	PayerEmail           string
	IdentificationType   string
	IdentificationNumber string
}

type chargePayload struct {
	TransactionAmount float64     `json:"transaction_amount"`
	Token             string      `json:"token"`
	Description       string      `json:"description"`
	PaymentMethodID   string      `json:"payment_method_id"`
	Installments      int         `json:"installments"`
	ExternalReference string      `json:"external_reference"`
	IssuerID          *int        `json:"issuer_id,omitempty"`
	Payer             chargePayer `json:"payer"`
}

type chargePayer struct {
	Email          string                `json:"email"`
	Identification *chargeIdentification `json:"identification,omitempty"`
}

type chargeIdentification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

// CreateCharge cria o pagamento com cartão e devolve o detalhe reportado.
func (c *Client) CreateCharge(ctx context.Context, in ChargeInput) (*PaymentData, error) {
	if !c.Configured() {
		return nil, unavailable()
	}
	installments := in.Installments
	if installments < 1 {
		installments = 1
	}
	payload := chargePayload{
		TransactionAmount: in.Amount,
		Token:             in.CardToken,
		Description:       fmt.Sprintf("Missão %d", in.MissionID),
		PaymentMethodID:   in.PaymentMethodID,
		Installments:      installments,
		ExternalReference: ExternalRef(in.MissionID, in.Kind),
		IssuerID:          in.IssuerID,
		Payer:             chargePayer{Email: in.PayerEmail},
	}
	if in.IdentificationType != "" && in.IdentificationNumber != "" {
		payload.Payer.Identification = &chargeIdentification{
			Type:   in.IdentificationType,
			Number: in.IdentificationNumber,
		}
	}
	resp, body, err := c.post(ctx, "/v1/payments", payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, gatewayError(resp.StatusCode, parseGatewayBody(body), body)
	}
	var data PaymentData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, decodeError()
	}
	return &data, nil
}

// CreateRefund solicita estorno total (amount == 0) ou parcial.
func (c *Client) CreateRefund(ctx context.Context, paymentID string, amount float64) ([]Refund, error) {
	if !c.Configured() {
		return nil, unavailable()
	}
	payload := map[string]any{}
	if amount > 0 {
		payload["amount"] = amount
	}
	resp, body, err := c.post(ctx, fmt.Sprintf("/v1/payments/%s/refunds", paymentID), payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, gatewayError(resp.StatusCode, parseGatewayBody(body), body)
	}
	// A API devolve um objeto para estorno único ou uma lista.
	var one Refund
	if err := json.Unmarshal(body, &one); err == nil && one.ID != "" {
		return []Refund{one}, nil
	}
	var many []Refund
	if err := json.Unmarshal(body, &many); err != nil {
		return nil, decodeError()
	}
	return many, nil
}

func unavailable() error {
	return apperr.Gateway(0, "mp-unavailable", "Mercado Pago não configurado. Verifique a variável MP_ACCESS_TOKEN.")
}

func decodeError() error {
	return apperr.Gateway(0, "mp-decode", "Resposta inválida do Mercado Pago")
}
