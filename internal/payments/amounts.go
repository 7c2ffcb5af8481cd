package payments

import (
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"appmissao/models"
)

// Percents guarda os percentuais das duas parcelas. O total cobrado é
// sempre derivado do preço acordado (proposta aceita, senão budget).
type Percents struct {
	Deposit   int
	Remainder int
}

// PercentsFromEnv lê PAYMENT_DEPOSIT_PERCENT e PAYMENT_SECOND_PERCENT,
// com defaults 30/75 e clamp em [1, 100].
func PercentsFromEnv() Percents {
	return Percents{
		Deposit:   readPercentEnv("PAYMENT_DEPOSIT_PERCENT", 30),
		Remainder: readPercentEnv("PAYMENT_SECOND_PERCENT", 75),
	}
}

func readPercentEnv(name string, def int) int {
	v, err := strconv.Atoi(os.Getenv(name))
	if err != nil || v <= 0 {
		return def
	}
	if v > 100 {
		return 100
	}
	return v
}

// AmountFor calcula o valor da parcela com arredondamento half-up em duas
// casas: deposit = total × deposit%/100, remainder = total × remainder%/100,
// full = total.
func (p Percents) AmountFor(kind string, total float64) float64 {
	t := decimal.NewFromFloat(total)
	var amount decimal.Decimal
	switch kind {
	case models.PaymentKindDeposit:
		amount = t.Mul(decimal.NewFromInt(int64(p.Deposit))).Div(decimal.NewFromInt(100))
	case models.PaymentKindRemainder:
		amount = t.Mul(decimal.NewFromInt(int64(p.Remainder))).Div(decimal.NewFromInt(100))
	default:
		amount = t
	}
	f, _ := amount.Round(2).Float64()
	return f
}

// AgreedTotal devolve o preço acordado da missão: o valor da proposta aceita
// quando existe, senão o budget.
func AgreedTotal(mission *models.Mission, accepted *models.Proposal) float64 {
	if accepted != nil {
		return accepted.Price
	}
	if mission.Budget != nil {
		return *mission.Budget
	}
	return 0
}
