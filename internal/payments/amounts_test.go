package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"appmissao/models"
)

func TestAmountFor(t *testing.T) {
	p := Percents{Deposit: 30, Remainder: 75}

	assert.Equal(t, 30.0, p.AmountFor(models.PaymentKindDeposit, 100))
	assert.Equal(t, 75.0, p.AmountFor(models.PaymentKindRemainder, 100))
	assert.Equal(t, 100.0, p.AmountFor(models.PaymentKindFull, 100))

	// total 10 × 30% = 3.00; 10 × 75% = 7.50
	assert.Equal(t, 3.0, p.AmountFor(models.PaymentKindDeposit, 10))
	assert.Equal(t, 7.5, p.AmountFor(models.PaymentKindRemainder, 10))

	// arredondamento half-up em duas casas: 111.15 × 30% = 33.345 → 33.35
	assert.Equal(t, 33.35, p.AmountFor(models.PaymentKindDeposit, 111.15))
	// 33.33 × 30% = 9.999 → 10.00
	assert.Equal(t, 10.0, p.AmountFor(models.PaymentKindDeposit, 33.33))
}

func TestPercentsFromEnv(t *testing.T) {
	t.Setenv("PAYMENT_DEPOSIT_PERCENT", "")
	t.Setenv("PAYMENT_SECOND_PERCENT", "")
	p := PercentsFromEnv()
	assert.Equal(t, 30, p.Deposit)
	assert.Equal(t, 75, p.Remainder)

	t.Setenv("PAYMENT_DEPOSIT_PERCENT", "40")
	t.Setenv("PAYMENT_SECOND_PERCENT", "250")
	p = PercentsFromEnv()
	assert.Equal(t, 40, p.Deposit)
	assert.Equal(t, 100, p.Remainder)

	t.Setenv("PAYMENT_DEPOSIT_PERCENT", "-5")
	t.Setenv("PAYMENT_SECOND_PERCENT", "abc")
	p = PercentsFromEnv()
	assert.Equal(t, 30, p.Deposit)
	assert.Equal(t, 75, p.Remainder)
}

func TestAgreedTotal(t *testing.T) {
	budget := 200.0
	mission := &models.Mission{Budget: &budget}

	assert.Equal(t, 200.0, AgreedTotal(mission, nil))
	assert.Equal(t, 150.0, AgreedTotal(mission, &models.Proposal{Price: 150}))
	assert.Equal(t, 0.0, AgreedTotal(&models.Mission{}, nil))
}
