package missions

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appmissao/internal/apperr"
	"appmissao/internal/effects"
	"appmissao/internal/mp"
	"appmissao/internal/payments"
	"appmissao/internal/store"
	"appmissao/internal/store/storetest"
	"appmissao/models"
)

type fakeGateway struct {
	prefErr   error
	prefCalls int
	lastKind  string
}

func (g *fakeGateway) CreatePreference(_ context.Context, in mp.PreferenceInput) (*mp.Preference, error) {
	g.prefCalls++
	g.lastKind = in.Kind
	if g.prefErr != nil {
		return nil, g.prefErr
	}
	return &mp.Preference{
		ID:          "pref-1",
		InitPoint:   "https://mp.test/init",
		Currency:    "BRL",
		ExternalRef: mp.ExternalRef(in.MissionID, in.Kind),
	}, nil
}

func (g *fakeGateway) CreateCharge(_ context.Context, _ mp.ChargeInput) (*mp.PaymentData, error) {
	return nil, apperr.Gateway(0, "mp-unavailable", "indisponível")
}

func (g *fakeGateway) GetPayment(_ context.Context, _ int64) (*mp.PaymentData, error) {
	return nil, apperr.Gateway(0, "mp-unavailable", "indisponível")
}

func (g *fakeGateway) CreateRefund(_ context.Context, _ string, _ float64) ([]mp.Refund, error) {
	return nil, apperr.Gateway(0, "mp-unavailable", "indisponível")
}

type fakeBroadcast struct {
	mu     sync.Mutex
	events []string
}

func (b *fakeBroadcast) Publish(eventType string, _ any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, eventType)
}

func (b *fakeBroadcast) count(eventType string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e == eventType {
			n++
		}
	}
	return n
}

type fakeNotifier struct{}

func (fakeNotifier) Notify(_ context.Context, _ []uint, _, _, _ string, _ map[string]any) effects.Outcome {
	return effects.Succeeded
}

type fixture struct {
	svc       *Service
	missions  *storetest.Missions
	ledger    *storetest.Payments
	proposals *storetest.Proposals
	gateway   *fakeGateway
	broadcast *fakeBroadcast
}

func newFixture() *fixture {
	f := &fixture{
		missions:  storetest.NewMissions(),
		ledger:    storetest.NewPayments(),
		proposals: storetest.NewProposals(),
		gateway:   &fakeGateway{},
		broadcast: &fakeBroadcast{},
	}
	installments := &payments.Service{
		Missions:  f.missions,
		Payments:  f.ledger,
		Proposals: f.proposals,
		Gateway:   f.gateway,
		Broadcast: f.broadcast,
		Notifier:  fakeNotifier{},
		Percents:  payments.Percents{Deposit: 30, Remainder: 75},
	}
	f.svc = &Service{
		Missions:     f.missions,
		Ledger:       f.ledger,
		Installments: installments,
		Broadcast:    f.broadcast,
		Notifier:     fakeNotifier{},
	}
	return f
}

func ptr[T any](v T) *T { return &v }

func TestCreateValidatesTitle(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), 1, "a@b.com", CreateInput{Title: "  ab "})
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))
}

func TestCreateWithBudgetTriggersDeposit(t *testing.T) {
	f := newFixture()
	result, err := f.svc.Create(context.Background(), 1, "a@b.com", CreateInput{
		Title:  "Pintura da sala",
		Budget: ptr(10.0),
	})
	require.NoError(t, err)
	assert.Equal(t, models.MissionOpen, result.Mission.Status)
	assert.Equal(t, effects.Succeeded, result.Deposit)

	rows, _ := f.ledger.ListByMission(result.Mission.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, 3.0, rows[0].Amount)
	assert.Equal(t, "mission:1:deposit", rows[0].ExternalRef)
	assert.Equal(t, 1, f.broadcast.count("mission_created"))
}

func TestCreateWithoutBudgetSkipsDeposit(t *testing.T) {
	f := newFixture()
	result, err := f.svc.Create(context.Background(), 1, "", CreateInput{Title: "Missão sem orçamento"})
	require.NoError(t, err)
	assert.Equal(t, effects.Skipped, result.Deposit)
	assert.Zero(t, f.gateway.prefCalls)
}

func TestCreateSurvivesGatewayFailure(t *testing.T) {
	f := newFixture()
	f.gateway.prefErr = apperr.Gateway(500, "internal", "boom")

	result, err := f.svc.Create(context.Background(), 1, "", CreateInput{
		Title:  "Troca de fechadura",
		Budget: ptr(100.0),
	})
	require.NoError(t, err)
	assert.Equal(t, effects.FailedIgnored, result.Deposit)
	assert.Equal(t, models.MissionOpen, result.Mission.Status)
}

func TestAcceptAssignsProvider(t *testing.T) {
	f := newFixture()
	created, _ := f.svc.Create(context.Background(), 1, "", CreateInput{Title: "Montagem de móveis"})

	_, err := f.svc.Accept(context.Background(), created.Mission.ID, 5, models.RoleCliente)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	mission, err := f.svc.Accept(context.Background(), created.Mission.ID, 5, models.RolePrestador)
	require.NoError(t, err)
	assert.Equal(t, models.MissionInProgress, mission.Status)
	require.NotNil(t, mission.ProviderID)
	assert.Equal(t, uint(5), *mission.ProviderID)
}

func TestAcceptLoserGetsConflict(t *testing.T) {
	f := newFixture()
	created, _ := f.svc.Create(context.Background(), 1, "", CreateInput{Title: "Conserto elétrico"})

	_, err := f.svc.Accept(context.Background(), created.Mission.ID, 5, models.RolePrestador)
	require.NoError(t, err)

	_, err = f.svc.Accept(context.Background(), created.Mission.ID, 6, models.RolePrestador)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	mission, _ := f.missions.Get(created.Mission.ID)
	assert.Equal(t, uint(5), *mission.ProviderID)
}

func TestSetProviderStatusTriggersRemainder(t *testing.T) {
	f := newFixture()
	created, _ := f.svc.Create(context.Background(), 1, "", CreateInput{
		Title:  "Jardinagem",
		Budget: ptr(10.0),
	})
	_, err := f.svc.Accept(context.Background(), created.Mission.ID, 5, models.RolePrestador)
	require.NoError(t, err)

	result, err := f.svc.SetProviderStatus(context.Background(), created.Mission.ID, 5,
		models.RolePrestador, models.MissionAwaitingConfirmation)
	require.NoError(t, err)
	assert.Equal(t, models.MissionAwaitingConfirmation, result.Mission.Status)
	assert.Equal(t, effects.Succeeded, result.Remainder)

	rows, _ := f.ledger.ListByMission(created.Mission.ID)
	require.Len(t, rows, 2)
	assert.Equal(t, 7.5, rows[1].Amount)
	assert.Equal(t, "mission:1:remainder", rows[1].ExternalRef)
}

func TestSetProviderStatusGuards(t *testing.T) {
	f := newFixture()
	created, _ := f.svc.Create(context.Background(), 1, "", CreateInput{Title: "Limpeza pós-obra"})
	missionID := created.Mission.ID

	// Missão aberta: prestador nenhum atribuído.
	_, err := f.svc.SetProviderStatus(context.Background(), missionID, 5,
		models.RolePrestador, models.MissionAwaitingConfirmation)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.svc.Accept(context.Background(), missionID, 5, models.RolePrestador)
	require.NoError(t, err)

	// Status fora do conjunto permitido.
	_, err = f.svc.SetProviderStatus(context.Background(), missionID, 5,
		models.RolePrestador, models.MissionCompleted)
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))

	// Outro prestador não mexe na missão.
	_, err = f.svc.SetProviderStatus(context.Background(), missionID, 6,
		models.RolePrestador, models.MissionCancelled)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	rows, _ := f.ledger.ListByMission(missionID)
	assert.Empty(t, rows)
}

func TestPatchCompletedReleasesAllApproved(t *testing.T) {
	f := newFixture()
	created, _ := f.svc.Create(context.Background(), 1, "", CreateInput{Title: "Reforma do banheiro"})
	missionID := created.Mission.ID
	_, err := f.svc.Accept(context.Background(), missionID, 5, models.RolePrestador)
	require.NoError(t, err)

	require.NoError(t, f.ledger.Create(&models.Payment{
		MissionID: missionID, Amount: 3, Status: models.PaymentApproved, ExternalRef: "mission:1:deposit",
	}))
	require.NoError(t, f.ledger.Create(&models.Payment{
		MissionID: missionID, Amount: 7.5, Status: models.PaymentApproved, ExternalRef: "mission:1:remainder",
	}))

	result, err := f.svc.Patch(context.Background(), missionID, 1, store.MissionPatch{
		Status: ptr(models.MissionCompleted),
	})
	require.NoError(t, err)
	assert.Equal(t, effects.Succeeded, result.Release)

	rows, _ := f.ledger.ListByMission(missionID)
	for _, row := range rows {
		assert.Equal(t, models.PaymentReleased, row.Status)
	}
	assert.Equal(t, 1, f.broadcast.count("payment_released"))
}

func TestPatchCancelledReleasesDepositOnly(t *testing.T) {
	f := newFixture()
	created, _ := f.svc.Create(context.Background(), 1, "", CreateInput{Title: "Instalação de ar"})
	missionID := created.Mission.ID
	_, err := f.svc.Accept(context.Background(), missionID, 5, models.RolePrestador)
	require.NoError(t, err)

	require.NoError(t, f.ledger.Create(&models.Payment{
		MissionID: missionID, Amount: 3, Status: models.PaymentApproved, ExternalRef: "mission:1:deposit",
	}))
	require.NoError(t, f.ledger.Create(&models.Payment{
		MissionID: missionID, Amount: 7.5, Status: models.PaymentApproved, ExternalRef: "mission:1:remainder",
	}))

	result, err := f.svc.Patch(context.Background(), missionID, 1, store.MissionPatch{
		Status: ptr(models.MissionCancelled),
	})
	require.NoError(t, err)
	assert.Equal(t, effects.Succeeded, result.Release)

	deposit, _ := f.ledger.Get(1)
	remainder, _ := f.ledger.Get(2)
	assert.Equal(t, models.PaymentReleased, deposit.Status)
	assert.Equal(t, models.PaymentApproved, remainder.Status)
}

func TestPatchGuards(t *testing.T) {
	f := newFixture()
	created, _ := f.svc.Create(context.Background(), 1, "", CreateInput{Title: "Pequenos reparos"})
	missionID := created.Mission.ID

	_, err := f.svc.Patch(context.Background(), missionID, 2, store.MissionPatch{Title: ptr("Novo título")})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.svc.Patch(context.Background(), missionID, 1, store.MissionPatch{Title: ptr("ab")})
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))

	_, err = f.svc.Patch(context.Background(), missionID, 1, store.MissionPatch{Status: ptr("paused")})
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))

	result, err := f.svc.Patch(context.Background(), missionID, 1, store.MissionPatch{})
	require.NoError(t, err)
	assert.Equal(t, effects.Skipped, result.Release)
}
