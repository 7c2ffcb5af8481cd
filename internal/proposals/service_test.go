package proposals

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appmissao/internal/apperr"
	"appmissao/internal/effects"
	"appmissao/internal/missions"
	"appmissao/internal/mp"
	"appmissao/internal/payments"
	"appmissao/internal/store/storetest"
	"appmissao/models"
)

type fakeGateway struct{}

func (fakeGateway) CreatePreference(_ context.Context, in mp.PreferenceInput) (*mp.Preference, error) {
	return &mp.Preference{ID: "pref-1", InitPoint: "https://mp.test/init", Currency: "BRL",
		ExternalRef: mp.ExternalRef(in.MissionID, in.Kind)}, nil
}
func (fakeGateway) CreateCharge(_ context.Context, _ mp.ChargeInput) (*mp.PaymentData, error) {
	return nil, apperr.Gateway(0, "mp-unavailable", "indisponível")
}
func (fakeGateway) GetPayment(_ context.Context, _ int64) (*mp.PaymentData, error) {
	return nil, apperr.Gateway(0, "mp-unavailable", "indisponível")
}
func (fakeGateway) CreateRefund(_ context.Context, _ string, _ float64) ([]mp.Refund, error) {
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

type fakeNotifier struct{}

func (fakeNotifier) Notify(_ context.Context, _ []uint, _, _, _ string, _ map[string]any) effects.Outcome {
	return effects.Succeeded
}

type fixture struct {
	svc       *Service
	missions  *storetest.Missions
	proposals *storetest.Proposals
}

func newFixture() *fixture {
	missionStore := storetest.NewMissions()
	paymentStore := storetest.NewPayments()
	proposalStore := storetest.NewProposals()
	broadcast := &fakeBroadcast{}

	installments := &payments.Service{
		Missions:  missionStore,
		Payments:  paymentStore,
		Proposals: proposalStore,
		Gateway:   fakeGateway{},
		Broadcast: broadcast,
		Notifier:  fakeNotifier{},
		Percents:  payments.Percents{Deposit: 30, Remainder: 75},
	}
	lifecycle := &missions.Service{
		Missions:     missionStore,
		Ledger:       paymentStore,
		Installments: installments,
		Broadcast:    broadcast,
		Notifier:     fakeNotifier{},
	}
	return &fixture{
		svc: &Service{
			Proposals: proposalStore,
			Missions:  missionStore,
			Lifecycle: lifecycle,
		},
		missions:  missionStore,
		proposals: proposalStore,
	}
}

func (f *fixture) seedMission(t *testing.T, ownerID uint, status string) *models.Mission {
	t.Helper()
	mission := &models.Mission{UserID: ownerID, Title: "Pintura da sala", Status: status}
	require.NoError(t, f.missions.Create(mission))
	return mission
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture()
	mission := f.seedMission(t, 1, models.MissionOpen)

	_, err := f.svc.Submit(context.Background(), mission.ID, 5, models.RoleCliente, 100, 5)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.svc.Submit(context.Background(), mission.ID, 5, models.RolePrestador, 0, 5)
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))

	_, err = f.svc.Submit(context.Background(), mission.ID, 5, models.RolePrestador, 100, 0)
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))

	proposal, err := f.svc.Submit(context.Background(), mission.ID, 5, models.RolePrestador, 100, 5)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalSent, proposal.Status)
}

func TestSubmitOnlyOnOpenMission(t *testing.T) {
	f := newFixture()
	mission := f.seedMission(t, 1, models.MissionInProgress)

	_, err := f.svc.Submit(context.Background(), mission.ID, 5, models.RolePrestador, 100, 5)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestDecideOwnerOnly(t *testing.T) {
	f := newFixture()
	mission := f.seedMission(t, 1, models.MissionOpen)
	proposal, err := f.svc.Submit(context.Background(), mission.ID, 5, models.RolePrestador, 100, 5)
	require.NoError(t, err)

	_, err = f.svc.Decide(context.Background(), proposal.ID, 2, models.ProposalAccepted)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.svc.Decide(context.Background(), proposal.ID, 1, "maybe")
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))
}

func TestAcceptAssignsProviderAndRejectsSiblings(t *testing.T) {
	f := newFixture()
	mission := f.seedMission(t, 1, models.MissionOpen)

	first, err := f.svc.Submit(context.Background(), mission.ID, 5, models.RolePrestador, 100, 5)
	require.NoError(t, err)
	second, err := f.svc.Submit(context.Background(), mission.ID, 6, models.RolePrestador, 90, 3)
	require.NoError(t, err)

	decided, err := f.svc.Decide(context.Background(), first.ID, 1, models.ProposalAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalAccepted, decided.Status)

	updated, _ := f.missions.Get(mission.ID)
	assert.Equal(t, models.MissionInProgress, updated.Status)
	require.NotNil(t, updated.ProviderID)
	assert.Equal(t, uint(5), *updated.ProviderID)

	sibling, _ := f.proposals.Get(second.ID)
	assert.Equal(t, models.ProposalRejected, sibling.Status)
}

func TestRejectKeepsMissionOpen(t *testing.T) {
	f := newFixture()
	mission := f.seedMission(t, 1, models.MissionOpen)
	proposal, err := f.svc.Submit(context.Background(), mission.ID, 5, models.RolePrestador, 100, 5)
	require.NoError(t, err)

	decided, err := f.svc.Decide(context.Background(), proposal.ID, 1, models.ProposalRejected)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalRejected, decided.Status)

	updated, _ := f.missions.Get(mission.ID)
	assert.Equal(t, models.MissionOpen, updated.Status)
}

func TestAcceptFailsWhenMissionNoLongerOpen(t *testing.T) {
	f := newFixture()
	mission := f.seedMission(t, 1, models.MissionOpen)
	first, err := f.svc.Submit(context.Background(), mission.ID, 5, models.RolePrestador, 100, 5)
	require.NoError(t, err)
	second, err := f.svc.Submit(context.Background(), mission.ID, 6, models.RolePrestador, 90, 3)
	require.NoError(t, err)

	_, err = f.svc.Decide(context.Background(), first.ID, 1, models.ProposalAccepted)
	require.NoError(t, err)

	// A segunda aceitação perde a corrida: missão já saiu de open.
	_, err = f.svc.Decide(context.Background(), second.ID, 1, models.ProposalAccepted)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	updated, _ := f.missions.Get(mission.ID)
	assert.Equal(t, uint(5), *updated.ProviderID)
}

func TestDecideTwiceConflicts(t *testing.T) {
	f := newFixture()
	mission := f.seedMission(t, 1, models.MissionOpen)
	proposal, err := f.svc.Submit(context.Background(), mission.ID, 5, models.RolePrestador, 100, 5)
	require.NoError(t, err)

	_, err = f.svc.Decide(context.Background(), proposal.ID, 1, models.ProposalRejected)
	require.NoError(t, err)

	_, err = f.svc.Decide(context.Background(), proposal.ID, 1, models.ProposalRejected)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}
