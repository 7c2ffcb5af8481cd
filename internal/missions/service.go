// Package missions implementa a máquina de estados do ciclo de vida de uma
// missão: open → in_progress → awaiting_confirmation → completed, com
// cancelled alcançável a partir dos estados ativos. Toda transição
// read-then-write é guardada (o UPDATE reafirma a pré-imagem); quem perde a
// corrida recebe Conflict.
package missions

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"appmissao/internal/apperr"
	"appmissao/internal/effects"
	"appmissao/internal/payments"
	"appmissao/internal/store"
	"appmissao/models"
)

type Broadcaster interface {
	Publish(eventType string, payload any)
}

type Notifier interface {
	Notify(ctx context.Context, userIDs []uint, category, title, body string, data map[string]any) effects.Outcome
}

// Service orquestra transições e os gatilhos de pagamento acoplados a elas.
type Service struct {
	Missions     store.MissionStore
	Ledger       store.PaymentStore
	Installments *payments.Service
	Broadcast    Broadcaster
	Notifier     Notifier
}

// CreateInput são os campos aceitos na publicação de uma missão.
type CreateInput struct {
	Title       string
	Description string
	Location    string
	Category    string
	Lat         *float64
	Lng         *float64
	Budget      *float64
}

// CreateResult devolve a missão e o desfecho do gatilho de depósito.
type CreateResult struct {
	Mission *models.Mission
	Deposit effects.Outcome
}

// Create publica a missão em open e, havendo budget positivo, dispara o
// depósito (budget × deposit%) como preferência best-effort: falha do
// processador não derruba a criação.
func (s *Service) Create(ctx context.Context, ownerID uint, ownerEmail string, in CreateInput) (*CreateResult, error) {
	title := strings.TrimSpace(in.Title)
	if len(title) < 3 {
		return nil, apperr.InvalidArgument("Título inválido")
	}
	mission := &models.Mission{
		UserID:      ownerID,
		Title:       title,
		Description: in.Description,
		Location:    in.Location,
		Category:    in.Category,
		Lat:         in.Lat,
		Lng:         in.Lng,
		Budget:      in.Budget,
		Status:      models.MissionOpen,
	}
	if err := s.Missions.Create(mission); err != nil {
		return nil, err
	}

	deposit := effects.Skipped
	if in.Budget != nil && *in.Budget > 0 {
		deposit = s.Installments.AutoPreference(ctx, mission, models.PaymentKindDeposit, ownerEmail)
		slog.Info("Deposit trigger on mission create", "mission_id", mission.ID, "outcome", deposit.String())
	}
	s.Broadcast.Publish("mission_created", mission)
	return &CreateResult{Mission: mission, Deposit: deposit}, nil
}

// Accept atribui a missão ao prestador chamador. A escrita só vale se a
// pré-imagem ainda estiver open; dois prestadores concorrentes nunca ficam
// ambos com a missão.
func (s *Service) Accept(ctx context.Context, missionID, providerID uint, role string) (*models.Mission, error) {
	if role != models.RolePrestador {
		return nil, apperr.Forbidden("Sem permissão")
	}
	mission, err := s.Missions.Get(missionID)
	if err != nil {
		return nil, err
	}
	if mission.Status != models.MissionOpen {
		return nil, apperr.Conflict("Missão indisponível")
	}
	updated, err := s.Missions.TransitionStatus(missionID,
		[]string{models.MissionOpen}, models.MissionInProgress, &providerID)
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return nil, apperr.Conflict("Missão indisponível")
		}
		return nil, err
	}
	s.Broadcast.Publish("mission_status", statusPayload(updated))
	s.Notifier.Notify(ctx, participantIDs(updated), "mission", "Missão aceita",
		"Missão #"+itoa(updated.ID)+" em progresso",
		map[string]any{"mission_id": updated.ID, "status": updated.Status})
	return updated, nil
}

// StartWithProvider é a transição forçada pela aceitação de proposta: mesma
// máquina do Accept, com o provider da proposta aceita assumindo a missão.
func (s *Service) StartWithProvider(ctx context.Context, missionID, providerID uint) (*models.Mission, error) {
	updated, err := s.Missions.TransitionStatus(missionID,
		[]string{models.MissionOpen}, models.MissionInProgress, &providerID)
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return nil, apperr.Conflict("Missão indisponível")
		}
		return nil, err
	}
	s.Broadcast.Publish("mission_status", statusPayload(updated))
	return updated, nil
}

// ProviderStatusResult devolve a missão e o desfecho do gatilho do restante.
type ProviderStatusResult struct {
	Mission   *models.Mission
	Remainder effects.Outcome
}

// SetProviderStatus permite ao prestador atribuído sinalizar
// awaiting_confirmation ou cancelled a partir de um estado ativo. Ao entrar
// em awaiting_confirmation dispara a preferência do restante
// (total × remainder%), best-effort.
func (s *Service) SetProviderStatus(ctx context.Context, missionID, providerID uint, role, status string) (*ProviderStatusResult, error) {
	if role != models.RolePrestador {
		return nil, apperr.Forbidden("Sem permissão")
	}
	if status != models.MissionAwaitingConfirmation && status != models.MissionCancelled {
		return nil, apperr.InvalidArgument("Status inválido")
	}
	mission, err := s.Missions.Get(missionID)
	if err != nil {
		return nil, err
	}
	if mission.ProviderID == nil || *mission.ProviderID != providerID {
		return nil, apperr.Forbidden("Sem permissão")
	}
	if mission.Status != models.MissionInProgress && mission.Status != models.MissionAwaitingConfirmation {
		return nil, apperr.Conflict("Estado atual não permite esta atualização")
	}
	updated, err := s.Missions.TransitionStatus(missionID,
		[]string{models.MissionInProgress, models.MissionAwaitingConfirmation}, status, nil)
	if err != nil {
		return nil, err
	}
	s.Broadcast.Publish("mission_status", statusPayload(updated))

	remainder := effects.Skipped
	if status == models.MissionAwaitingConfirmation {
		remainder = s.Installments.AutoPreference(ctx, updated, models.PaymentKindRemainder, "")
		slog.Info("Remainder trigger on awaiting_confirmation", "mission_id", updated.ID, "outcome", remainder.String())
	}
	return &ProviderStatusResult{Mission: updated, Remainder: remainder}, nil
}

// PatchResult devolve a missão e o desfecho da liberação de pagamentos.
type PatchResult struct {
	Mission *models.Mission
	Release effects.Outcome
}

// Patch é a atualização parcial do dono. Transição para completed libera
// todos os pagamentos aprovados; para cancelled libera apenas o depósito
// aprovado (external_ref :deposit).
func (s *Service) Patch(ctx context.Context, missionID, ownerID uint, patch store.MissionPatch) (*PatchResult, error) {
	mission, err := s.Missions.Get(missionID)
	if err != nil {
		return nil, err
	}
	if mission.UserID != ownerID {
		return nil, apperr.Forbidden("Sem permissão")
	}
	if patch.Title != nil && len(strings.TrimSpace(*patch.Title)) < 3 {
		return nil, apperr.InvalidArgument("Título inválido")
	}
	if patch.Status != nil && !models.ValidMissionStatus(*patch.Status) {
		return nil, apperr.InvalidArgument("Status inválido")
	}
	if patch.Empty() {
		return &PatchResult{Mission: mission, Release: effects.Skipped}, nil
	}
	updated, err := s.Missions.ApplyPatch(missionID, mission.Status, patch)
	if err != nil {
		return nil, err
	}

	s.Broadcast.Publish("mission_updated", updated)
	s.Broadcast.Publish("mission_status", statusPayload(updated))
	s.Notifier.Notify(ctx, participantIDs(updated), "mission", "Missão atualizada",
		"Status: "+updated.Status,
		map[string]any{"mission_id": updated.ID, "status": updated.Status})

	release := effects.Skipped
	if patch.Status != nil {
		switch *patch.Status {
		case models.MissionCompleted:
			release = s.releasePayments(ctx, updated, false)
		case models.MissionCancelled:
			release = s.releasePayments(ctx, updated, true)
		}
	}
	return &PatchResult{Mission: updated, Release: release}, nil
}

// releasePayments marca como released os aprovados da missão (todos na
// conclusão, só o depósito no cancelamento). Best-effort.
func (s *Service) releasePayments(ctx context.Context, mission *models.Mission, depositOnly bool) effects.Outcome {
	released, err := s.Ledger.ReleaseApproved(mission.ID, depositOnly)
	if err != nil {
		slog.Error("Failed to release approved payments", "mission_id", mission.ID, "deposit_only", depositOnly, "error", err)
		return effects.FailedIgnored
	}
	if released == 0 {
		return effects.Skipped
	}
	payload := map[string]any{"mission_id": mission.ID}
	if depositOnly {
		payload["kind"] = models.PaymentKindDeposit
	}
	s.Broadcast.Publish("payment_released", payload)
	if !depositOnly && mission.ProviderID != nil {
		s.Notifier.Notify(ctx, []uint{*mission.ProviderID}, "payment", "Pagamento liberado",
			"Missão #"+itoa(mission.ID)+" concluída",
			map[string]any{"mission_id": mission.ID, "kind": "release"})
	}
	slog.Info("Approved payments released", "mission_id", mission.ID, "count", released, "deposit_only", depositOnly)
	return effects.Succeeded
}

func statusPayload(m *models.Mission) map[string]any {
	return map[string]any{
		"id": m.ID, "status": m.Status,
		"user_id": m.UserID, "provider_id": m.ProviderID,
	}
}

func participantIDs(m *models.Mission) []uint {
	ids := []uint{m.UserID}
	if m.ProviderID != nil {
		ids = append(ids, *m.ProviderID)
	}
	return ids
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
