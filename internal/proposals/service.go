// Package proposals implementa a negociação de propostas sobre missões
// abertas: envio pelo prestador e decisão (aceite/rejeição) pelo dono.
package proposals

import (
	"context"
	"log/slog"

	"appmissao/internal/apperr"
	"appmissao/internal/missions"
	"appmissao/internal/store"
	"appmissao/models"
)

// Service acopla a decisão de proposta à máquina de estados da missão.
type Service struct {
	Proposals store.ProposalStore
	Missions  store.MissionStore
	Lifecycle *missions.Service
}

// Submit registra a proposta de um prestador numa missão aberta.
func (s *Service) Submit(ctx context.Context, missionID, providerID uint, role string, price float64, deadlineDays int) (*models.Proposal, error) {
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
	if price <= 0 || deadlineDays <= 0 {
		return nil, apperr.InvalidArgument("Valores inválidos")
	}
	proposal := &models.Proposal{
		MissionID:    missionID,
		UserID:       providerID,
		Price:        price,
		DeadlineDays: deadlineDays,
		Status:       models.ProposalSent,
	}
	if err := s.Proposals.Create(proposal); err != nil {
		return nil, err
	}
	return proposal, nil
}

// Decide aceita ou rejeita uma proposta. Só o dono da missão decide. Aceitar
// força a missão para in_progress pela mesma transição do accept direto,
// atribuindo o prestador da proposta, e rejeita as demais propostas 'sent'
// da missão.
func (s *Service) Decide(ctx context.Context, proposalID, ownerID uint, decision string) (*models.Proposal, error) {
	if decision != models.ProposalAccepted && decision != models.ProposalRejected {
		return nil, apperr.InvalidArgument("Status inválido")
	}
	proposal, err := s.Proposals.Get(proposalID)
	if err != nil {
		return nil, err
	}
	mission, err := s.Missions.Get(proposal.MissionID)
	if err != nil {
		return nil, err
	}
	if mission.UserID != ownerID {
		return nil, apperr.Forbidden("Sem permissão")
	}

	if decision == models.ProposalAccepted {
		// A transição guardada vem antes da decisão: se outra proposta (ou um
		// accept direto) já tirou a missão de open, a aceitação falha inteira.
		if _, err := s.Lifecycle.StartWithProvider(ctx, mission.ID, proposal.UserID); err != nil {
			return nil, err
		}
	}
	decided, err := s.Proposals.Decide(proposalID, decision)
	if err != nil {
		return nil, err
	}
	if decision == models.ProposalAccepted {
		if rejected, err := s.Proposals.RejectSiblings(mission.ID, proposalID); err != nil {
			slog.Error("Failed to reject sibling proposals", "mission_id", mission.ID, "error", err)
		} else if rejected > 0 {
			slog.Info("Sibling proposals rejected", "mission_id", mission.ID, "count", rejected)
		}
	}
	return decided, nil
}
