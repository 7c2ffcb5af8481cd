package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"appmissao/internal/apperr"
	"appmissao/models"
)

// Missions é a implementação GORM de MissionStore.
type Missions struct {
	DB *gorm.DB
}

func (s *Missions) Create(m *models.Mission) error {
	if err := s.DB.Create(m).Error; err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (s *Missions) Get(id uint) (*models.Mission, error) {
	var m models.Mission
	if err := s.DB.First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Missão não encontrada")
		}
		return nil, apperr.Storage(err)
	}
	return &m, nil
}

func (s *Missions) TransitionStatus(id uint, from []string, to string, setProvider *uint) (*models.Mission, error) {
	updates := map[string]any{"status": to}
	if setProvider != nil {
		updates["provider_id"] = *setProvider
	}
	res := s.DB.Model(&models.Mission{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return nil, apperr.Storage(res.Error)
	}
	if res.RowsAffected == 0 {
		// Distinguir missão ausente de pré-condição perdida.
		if _, err := s.Get(id); err != nil {
			return nil, err
		}
		return nil, apperr.Conflict("Estado atual não permite esta atualização")
	}
	return s.Get(id)
}

func (s *Missions) ApplyPatch(id uint, priorStatus string, patch MissionPatch) (*models.Mission, error) {
	updates := map[string]any{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Location != nil {
		updates["location"] = *patch.Location
	}
	if patch.Lat != nil {
		updates["lat"] = *patch.Lat
	}
	if patch.Lng != nil {
		updates["lng"] = *patch.Lng
	}
	if patch.Budget != nil {
		updates["budget"] = *patch.Budget
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if len(updates) == 0 {
		return s.Get(id)
	}
	res := s.DB.Model(&models.Mission{}).
		Where("id = ? AND status = ?", id, priorStatus).
		Updates(updates)
	if res.Error != nil {
		return nil, apperr.Storage(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.Get(id); err != nil {
			return nil, err
		}
		return nil, apperr.Conflict("Estado atual não permite esta atualização")
	}
	return s.Get(id)
}

// Payments é a implementação GORM de PaymentStore.
type Payments struct {
	DB *gorm.DB
}

func (s *Payments) Create(p *models.Payment) error {
	if err := s.DB.Create(p).Error; err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (s *Payments) Get(id uint) (*models.Payment, error) {
	var p models.Payment
	if err := s.DB.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Pagamento não encontrado")
		}
		return nil, apperr.Storage(err)
	}
	return &p, nil
}

func (s *Payments) Save(p *models.Payment) error {
	if err := s.DB.Save(p).Error; err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (s *Payments) ListByMission(missionID uint) ([]models.Payment, error) {
	var items []models.Payment
	if err := s.DB.Where("mission_id = ?", missionID).Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, apperr.Storage(err)
	}
	return items, nil
}

func (s *Payments) FindByProcessorKey(mpPaymentID, externalRef string) (*models.Payment, error) {
	var p models.Payment
	err := s.DB.Where("mp_payment_id = ? OR external_ref = ?", mpPaymentID, externalRef).
		Order("id").Limit(1).Find(&p).Error
	if err != nil {
		return nil, apperr.Storage(err)
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (s *Payments) UpsertByExternalRef(p *models.Payment) error {
	var existing models.Payment
	err := s.DB.Where("external_ref = ?", p.ExternalRef).Order("id").Limit(1).Find(&existing).Error
	if err != nil {
		return apperr.Storage(err)
	}
	if existing.ID == 0 {
		return s.Create(p)
	}
	updates := map[string]any{"status": p.Status}
	if p.MPPaymentID != "" {
		updates["mp_payment_id"] = p.MPPaymentID
	}
	if err := s.DB.Model(&models.Payment{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
		return apperr.Storage(err)
	}
	p.ID = existing.ID
	return nil
}

func (s *Payments) ReleaseApproved(missionID uint, depositOnly bool) (int64, error) {
	q := s.DB.Model(&models.Payment{}).
		Where("mission_id = ? AND status = ?", missionID, models.PaymentApproved)
	if depositOnly {
		q = q.Where("external_ref = ?", fmt.Sprintf("mission:%d:deposit", missionID))
	}
	res := q.Update("status", models.PaymentReleased)
	if res.Error != nil {
		return 0, apperr.Storage(res.Error)
	}
	return res.RowsAffected, nil
}

// Proposals é a implementação GORM de ProposalStore.
type Proposals struct {
	DB *gorm.DB
}

func (s *Proposals) Create(p *models.Proposal) error {
	if err := s.DB.Create(p).Error; err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (s *Proposals) Get(id uint) (*models.Proposal, error) {
	var p models.Proposal
	if err := s.DB.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Proposta não encontrada")
		}
		return nil, apperr.Storage(err)
	}
	return &p, nil
}

func (s *Proposals) LatestAccepted(missionID uint) (*models.Proposal, error) {
	var p models.Proposal
	err := s.DB.Where("mission_id = ? AND status = ?", missionID, models.ProposalAccepted).
		Order("id DESC").Limit(1).Find(&p).Error
	if err != nil {
		return nil, apperr.Storage(err)
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (s *Proposals) Decide(id uint, to string) (*models.Proposal, error) {
	res := s.DB.Model(&models.Proposal{}).
		Where("id = ? AND status = ?", id, models.ProposalSent).
		Update("status", to)
	if res.Error != nil {
		return nil, apperr.Storage(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.Get(id); err != nil {
			return nil, err
		}
		return nil, apperr.Conflict("Proposta já decidida")
	}
	return s.Get(id)
}

func (s *Proposals) RejectSiblings(missionID, exceptID uint) (int64, error) {
	res := s.DB.Model(&models.Proposal{}).
		Where("mission_id = ? AND id <> ? AND status = ?", missionID, exceptID, models.ProposalSent).
		Update("status", models.ProposalRejected)
	if res.Error != nil {
		return 0, apperr.Storage(res.Error)
	}
	return res.RowsAffected, nil
}
