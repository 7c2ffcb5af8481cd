// Package storetest fornece implementações em memória das interfaces do
// store, com as mesmas semânticas guardadas, para os testes dos serviços.
package storetest

import (
	"fmt"
	"sync"

	"appmissao/internal/apperr"
	"appmissao/internal/store"
	"appmissao/models"
)

// Missions é um MissionStore em memória.
type Missions struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]*models.Mission
}

func NewMissions() *Missions {
	return &Missions{rows: make(map[uint]*models.Mission)}
}

func (s *Missions) Create(m *models.Mission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m.ID = s.nextID
	cp := *m
	s.rows[m.ID] = &cp
	return nil
}

func (s *Missions) Get(id uint) (*models.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.rows[id]
	if !ok {
		return nil, apperr.NotFound("Missão não encontrada")
	}
	cp := *m
	return &cp, nil
}

func (s *Missions) TransitionStatus(id uint, from []string, to string, setProvider *uint) (*models.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.rows[id]
	if !ok {
		return nil, apperr.NotFound("Missão não encontrada")
	}
	if !contains(from, m.Status) {
		return nil, apperr.Conflict("Estado atual não permite esta atualização")
	}
	m.Status = to
	if setProvider != nil {
		v := *setProvider
		m.ProviderID = &v
	}
	cp := *m
	return &cp, nil
}

func (s *Missions) ApplyPatch(id uint, priorStatus string, patch store.MissionPatch) (*models.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.rows[id]
	if !ok {
		return nil, apperr.NotFound("Missão não encontrada")
	}
	if m.Status != priorStatus {
		return nil, apperr.Conflict("Estado atual não permite esta atualização")
	}
	if patch.Title != nil {
		m.Title = *patch.Title
	}
	if patch.Description != nil {
		m.Description = *patch.Description
	}
	if patch.Location != nil {
		m.Location = *patch.Location
	}
	if patch.Lat != nil {
		m.Lat = patch.Lat
	}
	if patch.Lng != nil {
		m.Lng = patch.Lng
	}
	if patch.Budget != nil {
		m.Budget = patch.Budget
	}
	if patch.Status != nil {
		m.Status = *patch.Status
	}
	cp := *m
	return &cp, nil
}

// Payments é um PaymentStore em memória.
type Payments struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]*models.Payment
}

func NewPayments() *Payments {
	return &Payments{rows: make(map[uint]*models.Payment)}
}

func (s *Payments) Create(p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p.ID = s.nextID
	cp := *p
	s.rows[p.ID] = &cp
	return nil
}

func (s *Payments) Get(id uint) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok {
		return nil, apperr.NotFound("Pagamento não encontrado")
	}
	cp := *p
	return &cp, nil
}

func (s *Payments) Save(p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[p.ID]; !ok {
		return apperr.NotFound("Pagamento não encontrado")
	}
	cp := *p
	s.rows[p.ID] = &cp
	return nil
}

func (s *Payments) ListByMission(missionID uint) ([]models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Payment
	for id := uint(1); id <= s.nextID; id++ {
		if p, ok := s.rows[id]; ok && p.MissionID == missionID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *Payments) FindByProcessorKey(mpPaymentID, externalRef string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := uint(1); id <= s.nextID; id++ {
		p, ok := s.rows[id]
		if !ok {
			continue
		}
		if (mpPaymentID != "" && p.MPPaymentID == mpPaymentID) ||
			(externalRef != "" && p.ExternalRef == externalRef) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Payments) UpsertByExternalRef(p *models.Payment) error {
	s.mu.Lock()
	for id := uint(1); id <= s.nextID; id++ {
		existing, ok := s.rows[id]
		if ok && existing.ExternalRef == p.ExternalRef {
			existing.Status = p.Status
			if p.MPPaymentID != "" {
				existing.MPPaymentID = p.MPPaymentID
			}
			p.ID = existing.ID
			s.mu.Unlock()
			return nil
		}
	}
	s.mu.Unlock()
	return s.Create(p)
}

func (s *Payments) ReleaseApproved(missionID uint, depositOnly bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	depositRef := fmt.Sprintf("mission:%d:deposit", missionID)
	var count int64
	for _, p := range s.rows {
		if p.MissionID != missionID || p.Status != models.PaymentApproved {
			continue
		}
		if depositOnly && p.ExternalRef != depositRef {
			continue
		}
		p.Status = models.PaymentReleased
		count++
	}
	return count, nil
}

// Proposals é um ProposalStore em memória.
type Proposals struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]*models.Proposal
}

func NewProposals() *Proposals {
	return &Proposals{rows: make(map[uint]*models.Proposal)}
}

func (s *Proposals) Create(p *models.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p.ID = s.nextID
	cp := *p
	s.rows[p.ID] = &cp
	return nil
}

func (s *Proposals) Get(id uint) (*models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok {
		return nil, apperr.NotFound("Proposta não encontrada")
	}
	cp := *p
	return &cp, nil
}

func (s *Proposals) LatestAccepted(missionID uint) (*models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.Proposal
	for id := uint(1); id <= s.nextID; id++ {
		if p, ok := s.rows[id]; ok && p.MissionID == missionID && p.Status == models.ProposalAccepted {
			latest = p
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *Proposals) Decide(id uint, to string) (*models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok {
		return nil, apperr.NotFound("Proposta não encontrada")
	}
	if p.Status != models.ProposalSent {
		return nil, apperr.Conflict("Proposta já decidida")
	}
	p.Status = to
	cp := *p
	return &cp, nil
}

func (s *Proposals) RejectSiblings(missionID, exceptID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, p := range s.rows {
		if p.MissionID == missionID && p.ID != exceptID && p.Status == models.ProposalSent {
			p.Status = models.ProposalRejected
			count++
		}
	}
	return count, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
