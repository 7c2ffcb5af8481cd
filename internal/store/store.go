// Package store define as interfaces de persistência que o núcleo consome e
// a implementação GORM usada em produção. Os serviços de domínio nunca tocam
// o *gorm.DB diretamente: toda mutação de estado passa por operações
// estreitas cujo WHERE reafirma a pré-condição lida (compare-and-swap).
package store

import "appmissao/models"

// MissionPatch é a atualização parcial tipada aceita pelo PATCH do dono.
// Campos nil não são tocados.
type MissionPatch struct {
	Title       *string
	Description *string
	Location    *string
	Lat         *float64
	Lng         *float64
	Budget      *float64
	Status      *string
}

// Empty informa se nenhum campo foi enviado.
func (p MissionPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Location == nil &&
		p.Lat == nil && p.Lng == nil && p.Budget == nil && p.Status == nil
}

// MissionStore persiste missões. Transições de status são guardadas: a
// escrita só vale se a pré-imagem da linha ainda satisfaz o status esperado;
// quem perde a corrida recebe Conflict.
type MissionStore interface {
	Create(m *models.Mission) error
	Get(id uint) (*models.Mission, error)

	// TransitionStatus muda o status somente se o atual está em `from`.
	// setProvider, quando não-nil, atribui provider_id na mesma escrita.
	TransitionStatus(id uint, from []string, to string, setProvider *uint) (*models.Mission, error)

	// ApplyPatch aplica a atualização parcial reafirmando o status lido.
	ApplyPatch(id uint, priorStatus string, patch MissionPatch) (*models.Mission, error)
}

// PaymentStore persiste o ledger de cobranças.
type PaymentStore interface {
	Create(p *models.Payment) error
	Get(id uint) (*models.Payment, error)
	Save(p *models.Payment) error
	ListByMission(missionID uint) ([]models.Payment, error)

	// FindByProcessorKey localiza a linha pelo id do processador ou pela
	// external_reference; devolve nil quando não existe.
	FindByProcessorKey(mpPaymentID, externalRef string) (*models.Payment, error)

	// UpsertByExternalRef insere ou, se já existe linha com a mesma
	// external_ref, atualiza status e campos do processador no lugar.
	UpsertByExternalRef(p *models.Payment) error

	// ReleaseApproved marca como released os pagamentos aprovados da missão.
	// Com depositOnly, apenas o aprovado cuja external_ref termina em :deposit.
	ReleaseApproved(missionID uint, depositOnly bool) (int64, error)
}

// ProposalStore persiste propostas.
type ProposalStore interface {
	Create(p *models.Proposal) error
	Get(id uint) (*models.Proposal, error)

	// LatestAccepted devolve a proposta aceita mais recente da missão, ou nil.
	LatestAccepted(missionID uint) (*models.Proposal, error)

	// Decide muda sent -> accepted|rejected de forma guardada.
	Decide(id uint, to string) (*models.Proposal, error)

	// RejectSiblings rejeita as demais propostas 'sent' da missão.
	RejectSiblings(missionID, exceptID uint) (int64, error)
}
