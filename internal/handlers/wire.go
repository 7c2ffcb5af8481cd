package handlers

import (
	"appmissao/config"
	"appmissao/internal/media"
	"appmissao/internal/missions"
	"appmissao/internal/notify"
	"appmissao/internal/payments"
	"appmissao/internal/proposals"
	"appmissao/internal/realtime"
	"appmissao/internal/store"
)

// Dependências compartilhadas pelos handlers, montadas uma vez no bootstrap.
var (
	Hub          *realtime.Hub
	MissionSvc   *missions.Service
	PaymentSvc   *payments.Service
	ProposalSvc  *proposals.Service
	NotifySvc    *notify.Service
	MediaSigner  *media.Presigner
	paymentStore store.PaymentStore
)

// Setup injeta os serviços de domínio. Deve rodar depois de config.ConnectDB.
func Setup(hub *realtime.Hub, notifySvc *notify.Service, mediaSigner *media.Presigner) {
	Hub = hub
	NotifySvc = notifySvc
	MediaSigner = mediaSigner

	missionsStore := &store.Missions{DB: config.DB}
	payStore := &store.Payments{DB: config.DB}
	proposalStore := &store.Proposals{DB: config.DB}
	paymentStore = payStore

	PaymentSvc = &payments.Service{
		Missions:  missionsStore,
		Payments:  payStore,
		Proposals: proposalStore,
		Gateway:   config.MP,
		Broadcast: hub,
		Notifier:  notifySvc,
		Percents:  payments.PercentsFromEnv(),
	}
	MissionSvc = &missions.Service{
		Missions:     missionsStore,
		Ledger:       payStore,
		Installments: PaymentSvc,
		Broadcast:    hub,
		Notifier:     notifySvc,
	}
	ProposalSvc = &proposals.Service{
		Proposals: proposalStore,
		Missions:  missionsStore,
		Lifecycle: MissionSvc,
	}
}
