// Package payments orquestra a criação de cobranças parceladas e a
// conciliação assíncrona com o Mercado Pago (webhook e cartão síncrono).
package payments

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"appmissao/internal/apperr"
	"appmissao/internal/effects"
	"appmissao/internal/mp"
	"appmissao/internal/store"
	"appmissao/models"
)

// Gateway é a superfície do Mercado Pago que o serviço consome.
type Gateway interface {
	CreatePreference(ctx context.Context, in mp.PreferenceInput) (*mp.Preference, error)
	CreateCharge(ctx context.Context, in mp.ChargeInput) (*mp.PaymentData, error)
	GetPayment(ctx context.Context, paymentID int64) (*mp.PaymentData, error)
	CreateRefund(ctx context.Context, paymentID string, amount float64) ([]mp.Refund, error)
}

// Broadcaster publica eventos em tempo real, sem garantia de entrega.
type Broadcaster interface {
	Publish(eventType string, payload any)
}

// Notifier dispara push best-effort filtrado por preferência.
type Notifier interface {
	Notify(ctx context.Context, userIDs []uint, category, title, body string, data map[string]any) effects.Outcome
}

// Service concilia o ledger de pagamentos com o estado das missões.
type Service struct {
	Missions  store.MissionStore
	Payments  store.PaymentStore
	Proposals store.ProposalStore
	Gateway   Gateway
	Broadcast Broadcaster
	Notifier  Notifier
	Percents  Percents
}

// installmentAmount resolve o total acordado e o valor da parcela pedida.
func (s *Service) installmentAmount(mission *models.Mission, kind string) (float64, *models.Proposal, error) {
	accepted, err := s.Proposals.LatestAccepted(mission.ID)
	if err != nil {
		return 0, nil, err
	}
	amount := s.Percents.AmountFor(kind, AgreedTotal(mission, accepted))
	if amount <= 0 {
		return 0, accepted, apperr.InvalidArgument("Valor inválido para pagamento")
	}
	return amount, accepted, nil
}

// PreferenceResult é devolvido ao cliente para abrir o checkout hospedado.
type PreferenceResult struct {
	InitPoint    string `json:"init_point"`
	PreferenceID string `json:"preference_id"`
}

// RequestPreference cria explicitamente uma preferência para a parcela
// pedida. Fluxo obrigatório: erro de gateway propaga para o chamador.
func (s *Service) RequestPreference(ctx context.Context, missionID, actorID uint, kind, payerEmail string) (*PreferenceResult, error) {
	mission, err := s.Missions.Get(missionID)
	if err != nil {
		return nil, err
	}
	if mission.UserID != actorID {
		return nil, apperr.Forbidden("Sem permissão")
	}
	amount, accepted, err := s.installmentAmount(mission, kind)
	if err != nil {
		return nil, err
	}
	pref, err := s.Gateway.CreatePreference(ctx, mp.PreferenceInput{
		MissionID:    mission.ID,
		MissionTitle: mission.Title,
		Amount:       amount,
		Kind:         kind,
		PayerEmail:   payerEmail,
	})
	if err != nil {
		return nil, err
	}
	payment := &models.Payment{
		MissionID:      mission.ID,
		UserID:         &actorID,
		ProviderID:     mission.ProviderID,
		Amount:         amount,
		Currency:       pref.Currency,
		Status:         models.PaymentPending,
		MPPreferenceID: pref.ID,
		ExternalRef:    pref.ExternalRef,
	}
	if accepted != nil {
		payment.ProposalID = &accepted.ID
	}
	if err := s.Payments.Create(payment); err != nil {
		return nil, err
	}
	s.Notifier.Notify(ctx, []uint{mission.UserID}, "payment", "Pagamento iniciado",
		"Missão #"+itoa(mission.ID), map[string]any{"mission_id": mission.ID, "kind": kind})
	return &PreferenceResult{InitPoint: pref.InitPoint, PreferenceID: pref.ID}, nil
}

// AutoPreference é o gatilho automático das transições de estado (depósito na
// criação, restante no awaiting_confirmation). Best-effort: qualquer falha é
// logada e engolida, e a transição que disparou continua valendo.
func (s *Service) AutoPreference(ctx context.Context, mission *models.Mission, kind, payerEmail string) effects.Outcome {
	amount, accepted, err := s.installmentAmount(mission, kind)
	if err != nil {
		if apperr.Is(err, apperr.KindInvalidArgument) {
			return effects.Skipped
		}
		slog.Error("Auto preference amount resolution failed", "mission_id", mission.ID, "kind", kind, "error", err)
		return effects.FailedIgnored
	}
	pref, err := s.Gateway.CreatePreference(ctx, mp.PreferenceInput{
		MissionID:    mission.ID,
		MissionTitle: mission.Title,
		Amount:       amount,
		Kind:         kind,
		PayerEmail:   payerEmail,
	})
	if err != nil {
		slog.Error("Auto preference creation failed", "mission_id", mission.ID, "kind", kind, "error", err)
		return effects.FailedIgnored
	}
	payment := &models.Payment{
		MissionID:      mission.ID,
		UserID:         &mission.UserID,
		ProviderID:     mission.ProviderID,
		Amount:         amount,
		Currency:       pref.Currency,
		Status:         models.PaymentPending,
		MPPreferenceID: pref.ID,
		ExternalRef:    pref.ExternalRef,
	}
	if accepted != nil {
		payment.ProposalID = &accepted.ID
	}
	if err := s.Payments.Create(payment); err != nil {
		slog.Error("Auto preference ledger insert failed", "mission_id", mission.ID, "kind", kind, "error", err)
		return effects.FailedIgnored
	}
	s.Broadcast.Publish("payment_created", map[string]any{
		"mission_id": mission.ID, "kind": kind, "init_point": pref.InitPoint,
	})
	s.Notifier.Notify(ctx, []uint{mission.UserID}, "payment", "Pagamento iniciado",
		installmentTitle(kind)+" da missão #"+itoa(mission.ID),
		map[string]any{"mission_id": mission.ID, "kind": kind})
	return effects.Succeeded
}

func installmentTitle(kind string) string {
	switch kind {
	case models.PaymentKindDeposit:
		return "Depósito"
	case models.PaymentKindRemainder:
		return "Restante"
	default:
		return "Pagamento"
	}
}

// ChargeCardInput são os dados do Brick de cartão enviados pelo cliente.
type ChargeCardInput struct {
	Kind                 string
	CardToken            string
	PaymentMethodID      string
	Installments         int
	IssuerID             *int
	IdentificationType   string
	IdentificationNumber string
	PayerEmail           string
}

// ChargeCardResult é a resposta síncrona da cobrança.
type ChargeCardResult struct {
	Status    string `json:"status"`
	PaymentID string `json:"payment_id"`
}

// ChargeCard cobra o cartão de forma síncrona e aplica no mesmo caminho de
// resposta o efeito "aprovado ⇒ missão em progresso".
func (s *Service) ChargeCard(ctx context.Context, missionID, actorID uint, in ChargeCardInput) (*ChargeCardResult, error) {
	mission, err := s.Missions.Get(missionID)
	if err != nil {
		return nil, err
	}
	if mission.UserID != actorID {
		return nil, apperr.Forbidden("Sem permissão")
	}
	if in.CardToken == "" || in.PaymentMethodID == "" {
		return nil, apperr.InvalidArgument("Dados de cartão incompletos")
	}
	amount, accepted, err := s.installmentAmount(mission, in.Kind)
	if err != nil {
		return nil, err
	}
	created, err := s.Gateway.CreateCharge(ctx, mp.ChargeInput{
		MissionID:            mission.ID,
		Amount:               amount,
		Kind:                 in.Kind,
		CardToken:            in.CardToken,
		PaymentMethodID:      in.PaymentMethodID,
		Installments:         in.Installments,
		IssuerID:             in.IssuerID,
		PayerEmail:           in.PayerEmail,
		IdentificationType:   in.IdentificationType,
		IdentificationNumber: in.IdentificationNumber,
	})
	if err != nil {
		return nil, err
	}
	status := created.Status
	if status == "" {
		status = models.PaymentPending
	}
	payment := &models.Payment{
		MissionID:   mission.ID,
		UserID:      &actorID,
		ProviderID:  mission.ProviderID,
		Amount:      amount,
		Currency:    "BRL",
		Status:      status,
		MPPaymentID: created.ID.String(),
		ExternalRef: mp.ExternalRef(mission.ID, in.Kind),
	}
	if accepted != nil {
		payment.ProposalID = &accepted.ID
	}
	if err := s.Payments.UpsertByExternalRef(payment); err != nil {
		return nil, err
	}
	if status == models.PaymentApproved {
		s.advanceMission(ctx, mission.ID)
	} else {
		s.Notifier.Notify(ctx, []uint{mission.UserID}, "payment", "Pagamento iniciado",
			"Missão #"+itoa(mission.ID), map[string]any{"mission_id": mission.ID, "kind": in.Kind})
	}
	return &ChargeCardResult{Status: status, PaymentID: created.ID.String()}, nil
}

// WebhookResult resume o processamento para log; o webhook sempre responde
// sucesso ao processador independente do que aconteceu aqui.
type WebhookResult struct {
	Ignored   bool
	PaymentID int64
	Status    string
	MissionID uint
	Advance   effects.Outcome
}

// HandleWebhook processa uma notificação {type, data.id} do processador.
// Upsert idempotente no ledger chaveado por (mp_payment_id OU external_ref);
// pagamento aprovado avança a missão para in_progress no máximo uma vez.
func (s *Service) HandleWebhook(ctx context.Context, notifType string, paymentID int64) (*WebhookResult, error) {
	if notifType != "payment" || paymentID == 0 {
		slog.Info("Webhook ignored", "type", notifType, "payment_id", paymentID)
		return &WebhookResult{Ignored: true}, nil
	}
	data, err := s.Gateway.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	status := data.Status
	if status == "" {
		status = models.PaymentPending
	}
	ext := data.ExternalReference
	missionID, _ := mp.ParseMissionID(ext)

	existing, err := s.Payments.FindByProcessorKey(data.ID.String(), ext)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		oldStatus := existing.Status
		applyProcessorFields(existing, data, status)
		if err := s.Payments.Save(existing); err != nil {
			return nil, err
		}
		slog.Info("Payment reconciled", "payment_db_id", existing.ID,
			"old_status", oldStatus, "new_status", status, "mp_payment_id", data.ID.String())
	} else if ext != "" {
		row := &models.Payment{MissionID: missionID, ExternalRef: ext}
		applyProcessorFields(row, data, status)
		if err := s.Payments.Create(row); err != nil {
			return nil, err
		}
		slog.Info("Payment inserted from webhook", "mp_payment_id", data.ID.String(), "mission_id", missionID)
	}

	result := &WebhookResult{PaymentID: paymentID, Status: status, MissionID: missionID}
	if missionID != 0 && status == models.PaymentApproved {
		result.Advance = s.advanceMission(ctx, missionID)
	}
	return result, nil
}

// applyProcessorFields copia os campos de conciliação reportados pelo MP.
func applyProcessorFields(p *models.Payment, data *mp.PaymentData, status string) {
	p.MPPaymentID = data.ID.String()
	p.Status = status
	p.StatusDetail = data.StatusDetail
	p.Amount = data.TransactionAmount
	if data.CurrencyID != "" {
		p.Currency = data.CurrencyID
	}
	p.PaymentMethodID = data.PaymentMethodID
	p.PayerEmail = data.Payer.Email
	p.CollectorID = data.CollectorID.String()
	if v := data.NetReceivedAmount; v != 0 {
		p.NetReceived = &v
	}
	if v := data.FeeTotal(); v != 0 {
		p.FeeAmount = &v
	}
	if data.Installments != 0 {
		v := data.Installments
		p.Installments = &v
	}
	p.CardLastFour = data.Card.LastFourDigits
	p.OrderID = data.Order.ID.String()
	p.MoneyReleaseDate = data.ReleaseDate()
	if len(data.Refunds) > 0 {
		p.RefundStatus = models.PaymentRefunded
		total := data.RefundTotal()
		p.RefundAmount = &total
		if t, err := time.Parse(time.RFC3339, data.Refunds[0].DateCreated); err == nil {
			p.RefundedAt = &t
		}
	}
	if status == models.PaymentCancelled && p.CanceledAt == nil {
		now := time.Now()
		p.CanceledAt = &now
	}
}

// advanceMission espelha o efeito do accept sem reatribuir provider_id:
// missão ainda não em progresso (e não terminal) vai para in_progress.
func (s *Service) advanceMission(ctx context.Context, missionID uint) effects.Outcome {
	mission, err := s.Missions.Get(missionID)
	if err != nil {
		slog.Error("Mission lookup failed after approved payment", "mission_id", missionID, "error", err)
		return effects.FailedIgnored
	}
	switch mission.Status {
	case models.MissionInProgress, models.MissionCompleted, models.MissionCancelled:
		return effects.Skipped
	}
	updated, err := s.Missions.TransitionStatus(missionID,
		[]string{models.MissionOpen, models.MissionAwaitingConfirmation}, models.MissionInProgress, nil)
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return effects.Skipped
		}
		slog.Error("Mission transition failed after approved payment", "mission_id", missionID, "error", err)
		return effects.FailedIgnored
	}
	slog.Info("Mission advanced to in_progress by approved payment", "mission_id", missionID)
	s.Broadcast.Publish("mission_updated", updated)
	s.Broadcast.Publish("mission_status", map[string]any{
		"id": updated.ID, "status": updated.Status,
		"user_id": updated.UserID, "provider_id": updated.ProviderID,
	})
	s.Notifier.Notify(ctx, participantIDs(updated), "mission", "Missão em progresso",
		"Pagamento aprovado na missão #"+itoa(updated.ID),
		map[string]any{"mission_id": updated.ID, "status": updated.Status})
	return effects.Succeeded
}

// Refund solicita estorno ao processador e atualiza o ledger.
func (s *Service) Refund(ctx context.Context, paymentID, actorID uint, amount float64) ([]mp.Refund, error) {
	payment, err := s.Payments.Get(paymentID)
	if err != nil {
		return nil, err
	}
	mission, err := s.Missions.Get(payment.MissionID)
	if err != nil {
		return nil, err
	}
	if mission.UserID != actorID {
		return nil, apperr.Forbidden("Apenas o cliente pode solicitar estorno")
	}
	if payment.MPPaymentID == "" {
		return nil, apperr.InvalidArgument("Pagamento MP inexistente")
	}
	refunds, err := s.Gateway.CreateRefund(ctx, payment.MPPaymentID, amount)
	if err != nil {
		return nil, err
	}
	var total float64
	for _, r := range refunds {
		total += r.Amount
	}
	payment.Status = models.PaymentRefunded
	payment.RefundStatus = models.PaymentRefunded
	if total > 0 {
		payment.RefundAmount = &total
	}
	if len(refunds) > 0 {
		if t, err := time.Parse(time.RFC3339, refunds[0].DateCreated); err == nil {
			payment.RefundedAt = &t
		}
	}
	if err := s.Payments.Save(payment); err != nil {
		return nil, err
	}
	return refunds, nil
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
