// Package mp é o adaptador fino para a API do Mercado Pago (preferências,
// cobranças, consulta de pagamento e estorno).
package mp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"appmissao/internal/apperr"
)

const DefaultBaseURL = "https://api.mercadopago.com"

var missionRefPattern = regexp.MustCompile(`mission:(\d+)`)

// ExternalRef monta a referência `mission:<id>:<kind>` que correlaciona uma
// transação do processador de volta à missão. O formato é contrato: a
// conciliação depende dele byte a byte.
func ExternalRef(missionID uint, kind string) string {
	if kind == "" {
		kind = "full"
	}
	return fmt.Sprintf("mission:%d:%s", missionID, kind)
}

// ParseMissionID extrai o id da missão de uma external_reference.
func ParseMissionID(ref string) (uint, bool) {
	m := missionRefPattern.FindStringSubmatch(ref)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// Client fala com o Mercado Pago. Todas as chamadas têm timeout limitado.
type Client struct {
	Token      string
	PublicKey  string
	BaseURL    string
	WebhookURL string
	BackURL    string
	HTTPClient *http.Client
}

// NewClient monta um cliente com timeout padrão de 15s.
func NewClient(token string) *Client {
	return &Client{
		Token:      strings.TrimSpace(token),
		BaseURL:    DefaultBaseURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Configured informa se há token utilizável.
func (c *Client) Configured() bool {
	return c != nil && c.Token != "" && !strings.Contains(c.Token, "xxxxxxxx")
}

type preferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	CurrencyID string  `json:"currency_id"`
	UnitPrice  float64 `json:"unit_price"`
}

type preferenceBackURLs struct {
	Success string `json:"success"`
	Pending string `json:"pending"`
	Failure string `json:"failure"`
}

type preferencePayload struct {
	Items             []preferenceItem    `json:"items"`
	ExternalReference string              `json:"external_reference"`
	Metadata          map[string]any      `json:"metadata,omitempty"`
	NotificationURL   string              `json:"notification_url,omitempty"`
	Payer             *preferencePayer    `json:"payer,omitempty"`
	BackURLs          *preferenceBackURLs `json:"back_urls,omitempty"`
	AutoReturn        string              `json:"auto_return,omitempty"`
}

type preferencePayer struct {
	Email string `json:"email"`
}

type preferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// Preference é o resultado da criação de um checkout hospedado.
type Preference struct {
	ID          string
	InitPoint   string
	Currency    string
	ExternalRef string
}

// PreferenceInput descreve a parcela a cobrar.
type PreferenceInput struct {
	MissionID    uint
	MissionTitle string
	Amount       float64
	Kind         string
	PayerEmail   string
}

type gatewayErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	ErrorName string `json:"error"`
	BlockedBy string `json:"blocked_by"`
	Causes    []struct {
		Code        any    `json:"code"`
		Description string `json:"description"`
	} `json:"causes"`
}

func (c *Client) buildPreferencePayload(in PreferenceInput, minimal bool) preferencePayload {
	title := in.MissionTitle
	if title == "" {
		title = "Serviço"
	}
	if len(title) > 127 {
		title = title[:127]
	}
	p := preferencePayload{
		Items: []preferenceItem{{
			Title:      title,
			Quantity:   1,
			CurrencyID: "BRL",
			UnitPrice:  in.Amount,
		}},
		ExternalReference: ExternalRef(in.MissionID, in.Kind),
	}
	if minimal {
		return p
	}
	p.Metadata = map[string]any{"mission_id": in.MissionID, "kind": in.Kind}
	if strings.HasPrefix(strings.ToLower(c.WebhookURL), "https://") {
		p.NotificationURL = c.WebhookURL
	}
	if strings.Contains(in.PayerEmail, "@") {
		p.Payer = &preferencePayer{Email: strings.TrimSpace(in.PayerEmail)}
	}
	if base := strings.TrimRight(c.BackURL, "/"); base != "" {
		p.BackURLs = &preferenceBackURLs{Success: base, Pending: base, Failure: base}
		p.AutoReturn = "approved"
	}
	return p
}

// CreatePreference tenta o payload completo e, nas classes de rejeição
// conhecidas (PolicyAgent 403, conflito sponsor_id/collector_id 400), repete
// com o payload mínimo (itens + external_reference). A tentativa que passar
// define o id/init_point devolvidos.
func (c *Client) CreatePreference(ctx context.Context, in PreferenceInput) (*Preference, error) {
	if !c.Configured() {
		return nil, apperr.Gateway(0, "mp-unavailable", "Mercado Pago não configurado. Verifique a variável MP_ACCESS_TOKEN.")
	}

	resp, body, err := c.post(ctx, "/checkout/preferences", c.buildPreferencePayload(in, false))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		parsed := parseGatewayBody(body)
		slog.Error("MP preference rejected on full payload",
			"status", resp.StatusCode, "code", parsed.Code, "message", parsed.Message,
			"blocked_by", parsed.BlockedBy, "mission_id", in.MissionID, "kind", in.Kind)

		if policyRejected(resp.StatusCode, parsed) || sponsorConflict(resp.StatusCode, parsed) {
			resp, body, err = c.post(ctx, "/checkout/preferences", c.buildPreferencePayload(in, true))
			if err != nil {
				return nil, err
			}
			if resp.StatusCode < 300 {
				slog.Info("MP preference created with minimal payload", "mission_id", in.MissionID, "kind", in.Kind)
				return c.decodePreference(body, in)
			}
			parsed = parseGatewayBody(body)
			slog.Error("MP preference rejected on minimal payload",
				"status", resp.StatusCode, "code", parsed.Code, "message", parsed.Message)
		}
		return nil, gatewayError(resp.StatusCode, parsed, body)
	}
	return c.decodePreference(body, in)
}

func (c *Client) decodePreference(body []byte, in PreferenceInput) (*Preference, error) {
	var pref preferenceResponse
	if err := json.Unmarshal(body, &pref); err != nil {
		return nil, apperr.Gateway(0, "mp-decode", "Resposta inválida do Mercado Pago")
	}
	initPoint := pref.InitPoint
	if pref.SandboxInitPoint != "" {
		initPoint = pref.SandboxInitPoint
	}
	return &Preference{
		ID:          pref.ID,
		InitPoint:   initPoint,
		Currency:    "BRL",
		ExternalRef: ExternalRef(in.MissionID, in.Kind),
	}, nil
}

func policyRejected(status int, b gatewayErrorBody) bool {
	if status != http.StatusForbidden {
		return false
	}
	return b.Code == "PA_UNAUTHORIZED_RESULT_FROM_POLICIES" ||
		strings.Contains(strings.ToLower(b.BlockedBy), "policyagent")
}

func sponsorConflict(status int, b gatewayErrorBody) bool {
	if status != http.StatusBadRequest {
		return false
	}
	msg := strings.ToLower(b.Message)
	return strings.Contains(msg, "sponsor_id") && strings.Contains(msg, "collector_id") ||
		(b.ErrorName == "bad_request" && strings.Contains(msg, "sponsor_id"))
}

func parseGatewayBody(body []byte) gatewayErrorBody {
	var parsed gatewayErrorBody
	_ = json.Unmarshal(body, &parsed)
	return parsed
}

func gatewayError(status int, parsed gatewayErrorBody, raw []byte) *apperr.Error {
	msg := parsed.Message
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	var details []string
	for _, cause := range parsed.Causes {
		if cause.Description != "" {
			details = append(details, cause.Description)
		}
	}
	if len(details) > 0 {
		msg = msg + " - " + strings.Join(details, "; ")
	}
	return apperr.Gateway(status, parsed.Code, msg)
}

func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, apperr.Gateway(0, "mp-encode", "Falha ao montar requisição")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, nil, apperr.Gateway(0, "mp-request", "Falha ao montar requisição")
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "AppMissao-Backend/1.0")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, apperr.Gateway(0, "mp-unreachable", "Mercado Pago indisponível: "+err.Error())
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, apperr.Gateway(resp.StatusCode, "mp-read", "Falha ao ler resposta do Mercado Pago")
	}
	return resp, body, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, nil, apperr.Gateway(0, "mp-request", "Falha ao montar requisição")
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, apperr.Gateway(0, "mp-unreachable", "Mercado Pago indisponível: "+err.Error())
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, apperr.Gateway(resp.StatusCode, "mp-read", "Falha ao ler resposta do Mercado Pago")
	}
	return resp, body, nil
}
