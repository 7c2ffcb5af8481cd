// AppMissao/config/mercadopago.go
package config

import (
	"log/slog"
	"os"

	"appmissao/internal/mp"
)

var MP *mp.Client

// ConnectMercadoPago monta o cliente do processador a partir do ambiente.
// Sem MP_ACCESS_TOKEN o backend sobe normalmente, mas toda tentativa de
// cobrança responde 503.
func ConnectMercadoPago() {
	token := os.Getenv("MP_ACCESS_TOKEN")
	if token == "" {
		slog.Warn("MP_ACCESS_TOKEN não definida; pagamentos ficarão indisponíveis.")
	}

	MP = mp.NewClient(token)
	MP.PublicKey = os.Getenv("MP_PUBLIC_KEY")
	MP.WebhookURL = os.Getenv("MP_WEBHOOK_URL")
	MP.BackURL = os.Getenv("APP_BASE_URL")
	if base := os.Getenv("MP_BASE_URL"); base != "" {
		MP.BaseURL = base
	}
	if MP.Configured() {
		slog.Info("Mercado Pago client configured")
	}
}
