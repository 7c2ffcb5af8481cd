package mp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appmissao/internal/apperr"
)

func newTestClient(url string) *Client {
	c := NewClient("TEST-token-123")
	c.BaseURL = url
	return c
}

func TestExternalRef(t *testing.T) {
	assert.Equal(t, "mission:42:deposit", ExternalRef(42, "deposit"))
	assert.Equal(t, "mission:42:full", ExternalRef(42, ""))

	id, ok := ParseMissionID("mission:42:remainder")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	id, ok = ParseMissionID("mission:42")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	_, ok = ParseMissionID("order:42")
	assert.False(t, ok)
}

func TestConfigured(t *testing.T) {
	assert.False(t, NewClient("").Configured())
	assert.False(t, NewClient("TEST-xxxxxxxx").Configured())
	assert.True(t, NewClient("APP_USR-abc").Configured())
}

func TestCreatePreferenceFullPayload(t *testing.T) {
	var received preferencePayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "Bearer TEST-token-123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(preferenceResponse{ID: "pref-1", InitPoint: "https://mp/init"})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	c.WebhookURL = "https://api.example.com/api/payments/webhook"

	pref, err := c.CreatePreference(context.Background(), PreferenceInput{
		MissionID:    7,
		MissionTitle: "Pintura",
		Amount:       30,
		Kind:         "deposit",
		PayerEmail:   "dono@x.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "pref-1", pref.ID)
	assert.Equal(t, "https://mp/init", pref.InitPoint)
	assert.Equal(t, "mission:7:deposit", pref.ExternalRef)

	require.Len(t, received.Items, 1)
	assert.Equal(t, 30.0, received.Items[0].UnitPrice)
	assert.Equal(t, "mission:7:deposit", received.ExternalReference)
	assert.Equal(t, "https://api.example.com/api/payments/webhook", received.NotificationURL)
	require.NotNil(t, received.Payer)
	assert.Equal(t, "dono@x.com", received.Payer.Email)
}

func TestCreatePreferencePolicyFallback(t *testing.T) {
	var payloads []preferencePayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p preferencePayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		payloads = append(payloads, p)
		if len(payloads) == 1 {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]any{
				"code":    "PA_UNAUTHORIZED_RESULT_FROM_POLICIES",
				"message": "At least one policy returned UNAUTHORIZED",
			})
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(preferenceResponse{ID: "pref-2", SandboxInitPoint: "https://mp/sandbox"})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	c.WebhookURL = "https://api.example.com/webhook"

	pref, err := c.CreatePreference(context.Background(), PreferenceInput{
		MissionID:    7,
		MissionTitle: "Pintura",
		Amount:       30,
		Kind:         "deposit",
		PayerEmail:   "dono@x.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "pref-2", pref.ID)
	assert.Equal(t, "https://mp/sandbox", pref.InitPoint)

	// A repetição usa o payload mínimo: só itens + external_reference.
	require.Len(t, payloads, 2)
	assert.NotEmpty(t, payloads[0].NotificationURL)
	assert.Empty(t, payloads[1].NotificationURL)
	assert.Nil(t, payloads[1].Payer)
	assert.Equal(t, "mission:7:deposit", payloads[1].ExternalReference)
}

func TestCreatePreferenceSponsorConflictFallback(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{
				"error":   "bad_request",
				"message": "sponsor_id and collector_id belong to the same site",
			})
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(preferenceResponse{ID: "pref-3", InitPoint: "https://mp/init"})
	}))
	defer server.Close()

	pref, err := newTestClient(server.URL).CreatePreference(context.Background(), PreferenceInput{
		MissionID: 9, Amount: 10, Kind: "full",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "pref-3", pref.ID)
}

func TestCreatePreferenceHardRejection(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"message": "invalid unit_price",
			"causes":  []map[string]any{{"description": "unit_price must be positive"}},
		})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CreatePreference(context.Background(), PreferenceInput{
		MissionID: 9, Amount: -1, Kind: "full",
	})
	require.Error(t, err)
	// Rejeição fora das classes conhecidas não dispara a repetição.
	assert.Equal(t, 1, calls)
	assert.True(t, apperr.Is(err, apperr.KindGateway))
	assert.Contains(t, err.Error(), "unit_price must be positive")
}

func TestGetPayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/777", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"id":                 777,
			"status":             "approved",
			"external_reference": "mission:7:deposit",
			"transaction_amount": 30.0,
			"fee_details":        []map[string]any{{"amount": 1.5}, {"amount": 0.5}},
		})
	}))
	defer server.Close()

	data, err := newTestClient(server.URL).GetPayment(context.Background(), 777)
	require.NoError(t, err)
	assert.Equal(t, "777", data.ID.String())
	assert.Equal(t, "approved", data.Status)
	assert.Equal(t, "mission:7:deposit", data.ExternalReference)
	assert.Equal(t, 2.0, data.FeeTotal())
}

func TestUnconfiguredClient(t *testing.T) {
	c := NewClient("")
	_, err := c.CreatePreference(context.Background(), PreferenceInput{MissionID: 1, Amount: 10})
	assert.True(t, apperr.Is(err, apperr.KindGateway))
	_, err = c.GetPayment(context.Background(), 1)
	assert.True(t, apperr.Is(err, apperr.KindGateway))
}

func TestCreateRefundSingleObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/777/refunds", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"id": 1, "amount": 30.0, "date_created": "2026-08-01T12:00:00Z"})
	}))
	defer server.Close()

	refunds, err := newTestClient(server.URL).CreateRefund(context.Background(), "777", 0)
	require.NoError(t, err)
	require.Len(t, refunds, 1)
	assert.Equal(t, 30.0, refunds[0].Amount)
}
