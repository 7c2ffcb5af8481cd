package realtime

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestHub(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", hub.ServeWS)
	srv := httptest.NewServer(r)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, hub.Count())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubPublishReachesSubscriber(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn, cleanup := dialTestHub(t, hub)
	defer cleanup()
	waitForClients(t, hub, 1)

	hub.Publish("mission_created", map[string]any{"mission_id": 7})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var evt Event
	require.NoError(t, json.Unmarshal(data, &evt))
	assert.Equal(t, "mission_created", evt.Type)

	payload, ok := evt.Payload.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 7, payload["mission_id"])
}

func TestHubUnregisterOnClose(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn, cleanup := dialTestHub(t, hub)
	defer cleanup()
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHubPublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	for i := 0; i < 10; i++ {
		hub.Publish("payment_created", gin.H{"payment_id": i})
	}
	assert.Equal(t, 0, hub.Count())
}
