package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmberMaze/thirty-challenge-code/go/internal/models"
)

func newTestManager(t *testing.T) (*ConnectionManager, string) {
	t.Helper()

	cm := NewConnectionManager(DefaultConnectionConfig())

	ctx, cancel := context.WithCancel(context.Background())
	go cm.Start(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gameID := r.URL.Query().Get("game_id")
		clientID := r.URL.Query().Get("client_id")
		kind := models.ParticipantKind(r.URL.Query().Get("kind"))
		if err := cm.UpgradeConnection(w, r, gameID, clientID, kind); err != nil {
			t.Errorf("upgrade failed: %v", err)
		}
	}))
	t.Cleanup(func() {
		cancel()
		server.Close()
	})

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	return cm, wsURL
}

func dialSession(t *testing.T, wsURL, gameID, clientID string, kind models.ParticipantKind) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(
		wsURL+"?game_id="+gameID+"&client_id="+clientID+"&kind="+string(kind), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestRegisterAndStats(t *testing.T) {
	cm, wsURL := newTestManager(t)

	dialSession(t, wsURL, "game-1", "client-a", models.KindHostDesktop)
	dialSession(t, wsURL, "game-1", "client-b", models.KindPlayerA)
	dialSession(t, wsURL, "game-2", "client-c", models.KindPlayerB)

	require.Eventually(t, func() bool {
		conns, sessions := cm.Stats()
		return conns == 3 && sessions == 2
	}, time.Second, 5*time.Millisecond)
}

func TestSessionHooksFireOnFirstAndLast(t *testing.T) {
	cm, wsURL := newTestManager(t)

	var mu sync.Mutex
	var events []string
	cm.SetSessionHooks(
		func(gameID string) {
			mu.Lock()
			events = append(events, "active:"+gameID)
			mu.Unlock()
		},
		func(gameID string) {
			mu.Lock()
			events = append(events, "idle:"+gameID)
			mu.Unlock()
		},
	)

	first := dialSession(t, wsURL, "game-1", "client-a", models.KindHostDesktop)
	second := dialSession(t, wsURL, "game-1", "client-b", models.KindPlayerA)

	require.Eventually(t, func() bool {
		conns, _ := cm.Stats()
		return conns == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"active:game-1"}, events, "only the first connection activates the session")
	mu.Unlock()

	first.Close()
	second.Close()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 2 && events[1] == "idle:game-1"
	}, time.Second, 5*time.Millisecond)
}

func TestInboundEnvelopeReachesHandler(t *testing.T) {
	cm, wsURL := newTestManager(t)

	type inbound struct {
		gameID string
		env    Envelope
	}
	received := make(chan inbound, 1)
	cm.SetInboundHandler(func(gameID string, env Envelope) {
		received <- inbound{gameID, env}
	})

	conn := dialSession(t, wsURL, "game-1", "client-a", models.KindHostDesktop)

	payload := []byte(`{"type":"state","data":{"origin":"client-a","patch":{"timer":12}}}`)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))

	select {
	case got := <-received:
		assert.Equal(t, "game-1", got.gameID)
		assert.Equal(t, MessageState, got.env.Type)
		assert.JSONEq(t, `{"origin":"client-a","patch":{"timer":12}}`, string(got.env.Data))
	case <-time.After(time.Second):
		t.Fatal("inbound envelope never reached the handler")
	}
}

func TestMalformedAndUnknownEnvelopesDropped(t *testing.T) {
	cm, wsURL := newTestManager(t)

	received := make(chan Envelope, 2)
	cm.SetInboundHandler(func(gameID string, env Envelope) {
		received <- env
	})

	conn := dialSession(t, wsURL, "game-1", "client-a", models.KindHostDesktop)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"shout","data":{}}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"host","data":{"name":"Karim"}}`)))

	select {
	case env := <-received:
		assert.Equal(t, MessageHost, env.Type, "only the valid envelope should survive")
	case <-time.After(time.Second):
		t.Fatal("valid envelope never arrived")
	}
	select {
	case env := <-received:
		t.Fatalf("unexpected extra envelope of type %s", env.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastToSession(t *testing.T) {
	cm, wsURL := newTestManager(t)

	connA := dialSession(t, wsURL, "game-1", "client-a", models.KindHostDesktop)
	connB := dialSession(t, wsURL, "game-1", "client-b", models.KindPlayerA)
	other := dialSession(t, wsURL, "game-2", "client-c", models.KindPlayerB)

	require.Eventually(t, func() bool {
		conns, _ := cm.Stats()
		return conns == 3
	}, time.Second, 5*time.Millisecond)

	env := Envelope{Type: MessageState, Data: json.RawMessage(`{"origin":"client-a"}`)}
	cm.BroadcastToSession("game-1", env)

	for _, conn := range []*websocket.Conn{connA, connB} {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var got Envelope
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, MessageState, got.Type)
	}

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "a different session must not receive the broadcast")
}

func TestBroadcastToClient(t *testing.T) {
	cm, wsURL := newTestManager(t)

	connA := dialSession(t, wsURL, "game-1", "client-a", models.KindHostDesktop)
	connB := dialSession(t, wsURL, "game-1", "client-b", models.KindPlayerA)

	require.Eventually(t, func() bool {
		conns, _ := cm.Stats()
		return conns == 2
	}, time.Second, 5*time.Millisecond)

	env := Envelope{Type: MessageVideo, Data: json.RawMessage(`{"url":"https://rooms.example/r"}`)}
	cm.BroadcastToClient("game-1", "client-b", env)

	connB.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := connB.ReadMessage()
	require.NoError(t, err)
	var got Envelope
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, MessageVideo, got.Type)

	connA.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = connA.ReadMessage()
	assert.Error(t, err, "targeted broadcast must not reach other clients")
}
