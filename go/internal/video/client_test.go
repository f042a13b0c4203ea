package video

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoom(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/rooms", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "thirty-game-1", payload["name"])
		assert.Equal(t, "private", payload["privacy"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"url":"https://rooms.example/thirty-game-1"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "secret")
	result := c.CreateRoom(context.Background(), "game-1")

	assert.True(t, result.OK)
	assert.True(t, result.Created)
	assert.Equal(t, "https://rooms.example/thirty-game-1", result.URL)
	assert.Empty(t, result.Error)
}

func TestCreateRoomProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewClient(server.URL, "secret")
	result := c.CreateRoom(context.Background(), "game-1")

	// Provider failures degrade to a structured result, never a fault.
	assert.False(t, result.OK)
	assert.Empty(t, result.URL)
	assert.Contains(t, result.Error, "429")
}

func TestCreateRoomUnreachableProvider(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "secret")
	result := c.CreateRoom(context.Background(), "game-1")

	assert.False(t, result.OK)
	assert.NotEmpty(t, result.Error)
}

func TestCreateMeetingToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/meeting-tokens", r.URL.Path)

		var payload struct {
			Properties struct {
				RoomName string `json:"room_name"`
				UserName string `json:"user_name"`
				IsOwner  bool   `json:"is_owner"`
			} `json:"properties"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "thirty-game-1", payload.Properties.RoomName)
		assert.Equal(t, "Karim", payload.Properties.UserName)
		assert.True(t, payload.Properties.IsOwner)

		w.Write([]byte(`{"token":"tok-123"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "secret")
	result := c.CreateMeetingToken(context.Background(), "game-1", "Karim", true)

	assert.True(t, result.OK)
	assert.Equal(t, "tok-123", result.Token)
}

func TestCreateMeetingTokenBadResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "secret")
	result := c.CreateMeetingToken(context.Background(), "game-1", "Sara", false)

	assert.False(t, result.OK)
	assert.Contains(t, result.Error, "decode token response")
}
