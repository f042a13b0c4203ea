package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Client talks to the video-conferencing provider's REST API. The
// session core stores only the room URL, the created flag, and tokens;
// it never inspects their content.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a provider client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// RoomResult is the structured outcome of a room operation. Failures
// land in Error instead of propagating as faults into the session core.
type RoomResult struct {
	OK      bool   `json:"ok"`
	URL     string `json:"url,omitempty"`
	Created bool   `json:"created"`
	Error   string `json:"error,omitempty"`
}

// TokenResult is the structured outcome of a token mint.
type TokenResult struct {
	OK    bool   `json:"ok"`
	Token string `json:"token,omitempty"`
	Error string `json:"error,omitempty"`
}

// CreateRoom creates (or reuses) the session's video room.
func (c *Client) CreateRoom(ctx context.Context, gameID string) RoomResult {
	body, err := c.post(ctx, "/rooms", map[string]any{
		"name":    "thirty-" + gameID,
		"privacy": "private",
		"properties": map[string]any{
			"max_participants": 4,
			"enable_chat":      false,
		},
	})
	if err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Msg("video room creation failed")
		return RoomResult{Error: err.Error()}
	}

	var room struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &room); err != nil {
		return RoomResult{Error: fmt.Sprintf("decode room response: %v", err)}
	}

	return RoomResult{OK: true, URL: room.URL, Created: true}
}

// CreateMeetingToken mints an access token for one participant.
func (c *Client) CreateMeetingToken(ctx context.Context, gameID, participantName string, isHost bool) TokenResult {
	body, err := c.post(ctx, "/meeting-tokens", map[string]any{
		"properties": map[string]any{
			"room_name": "thirty-" + gameID,
			"user_name": participantName,
			"is_owner":  isHost,
		},
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("game_id", gameID).
			Str("participant", participantName).
			Msg("meeting token mint failed")
		return TokenResult{Error: err.Error()}
	}

	var token struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &token); err != nil {
		return TokenResult{Error: fmt.Sprintf("decode token response: %v", err)}
	}

	return TokenResult{OK: true, Token: token.Token}
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
