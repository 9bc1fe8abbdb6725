// Package gameid validates player UIDs against the public lookup endpoint
// of the external gaming platform.
package gameid

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ninja-software/terror/v2"
)

type Client struct {
	BaseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type lookupRequest struct {
	Game string `json:"game"`
	UID  string `json:"uid"`
}

type lookupResponse struct {
	Valid    bool   `json:"valid"`
	Nickname string `json:"nickname"`
}

// Validate returns the player nickname for a game UID, or an error when the
// UID does not exist. The endpoint is unauthenticated.
func (c *Client) Validate(game, uid string) (string, error) {
	if c.BaseURL == "" {
		return "", terror.Error(fmt.Errorf("game check url not configured"), "Game UID validation is unavailable.")
	}

	payload, err := json.Marshal(&lookupRequest{Game: game, UID: uid})
	if err != nil {
		return "", terror.Error(err)
	}

	resp, err := c.client.Post(c.BaseURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", terror.Error(err, "Could not reach the game platform, try again later.")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", terror.Error(fmt.Errorf("game check returned %d", resp.StatusCode), "Could not validate game UID, try again later.")
	}

	result := &lookupResponse{}
	err = json.NewDecoder(resp.Body).Decode(result)
	if err != nil {
		return "", terror.Error(err, "Could not validate game UID, try again later.")
	}
	if !result.Valid {
		return "", terror.Error(fmt.Errorf("invalid game uid %s", uid), "Game UID not found, please check and try again.")
	}
	return result.Nickname, nil
}
