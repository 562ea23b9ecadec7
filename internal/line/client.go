package line

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"pack-portal/internal/model"
)

// ErrNotConfigured is returned by Reply when no channel access token is set.
var ErrNotConfigured = errors.New("LINE channel access token is not configured")

type replyPayload struct {
	ReplyToken string                   `json:"replyToken"`
	Messages   []model.LineReplyMessage `json:"messages"`
}

// Client talks to the LINE Messaging API.
type Client struct {
	http        *http.Client
	baseURL     string
	accessToken string
}

func NewClient(httpClient *http.Client, baseURL string, accessToken string) *Client {
	return &Client{
		http:        httpClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
	}
}

func (c *Client) Reply(ctx context.Context, replyToken string, messages []model.LineReplyMessage) error {
	if c.accessToken == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(replyPayload{ReplyToken: replyToken, Messages: messages})
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/bot/message/reply", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build reply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("LINE API returned %d: %s", resp.StatusCode, snippet)
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
