package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"pack-portal/internal/metrics"
	"pack-portal/internal/model"
)

const userAgent = "pack-portal (+https://ai-salon-project.vercel.app)"

type guildMember struct {
	User struct {
		ID         string `json:"id"`
		Username   string `json:"username"`
		GlobalName string `json:"global_name"`
	} `json:"user"`
	Roles []string `json:"roles"`
}

// Client resolves community members through the Discord bot API.
type Client struct {
	http          *http.Client
	baseURL       string
	botToken      string
	guildID       string
	premiumRoleID string
}

func NewClient(httpClient *http.Client, baseURL string, botToken string, guildID string, premiumRoleID string) *Client {
	return &Client{
		http:          httpClient,
		baseURL:       strings.TrimRight(baseURL, "/"),
		botToken:      botToken,
		guildID:       guildID,
		premiumRoleID: premiumRoleID,
	}
}

// ResolveMember looks the user up in the guild. One attempt only; any
// transport or API failure is reported as LookupFailed.
func (c *Client) ResolveMember(ctx context.Context, discordUserID string) model.MemberLookup {
	lookup := c.resolve(ctx, discordUserID)
	metrics.RecordIdentityLookup(lookup.Status.String())
	return lookup
}

func (c *Client) resolve(ctx context.Context, discordUserID string) model.MemberLookup {
	if _, err := strconv.ParseUint(discordUserID, 10, 64); err != nil {
		return model.MemberLookup{Status: model.LookupNotFound}
	}

	endpoint := fmt.Sprintf("%s/guilds/%s/members/%s", c.baseURL, c.guildID, discordUserID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		slog.Error("discord member request build failed", "error", err)
		return model.MemberLookup{Status: model.LookupFailed}
	}
	req.Header.Set("Authorization", "Bot "+c.botToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("discord member lookup failed", "discord_user_id", discordUserID, "error", err)
		return model.MemberLookup{Status: model.LookupFailed}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return model.MemberLookup{Status: model.LookupNotFound}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.Error("discord member lookup rejected",
			"discord_user_id", discordUserID, "status", resp.StatusCode, "body", string(body))
		return model.MemberLookup{Status: model.LookupFailed}
	}

	var member guildMember
	if err := json.NewDecoder(resp.Body).Decode(&member); err != nil {
		slog.Error("discord member decode failed", "discord_user_id", discordUserID, "error", err)
		return model.MemberLookup{Status: model.LookupFailed}
	}

	if member.User.Username == "" {
		slog.Error("discord member payload has no username", "discord_user_id", discordUserID)
		return model.MemberLookup{Status: model.LookupFailed}
	}

	return model.MemberLookup{
		Status:   model.LookupFound,
		Username: member.User.Username,
		Premium:  c.premiumRoleID != "" && slices.Contains(member.Roles, c.premiumRoleID),
	}
}
