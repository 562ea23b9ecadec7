package model

import "time"

type Claim struct {
	ID              string    `json:"id"`
	PackID          string    `json:"pack_id"`
	UserID          string    `json:"user_id"`
	DiscordUserID   string    `json:"discord_user_id"`
	DiscordUsername string    `json:"discord_username"`
	ClaimedAt       time.Time `json:"claimed_at"`
}

type ClaimRequest struct {
	PackID          string `json:"packId"`
	DiscordUserID   string `json:"discordUserId"`
	DiscordUsername string `json:"discordUsername"`
}

type ClaimResult struct {
	Token   string
	ClaimID string
	Created bool
}

type ClaimResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	Message string `json:"message"`
}

// TokenGrant is the payload carried by a download token.
type TokenGrant struct {
	UserID          string
	DiscordUserID   string
	DiscordUsername string
	PackID          string
	ClaimID         string
	// ExpiresAt is a millisecond Unix epoch.
	ExpiresAt int64
}

type TokenInfo struct {
	PackID          string `json:"packId"`
	PackTitle       string `json:"packTitle"`
	PackDescription string `json:"packDescription"`
	FileURL         string `json:"fileUrl"`
	FileSize        int64  `json:"fileSize"`
	IsPremium       bool   `json:"isPremium"`
	ExpiresAt       int64  `json:"expiresAt"`
	ClaimID         string `json:"claimId"`
}
