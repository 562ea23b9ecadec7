package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pack-portal/internal/model"
)

// DownloadTokenTTL is how long a minted download token stays redeemable.
const DownloadTokenTTL = 24 * time.Hour

// TokenCodec mints and verifies HS256 download tokens. Besides the standard
// exp claim every token carries its own millisecond "expiresAt", and both are
// enforced on verification.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenCodec(secret string) (*TokenCodec, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}

	return &TokenCodec{
		secret: []byte(secret),
		ttl:    DownloadTokenTTL,
		now:    time.Now,
	}, nil
}

// Mint signs grant. Any ExpiresAt on the input is replaced by now+24h.
func (c *TokenCodec) Mint(grant model.TokenGrant) (string, error) {
	now := c.now().UTC()
	expiresAt := now.Add(c.ttl)

	claims := jwt.MapClaims{
		"userId":          grant.UserID,
		"discordUserId":   grant.DiscordUserID,
		"discordUsername": grant.DiscordUsername,
		"packId":          grant.PackID,
		"claimId":         grant.ClaimID,
		"expiresAt":       expiresAt.UnixMilli(),
		"iat":             now.Unix(),
		"exp":             expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign download token: %w", err)
	}

	return signed, nil
}

// Verify returns the grant carried by token. Every failure is reported as
// model.ErrTokenInvalid; the cause is only logged.
func (c *TokenCodec) Verify(tokenString string) (model.TokenGrant, error) {
	grant, err := c.parse(tokenString)
	if err != nil {
		slog.Warn("download token rejected", "error", err)
		return model.TokenGrant{}, model.ErrTokenInvalid
	}

	return grant, nil
}

func (c *TokenCodec) parse(tokenString string) (model.TokenGrant, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return model.TokenGrant{}, err
	}
	if !parsed.Valid {
		return model.TokenGrant{}, errors.New("token is not valid")
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return model.TokenGrant{}, errors.New("unexpected claims type")
	}

	grant := model.TokenGrant{}
	grant.UserID, _ = claimsMap["userId"].(string)
	grant.DiscordUserID, _ = claimsMap["discordUserId"].(string)
	grant.DiscordUsername, _ = claimsMap["discordUsername"].(string)
	grant.PackID, _ = claimsMap["packId"].(string)
	grant.ClaimID, _ = claimsMap["claimId"].(string)

	if grant.UserID == "" || grant.PackID == "" || grant.ClaimID == "" {
		return model.TokenGrant{}, errors.New("token payload is incomplete")
	}

	expiresAt, ok := claimsMap["expiresAt"].(float64)
	if !ok {
		return model.TokenGrant{}, errors.New("token payload has no expiresAt")
	}
	grant.ExpiresAt = int64(expiresAt)

	if c.now().UnixMilli() >= grant.ExpiresAt {
		return model.TokenGrant{}, fmt.Errorf("embedded expiry %d has passed", grant.ExpiresAt)
	}

	return grant, nil
}
