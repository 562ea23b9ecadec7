package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/google/uuid"

	"pack-portal/internal/event"
	"pack-portal/internal/metrics"
	"pack-portal/internal/model"
	"pack-portal/pkg/apierror"
)

const (
	msgClaimFieldsMissing  = "必要な情報が不足しています"
	msgPackNotFound        = "指定された特典パックが見つかりません"
	msgDiscordUnverifiable = "Discord情報の確認に失敗しました。ユーザーIDが正しいか確認してください。"
	msgDiscordMismatch     = "Discord ユーザー名が一致しません。正しい情報を入力してください。"
	msgPremiumOnly         = "このパックはプレミアム研究員限定です。プレミアムプランにアップグレードしてください。"
	msgClaimRecordFailed   = "申請の記録に失敗しました。再度お試しください。"
	msgClaimProcessFailed  = "申請処理中にエラーが発生しました。再度お試しください。"
	MsgClaimSucceeded      = "認証が成功しました。ダウンロードページに移動しています..."
)

type ClaimService struct {
	packs   packStore
	claims  claimStore
	members memberResolver
	tokens  tokenMinter
	bus     event.Bus
	now     func() time.Time
}

func NewClaimService(packs packStore, claims claimStore, members memberResolver, tokens tokenMinter, bus event.Bus) *ClaimService {
	return &ClaimService{
		packs:   packs,
		claims:  claims,
		members: members,
		tokens:  tokens,
		bus:     bus,
		now:     time.Now,
	}
}

// DeriveUserID builds the portal user id for a Discord identity. Every
// UTF-16 code unit outside [a-z0-9] becomes "_", so a character beyond the
// BMP yields two underscores. Ids stored by the web portal use the same rule.
func DeriveUserID(discordUserID string, discordUsername string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(discordUsername) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		units := utf16.RuneLen(r)
		if units < 1 {
			units = 1
		}
		b.WriteString(strings.Repeat("_", units))
	}

	return "discord_" + discordUserID + "_" + b.String()
}

// Issue verifies the Discord identity behind req and returns a download token
// for the requested pack. Repeated claims for the same pack and user reuse the
// stored claim; identity and entitlement are checked again every time.
func (s *ClaimService) Issue(ctx context.Context, req model.ClaimRequest) (model.ClaimResult, error) {
	packID := strings.TrimSpace(req.PackID)
	discordUserID := strings.TrimSpace(req.DiscordUserID)
	username := strings.TrimSpace(req.DiscordUsername)

	if packID == "" || discordUserID == "" || username == "" {
		return s.reject(apierror.Validation(msgClaimFieldsMissing, "packId, discordUserId and discordUsername are required"))
	}

	pack, err := s.packs.GetByID(ctx, packID)
	if errors.Is(err, model.ErrPackNotFound) {
		return s.reject(apierror.NotFound(msgPackNotFound, packID))
	}
	if err != nil {
		slog.Error("claim pack lookup failed", "pack_id", packID, "error", err)
		return s.fail(apierror.Persistence(msgClaimProcessFailed))
	}

	member := s.members.ResolveMember(ctx, discordUserID)
	if !member.Found() {
		slog.Info("claim identity not verified", "discord_user_id", discordUserID, "status", member.Status.String())
		return s.reject(apierror.Auth(msgDiscordUnverifiable))
	}

	if !strings.EqualFold(member.Username, username) {
		return s.reject(apierror.Auth(msgDiscordMismatch))
	}

	if pack.IsPremium && !member.Premium {
		return s.reject(apierror.Forbidden(msgPremiumOnly))
	}

	userID := DeriveUserID(discordUserID, username)

	claim, created, err := s.findOrCreateClaim(ctx, pack, userID, discordUserID, username)
	if err != nil {
		slog.Error("claim persistence failed", "pack_id", pack.ID, "user_id", userID, "error", err)
		return s.fail(apierror.Persistence(msgClaimRecordFailed))
	}

	token, err := s.tokens.Mint(model.TokenGrant{
		UserID:          userID,
		DiscordUserID:   discordUserID,
		DiscordUsername: username,
		PackID:          pack.ID,
		ClaimID:         claim.ID,
	})
	if err != nil {
		slog.Error("download token mint failed", "claim_id", claim.ID, "error", err)
		return s.fail(fmt.Errorf("mint token: %w", err))
	}

	if created {
		metrics.RecordClaim(metrics.OutcomeIssued)
		s.bus.Publish(event.New(event.TypeClaimCreated, userID, event.ClaimCreated{
			ClaimID:         claim.ID,
			PackID:          pack.ID,
			PackTitle:       pack.Title,
			DiscordUserID:   discordUserID,
			DiscordUsername: username,
		}))
	} else {
		metrics.RecordClaim(metrics.OutcomeReused)
	}

	slog.Info("claim issued", "claim_id", claim.ID, "pack_id", pack.ID, "user_id", userID, "created", created)

	return model.ClaimResult{Token: token, ClaimID: claim.ID, Created: created}, nil
}

func (s *ClaimService) findOrCreateClaim(ctx context.Context, pack model.Pack, userID string, discordUserID string, username string) (model.Claim, bool, error) {
	existing, err := s.claims.FindByPackAndUser(ctx, pack.ID, userID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, model.ErrClaimNotFound) {
		return model.Claim{}, false, fmt.Errorf("find claim: %w", err)
	}

	claim := model.Claim{
		ID:              uuid.NewString(),
		PackID:          pack.ID,
		UserID:          userID,
		DiscordUserID:   discordUserID,
		DiscordUsername: username,
		ClaimedAt:       s.now().UTC(),
	}

	err = s.claims.Create(ctx, claim)
	if errors.Is(err, model.ErrClaimExists) {
		// A concurrent request inserted the same (pack, user) first.
		existing, err = s.claims.FindByPackAndUser(ctx, pack.ID, userID)
		if err != nil {
			return model.Claim{}, false, fmt.Errorf("re-read claim after conflict: %w", err)
		}
		return existing, false, nil
	}
	if err != nil {
		return model.Claim{}, false, fmt.Errorf("create claim: %w", err)
	}

	return claim, true, nil
}

func (s *ClaimService) reject(err error) (model.ClaimResult, error) {
	metrics.RecordClaim(metrics.OutcomeRejected)
	return model.ClaimResult{}, err
}

func (s *ClaimService) fail(err error) (model.ClaimResult, error) {
	metrics.RecordClaim(metrics.OutcomeFailed)
	return model.ClaimResult{}, err
}
