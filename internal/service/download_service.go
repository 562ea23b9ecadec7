package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"pack-portal/internal/metrics"
	"pack-portal/internal/model"
	"pack-portal/internal/storage"
	"pack-portal/pkg/apierror"
)

const (
	msgTokenMissing        = "トークンが指定されていません"
	msgTokenInvalid        = "トークンが無効または期限切れです"
	msgDownloadPackMissing = "特典パックが見つかりません"
	msgClaimMissing        = "申請記録が見つかりません"
	msgFileUnavailable     = "ファイルのダウンロードに失敗しました。しばらく時間をおいて再度お試しください。"
	msgDownloadFailed      = "ダウンロード処理中にエラーが発生しました"
)

const binaryContentType = "application/octet-stream"

type DownloadService struct {
	tokens    tokenVerifier
	packs     packStore
	claims    claimStore
	downloads downloadRecorder
	primary   objectOpener
	fallback  objectOpener
	now       func() time.Time
}

// NewDownloadService wires the redeemer. fallback may be nil, in which case
// absolute-URL locators are only tried against primary.
func NewDownloadService(tokens tokenVerifier, packs packStore, claims claimStore, downloads downloadRecorder, primary objectOpener, fallback objectOpener) *DownloadService {
	return &DownloadService{
		tokens:    tokens,
		packs:     packs,
		claims:    claims,
		downloads: downloads,
		primary:   primary,
		fallback:  fallback,
		now:       time.Now,
	}
}

// Inspect reports what a token entitles its holder to without recording a
// download.
func (s *DownloadService) Inspect(ctx context.Context, token string) (model.TokenInfo, error) {
	grant, pack, claim, err := s.resolve(ctx, token)
	if err != nil {
		return model.TokenInfo{}, err
	}

	return model.TokenInfo{
		PackID:          pack.ID,
		PackTitle:       pack.Title,
		PackDescription: pack.Description,
		FileURL:         pack.FileURL,
		FileSize:        pack.FileSize,
		IsPremium:       pack.IsPremium,
		ExpiresAt:       grant.ExpiresAt,
		ClaimID:         claim.ID,
	}, nil
}

// Redeem records a download for token and opens the pack payload. The caller
// must close the returned Body.
func (s *DownloadService) Redeem(ctx context.Context, token string, client model.ClientInfo) (model.PackFile, error) {
	grant, pack, claim, err := s.resolve(ctx, token)
	if err != nil {
		return model.PackFile{}, err
	}

	s.record(ctx, grant, claim, client)

	body, size, source, err := s.open(ctx, pack.FileURL)
	if err != nil {
		metrics.RecordDownload(metrics.SourceFailed)
		return model.PackFile{}, apierror.Unavailable(msgFileUnavailable)
	}
	metrics.RecordDownload(source)

	if size < 0 && pack.FileSize > 0 {
		size = pack.FileSize
	}

	slog.Info("download served", "claim_id", claim.ID, "pack_id", pack.ID, "source", source, "size", size)

	return model.PackFile{
		Title:       pack.Title,
		ContentType: binaryContentType,
		Size:        size,
		Body:        body,
		Source:      source,
	}, nil
}

func (s *DownloadService) resolve(ctx context.Context, token string) (model.TokenGrant, model.Pack, model.Claim, error) {
	if strings.TrimSpace(token) == "" {
		return model.TokenGrant{}, model.Pack{}, model.Claim{}, apierror.Validation(msgTokenMissing, "token is required")
	}

	grant, err := s.tokens.Verify(token)
	if err != nil {
		return model.TokenGrant{}, model.Pack{}, model.Claim{}, apierror.Auth(msgTokenInvalid)
	}

	pack, err := s.packs.GetByID(ctx, grant.PackID)
	if errors.Is(err, model.ErrPackNotFound) {
		return model.TokenGrant{}, model.Pack{}, model.Claim{}, apierror.NotFound(msgDownloadPackMissing, grant.PackID)
	}
	if err != nil {
		slog.Error("download pack lookup failed", "pack_id", grant.PackID, "error", err)
		return model.TokenGrant{}, model.Pack{}, model.Claim{}, apierror.Persistence(msgDownloadFailed)
	}

	claim, err := s.claims.GetByID(ctx, grant.ClaimID)
	if errors.Is(err, model.ErrClaimNotFound) {
		return model.TokenGrant{}, model.Pack{}, model.Claim{}, apierror.NotFound(msgClaimMissing, grant.ClaimID)
	}
	if err != nil {
		slog.Error("download claim lookup failed", "claim_id", grant.ClaimID, "error", err)
		return model.TokenGrant{}, model.Pack{}, model.Claim{}, apierror.Persistence(msgDownloadFailed)
	}

	return grant, pack, claim, nil
}

// record is best-effort; failures never block the download.
func (s *DownloadService) record(ctx context.Context, grant model.TokenGrant, claim model.Claim, client model.ClientInfo) {
	download := model.Download{
		ID:           uuid.NewString(),
		ClaimID:      claim.ID,
		PackID:       grant.PackID,
		UserID:       grant.UserID,
		DownloadedAt: s.now().UTC(),
		IPAddress:    client.IP,
		UserAgent:    client.UserAgent,
	}

	if err := s.downloads.Create(ctx, download); err != nil {
		slog.Warn("failed to record download", "claim_id", claim.ID, "error", err)
	}

	if err := s.packs.IncrementDownloadCount(ctx, grant.PackID); err != nil {
		slog.Warn("failed to increment download count", "pack_id", grant.PackID, "error", err)
	}
}

func (s *DownloadService) open(ctx context.Context, locator string) (io.ReadCloser, int64, string, error) {
	body, size, err := s.primary.Open(ctx, locator)
	if err == nil {
		return body, size, metrics.SourceStorage, nil
	}
	slog.Warn("pack storage fetch failed", "locator", locator, "error", err)

	if s.fallback == nil || !storage.IsRemoteURL(locator) {
		return nil, 0, "", err
	}

	body, size, fallbackErr := s.fallback.Open(ctx, locator)
	if fallbackErr != nil {
		slog.Error("pack fallback fetch failed", "locator", locator, "error", fallbackErr)
		return nil, 0, "", errors.Join(err, fallbackErr)
	}

	return body, size, metrics.SourceFallback, nil
}
