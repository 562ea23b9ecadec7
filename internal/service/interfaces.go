package service

import (
	"context"
	"io"

	"pack-portal/internal/model"
)

type packStore interface {
	GetByID(ctx context.Context, id string) (model.Pack, error)
	List(ctx context.Context, filter model.PackFilter) ([]model.Pack, error)
	IncrementDownloadCount(ctx context.Context, id string) error
}

type claimStore interface {
	Create(ctx context.Context, claim model.Claim) error
	GetByID(ctx context.Context, id string) (model.Claim, error)
	FindByPackAndUser(ctx context.Context, packID string, userID string) (model.Claim, error)
}

type downloadRecorder interface {
	Create(ctx context.Context, d model.Download) error
}

type memberResolver interface {
	ResolveMember(ctx context.Context, discordUserID string) model.MemberLookup
}

type tokenMinter interface {
	Mint(grant model.TokenGrant) (string, error)
}

type tokenVerifier interface {
	Verify(token string) (model.TokenGrant, error)
}

type objectOpener interface {
	Open(ctx context.Context, locator string) (io.ReadCloser, int64, error)
}
