package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pack-portal/internal/model"
	"pack-portal/internal/storage"
)

type downloadFixture struct {
	codec     *TokenCodec
	packs     *MockPackStore
	claims    *MockClaimStore
	downloads *MockDownloadRecorder
	primary   *storage.MockObjectStore
	fallback  *storage.MockObjectStore
	svc       *DownloadService
}

func newDownloadFixture(t *testing.T) *downloadFixture {
	t.Helper()

	f := &downloadFixture{
		codec:     newTestCodec(t, time.Now()),
		packs:     new(MockPackStore),
		claims:    new(MockClaimStore),
		downloads: new(MockDownloadRecorder),
		primary:   new(storage.MockObjectStore),
		fallback:  new(storage.MockObjectStore),
	}
	f.svc = NewDownloadService(f.codec, f.packs, f.claims, f.downloads, f.primary, f.fallback)
	return f
}

func (f *downloadFixture) mint(t *testing.T, packID string, claimID string) string {
	t.Helper()

	token, err := f.codec.Mint(model.TokenGrant{
		UserID:          "discord_42_bob",
		DiscordUserID:   "42",
		DiscordUsername: "bob",
		PackID:          packID,
		ClaimID:         claimID,
	})
	require.NoError(t, err)
	return token
}

func (f *downloadFixture) expectRecording(recordErr error, countErr error) {
	f.downloads.On("Create", mock.Anything, mock.MatchedBy(func(d model.Download) bool {
		return d.ClaimID == "c1" && d.PackID == "P1" && d.UserID == "discord_42_bob" && d.ID != ""
	})).Return(recordErr)
	f.packs.On("IncrementDownloadCount", mock.Anything, "P1").Return(countErr)
}

func streamOf(content string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(content))
}

func readAll(t *testing.T, file model.PackFile) string {
	t.Helper()

	defer file.Body.Close()
	data, err := io.ReadAll(file.Body)
	require.NoError(t, err)
	return string(data)
}

func TestDownloadService_Inspect(t *testing.T) {
	f := newDownloadFixture(t)
	token := f.mint(t, "P1", "c1")

	f.packs.On("GetByID", mock.Anything, "P1").Return(model.Pack{
		ID: "P1", Title: "Guide", Description: "desc", FileURL: "guides/p1.pdf", FileSize: 10, IsPremium: true,
	}, nil)
	f.claims.On("GetByID", mock.Anything, "c1").Return(model.Claim{ID: "c1"}, nil)

	info, err := f.svc.Inspect(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, "P1", info.PackID)
	assert.Equal(t, "Guide", info.PackTitle)
	assert.Equal(t, "desc", info.PackDescription)
	assert.Equal(t, "guides/p1.pdf", info.FileURL)
	assert.Equal(t, int64(10), info.FileSize)
	assert.True(t, info.IsPremium)
	assert.Equal(t, "c1", info.ClaimID)
	assert.Greater(t, info.ExpiresAt, time.Now().UnixMilli())

	f.downloads.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.packs.AssertNotCalled(t, "IncrementDownloadCount", mock.Anything, mock.Anything)
}

func TestDownloadService_Redeem(t *testing.T) {
	client := model.ClientInfo{IP: "203.0.113.7", UserAgent: "curl/8"}

	t.Run("serves from storage with reported size", func(t *testing.T) {
		f := newDownloadFixture(t)
		token := f.mint(t, "P1", "c1")

		f.packs.On("GetByID", mock.Anything, "P1").Return(model.Pack{ID: "P1", Title: "Guide", FileURL: "guides/p1.pdf", FileSize: 999}, nil)
		f.claims.On("GetByID", mock.Anything, "c1").Return(model.Claim{ID: "c1"}, nil)
		f.expectRecording(nil, nil)
		f.primary.On("Open", mock.Anything, "guides/p1.pdf").Return(streamOf("pdf!"), int64(4), nil)

		file, err := f.svc.Redeem(context.Background(), token, client)
		require.NoError(t, err)
		assert.Equal(t, "pdf!", readAll(t, file))
		assert.Equal(t, int64(4), file.Size)
		assert.Equal(t, "Guide", file.Title)
		assert.Equal(t, "application/octet-stream", file.ContentType)

		f.downloads.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(d model.Download) bool {
			return d.IPAddress == "203.0.113.7" && d.UserAgent == "curl/8"
		}))
		f.packs.AssertCalled(t, "IncrementDownloadCount", mock.Anything, "P1")
	})

	t.Run("unknown size falls back to stored file size", func(t *testing.T) {
		f := newDownloadFixture(t)
		token := f.mint(t, "P1", "c1")

		f.packs.On("GetByID", mock.Anything, "P1").Return(model.Pack{ID: "P1", FileURL: "guides/p1.pdf", FileSize: 4}, nil)
		f.claims.On("GetByID", mock.Anything, "c1").Return(model.Claim{ID: "c1"}, nil)
		f.expectRecording(nil, nil)
		f.primary.On("Open", mock.Anything, "guides/p1.pdf").Return(streamOf("pdf!"), int64(-1), nil)

		file, err := f.svc.Redeem(context.Background(), token, client)
		require.NoError(t, err)
		assert.Equal(t, int64(4), file.Size)
		_ = readAll(t, file)
	})

	t.Run("recording failures do not block the download", func(t *testing.T) {
		f := newDownloadFixture(t)
		token := f.mint(t, "P1", "c1")

		f.packs.On("GetByID", mock.Anything, "P1").Return(model.Pack{ID: "P1", FileURL: "guides/p1.pdf"}, nil)
		f.claims.On("GetByID", mock.Anything, "c1").Return(model.Claim{ID: "c1"}, nil)
		f.expectRecording(errors.New("insert failed"), errors.New("update failed"))
		f.primary.On("Open", mock.Anything, "guides/p1.pdf").Return(streamOf("ok"), int64(2), nil)

		file, err := f.svc.Redeem(context.Background(), token, client)
		require.NoError(t, err)
		assert.Equal(t, "ok", readAll(t, file))
	})

	t.Run("absolute URL falls back to direct fetch", func(t *testing.T) {
		f := newDownloadFixture(t)
		token := f.mint(t, "P1", "c1")
		locator := "https://cdn.example.com/p1.zip"

		f.packs.On("GetByID", mock.Anything, "P1").Return(model.Pack{ID: "P1", FileURL: locator, FileSize: 100}, nil)
		f.claims.On("GetByID", mock.Anything, "c1").Return(model.Claim{ID: "c1"}, nil)
		f.expectRecording(nil, nil)
		f.primary.On("Open", mock.Anything, locator).Return(nil, int64(0), errors.New("absolute URL"))
		f.fallback.On("Open", mock.Anything, locator).Return(streamOf("zip"), int64(3), nil)

		file, err := f.svc.Redeem(context.Background(), token, client)
		require.NoError(t, err)
		assert.Equal(t, "zip", readAll(t, file))
		assert.Equal(t, int64(3), file.Size)
	})

	t.Run("relative locator does not use the fallback", func(t *testing.T) {
		f := newDownloadFixture(t)
		token := f.mint(t, "P1", "c1")

		f.packs.On("GetByID", mock.Anything, "P1").Return(model.Pack{ID: "P1", FileURL: "guides/p1.pdf"}, nil)
		f.claims.On("GetByID", mock.Anything, "c1").Return(model.Claim{ID: "c1"}, nil)
		f.expectRecording(nil, nil)
		f.primary.On("Open", mock.Anything, "guides/p1.pdf").Return(nil, int64(0), storage.ErrNotFound)

		_, err := f.svc.Redeem(context.Background(), token, client)
		requireAPIError(t, err, http.StatusInternalServerError)
		f.fallback.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
	})

	t.Run("both sources failing is unavailable", func(t *testing.T) {
		f := newDownloadFixture(t)
		token := f.mint(t, "P1", "c1")
		locator := "http://cdn.example.com/p1.zip"

		f.packs.On("GetByID", mock.Anything, "P1").Return(model.Pack{ID: "P1", FileURL: locator}, nil)
		f.claims.On("GetByID", mock.Anything, "c1").Return(model.Claim{ID: "c1"}, nil)
		f.expectRecording(nil, nil)
		f.primary.On("Open", mock.Anything, locator).Return(nil, int64(0), errors.New("primary down"))
		f.fallback.On("Open", mock.Anything, locator).Return(nil, int64(0), errors.New("HTTP 502"))

		_, err := f.svc.Redeem(context.Background(), token, client)
		apiErr := requireAPIError(t, err, http.StatusInternalServerError)
		assert.Equal(t, msgFileUnavailable, apiErr.Message)
	})

	t.Run("invalid token", func(t *testing.T) {
		f := newDownloadFixture(t)

		_, err := f.svc.Redeem(context.Background(), "not-a-token", client)
		requireAPIError(t, err, http.StatusUnauthorized)

		_, err = f.svc.Redeem(context.Background(), "", client)
		requireAPIError(t, err, http.StatusBadRequest)

		f.packs.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("pack or claim gone", func(t *testing.T) {
		f := newDownloadFixture(t)
		f.packs.On("GetByID", mock.Anything, "gone").Return(model.Pack{}, model.ErrPackNotFound)
		_, err := f.svc.Redeem(context.Background(), f.mint(t, "gone", "c1"), client)
		apiErr := requireAPIError(t, err, http.StatusNotFound)
		assert.Equal(t, msgDownloadPackMissing, apiErr.Message)

		f = newDownloadFixture(t)
		f.packs.On("GetByID", mock.Anything, "P1").Return(model.Pack{ID: "P1"}, nil)
		f.claims.On("GetByID", mock.Anything, "c-gone").Return(model.Claim{}, model.ErrClaimNotFound)
		_, err = f.svc.Redeem(context.Background(), f.mint(t, "P1", "c-gone"), client)
		apiErr = requireAPIError(t, err, http.StatusNotFound)
		assert.Equal(t, msgClaimMissing, apiErr.Message)

		f.downloads.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
