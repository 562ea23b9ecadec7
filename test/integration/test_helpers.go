//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"pack-portal/internal/config"
	"pack-portal/internal/database"
	"pack-portal/internal/discord"
	"pack-portal/internal/event"
	"pack-portal/internal/handler"
	"pack-portal/internal/line"
	"pack-portal/internal/model"
	"pack-portal/internal/repository"
	"pack-portal/internal/router"
	"pack-portal/internal/service"
	"pack-portal/internal/storage"
)

const (
	testSecret    = "integration-secret-0123456789abcdef"
	premiumRoleID = "999"
	guildID       = "111"
)

type guildMemberFixture struct {
	Username string
	Roles    []string
}

type testEnv struct {
	server      *httptest.Server
	packs       *repository.PackRepository
	storageRoot string
	bus         *event.InMemoryBus
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()

	databaseURL := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db, err := database.New(ctx, database.Options{URL: databaseURL, MaxConns: 4, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.EnsureSchema(ctx))

	return db
}

// fakeDiscord serves guild member lookups from a fixed roster.
func fakeDiscord(t *testing.T, roster map[string]guildMemberFixture) *httptest.Server {
	t.Helper()

	prefix := "/guilds/" + guildID + "/members/"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bot test-bot-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		member, ok := roster[strings.TrimPrefix(r.URL.Path, prefix)]
		if !strings.HasPrefix(r.URL.Path, prefix) || !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Unknown Member","code":10007}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user":  map[string]string{"id": strings.TrimPrefix(r.URL.Path, prefix), "username": member.Username},
			"roles": member.Roles,
		})
	}))
	t.Cleanup(srv.Close)

	return srv
}

func newTestEnv(t *testing.T, roster map[string]guildMemberFixture) *testEnv {
	t.Helper()

	db := openTestDB(t)
	discordAPI := fakeDiscord(t, roster)

	storageRoot := t.TempDir()
	store, err := storage.NewLocalStore(storageRoot)
	require.NoError(t, err)

	cfg := &config.Config{
		RequestTimeout:      10 * time.Second,
		DownloadMaxDuration: time.Minute,
		DownloadIdleTimeout: 10 * time.Second,
		JWTSecret:           testSecret,
		CORSOrigins:         []string{"*"},
		RateLimitRPM:        0,
		ClaimRateLimitRPM:   0,
	}

	packRepo := repository.NewPackRepository(db.Pool)
	claimRepo := repository.NewClaimRepository(db.Pool)
	downloadRepo := repository.NewDownloadRepository(db.Pool)
	statsRepo := repository.NewStatsRepository(db.Pool)

	codec, err := service.NewTokenCodec(testSecret)
	require.NoError(t, err)
	rules, err := service.DefaultReplyRules()
	require.NoError(t, err)

	bus := event.NewBus()
	members := discord.NewClient(discordAPI.Client(), discordAPI.URL, "test-bot-token", guildID, premiumRoleID)

	h := router.Handlers{
		Claim:    handler.NewClaimHandler(service.NewClaimService(packRepo, claimRepo, members, codec, bus)),
		Download: handler.NewDownloadHandler(service.NewDownloadService(codec, packRepo, claimRepo, downloadRepo, store, storage.NewURLFetcher(http.DefaultClient))),
		Pack:     handler.NewPackHandler(service.NewPackService(packRepo)),
		Line:     handler.NewLineHandler(service.NewLineService(line.NewClient(http.DefaultClient, "http://127.0.0.1:1", ""), rules), ""),
		Stats:    handler.NewStatsHandler(service.NewStatsService(statsRepo)),
		Health:   handler.NewHealthHandler(db),
		Docs:     handler.NewDocsHandler(),
	}

	server := httptest.NewServer(router.New(cfg, h))
	t.Cleanup(server.Close)

	return &testEnv{
		server:      server,
		packs:       packRepo,
		storageRoot: storageRoot,
		bus:         bus,
	}
}

// seedPack stores a pack under a fresh id so tests never share claims.
func (e *testEnv) seedPack(t *testing.T, title string, premium bool, content []byte) model.Pack {
	t.Helper()

	id := "it-" + uuid.NewString()[:8]
	locator := filepath.ToSlash(filepath.Join("packs", id+".pdf"))
	require.NoError(t, os.MkdirAll(filepath.Join(e.storageRoot, "packs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.storageRoot, filepath.FromSlash(locator)), content, 0o644))

	pack := model.Pack{
		ID:        id,
		Title:     title,
		FileURL:   locator,
		FileSize:  int64(len(content)),
		IsPremium: premium,
		Tags:      []string{"integration"},
	}
	require.NoError(t, e.packs.Upsert(context.Background(), pack))

	return pack
}

func (e *testEnv) postJSON(t *testing.T, path string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := http.Post(e.server.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()

	resp, err := http.Get(e.server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func (e *testEnv) claim(t *testing.T, packID string, discordUserID string, username string) *http.Response {
	t.Helper()

	return e.postJSON(t, "/api/v1/claim", model.ClaimRequest{
		PackID:          packID,
		DiscordUserID:   discordUserID,
		DiscordUsername: username,
	})
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
