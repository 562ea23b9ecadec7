package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pack-portal/internal/config"
	"pack-portal/internal/database"
	"pack-portal/internal/discord"
	"pack-portal/internal/event"
	"pack-portal/internal/handler"
	"pack-portal/internal/line"
	"pack-portal/internal/notify"
	"pack-portal/internal/repository"
	"pack-portal/internal/router"
	"pack-portal/internal/service"
	"pack-portal/internal/storage"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New(cfg *config.Config) (*App, error) {
	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}
	// Payload fetches are bounded by StreamingTimeout, not the client timeout.
	streamClient := &http.Client{}

	primaryStore, err := newObjectStore(cfg, streamClient)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	packRepo := repository.NewPackRepository(pool)
	claimRepo := repository.NewClaimRepository(pool)
	downloadRepo := repository.NewDownloadRepository(pool)
	statsRepo := repository.NewStatsRepository(pool)
	slog.Info("database ready")

	tokenCodec, err := service.NewTokenCodec(cfg.JWTSecret)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}

	replyRules, err := service.DefaultReplyRules()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load LINE reply rules: %w", err)
	}

	bus := event.NewBus()
	stopNotifier := startClaimNotifier(cfg.DiscordNotifyWebhookURL, bus, httpClient)

	members := discord.NewClient(httpClient, cfg.DiscordAPIBase, cfg.DiscordBotToken, cfg.DiscordGuildID, cfg.DiscordPremiumRoleID)

	claimService := service.NewClaimService(packRepo, claimRepo, members, tokenCodec, bus)
	downloadService := service.NewDownloadService(tokenCodec, packRepo, claimRepo, downloadRepo, primaryStore, storage.NewURLFetcher(streamClient))
	packService := service.NewPackService(packRepo)
	statsService := service.NewStatsService(statsRepo)
	lineService := service.NewLineService(line.NewClient(httpClient, cfg.LineAPIBase, cfg.LineChannelAccessToken), replyRules)

	if cfg.LineChannelSecret == "" {
		slog.Warn("LINE_CHANNEL_SECRET not set, LINE webhook will reject every request")
	}

	appRouter := router.New(cfg, router.Handlers{
		Claim:    handler.NewClaimHandler(claimService),
		Download: handler.NewDownloadHandler(downloadService),
		Pack:     handler.NewPackHandler(packService),
		Line:     handler.NewLineHandler(lineService, cfg.LineChannelSecret),
		Stats:    handler.NewStatsHandler(statsService),
		Health:   handler.NewHealthHandler(db),
		Docs:     handler.NewDocsHandler(),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		cleanupFuncs: []func(){
			stopNotifier,
			func() {
				db.Close()
			},
		},
	}, nil
}

// startClaimNotifier returns the function that stops the notifier and waits
// for it to drain. Without a webhook URL nothing is subscribed.
func startClaimNotifier(webhookURL string, bus event.Bus, httpClient *http.Client) func() {
	if webhookURL == "" {
		slog.Info("claim notifications disabled", "reason", "DISCORD_NOTIFY_WEBHOOK_URL not set")
		return func() {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := notify.New(bus, discord.NewWebhookClient(httpClient, webhookURL)).Start(ctx)

	return func() {
		cancel()
		<-done
	}
}

func newObjectStore(cfg *config.Config, httpClient *http.Client) (storage.ObjectStore, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendLocal:
		slog.Info("serving packs from local storage", "root", cfg.StorageRoot)
		store, err := storage.NewLocalStore(cfg.StorageRoot)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		slog.Info("serving packs from Supabase Storage", "bucket", cfg.SupabaseBucket)
		return storage.NewSupabaseStore(httpClient, cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseBucket), nil
	}
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}
