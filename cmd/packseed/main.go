package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pack-portal/internal/config"
	"pack-portal/internal/database"
	"pack-portal/internal/logger"
	"pack-portal/internal/repository"
	"pack-portal/internal/seed"
)

var (
	flagFile   string
	flagDryRun bool
)

var rootCmd = &cobra.Command{
	Use:           "packseed",
	Short:         "Maintain the pack catalog of the portal",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upsert packs from a YAML catalog",
	Long: `seed reads a catalog of the form

  packs:
    - id: chatgpt-blog
      title: ChatGPT×ブログ入門ガイド
      file_url: guides/chatgpt-blog.pdf
      file_size: 1048576
      is_premium: false
      tags: [blog]

and inserts or updates each pack. Download counters are never touched.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&flagFile, "file", "f", "packs.yaml", "Catalog file")
	seedCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Validate the catalog without writing")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	f, err := os.Open(flagFile)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	packs, err := seed.Decode(f)
	if err != nil {
		return err
	}

	if flagDryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "%d packs valid in %s\n", len(packs), flagFile)
		return nil
	}

	cfg, err := config.LoadDatabase()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := database.New(ctx, cfg.DatabaseOptions())
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	n, err := seed.Apply(ctx, repository.NewPackRepository(db.Pool), packs)
	if err != nil {
		return fmt.Errorf("seeded %d of %d packs: %w", n, len(packs), err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d packs\n", n)
	return nil
}

func main() {
	slog.SetDefault(slog.New(logger.New(os.Getenv("LOG_FORMAT"), os.Getenv("LOG_LEVEL"), os.Stderr)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
