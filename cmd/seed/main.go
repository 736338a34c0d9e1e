package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"communityBoard/cmd/app"
	"communityBoard/internal/config"
	"communityBoard/internal/seed"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		fixturePath string
		imagesDir   string
		backend     string
		dryRun      bool
		prune       bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users, posts and images from a YAML fixture",
		Long: `Seed writes the users and posts documents described in a YAML fixture
into the configured document store and uploads the listed image files
into the blob store. The posts document is replaced as a whole.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), fixturePath, imagesDir, backend, dryRun, prune)
		},
	}

	cmd.Flags().StringVarP(&fixturePath, "file", "f", "fixtures/seed.yaml", "Fixture file (YAML)")
	cmd.Flags().StringVar(&imagesDir, "images-dir", "", "Directory image paths are relative to (defaults to the fixture's directory)")
	cmd.Flags().StringVar(&backend, "backend", "", "Document store backend override (postgres, nats)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the fixture without writing anything")
	cmd.Flags().BoolVar(&prune, "prune", false, "Delete user documents missing from the fixture")

	return cmd
}

func run(ctx context.Context, fixturePath, imagesDir, backend string, dryRun, prune bool) error {
	fixture, err := seed.ReadFixture(fixturePath)
	if err != nil {
		return err
	}

	fmt.Printf("Файл данных: %d пользователей, %d постов, %d изображений\n",
		len(fixture.Users), len(fixture.Posts), len(fixture.Images))
	if dryRun {
		return nil
	}

	cfg := config.LoadConfig()
	if backend != "" {
		cfg.DocstoreBackend = backend
	}
	if imagesDir == "" {
		imagesDir = filepath.Dir(fixturePath)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	a := app.New(ctx, cfg, logger)
	defer a.Close()

	seeder := &seed.Seeder{
		Docs:    a.Repo.Documents,
		Images:  a.Storage,
		BaseDir: imagesDir,
		MaxSize: cfg.MaxUploadSize,
		Prune:   prune,
		Logger:  logger,
	}

	report, err := seeder.Apply(ctx, fixture)
	if err != nil {
		return err
	}

	fmt.Printf("Записано: %d пользователей, %d постов, %d изображений (%s)\n",
		report.Users, report.Posts, len(report.Images), humanize.Bytes(uint64(report.Bytes())))
	if prune {
		fmt.Printf("Удалено пользователей: %d\n", report.Pruned)
	}
	return nil
}
