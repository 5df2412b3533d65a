package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/upwise-backend/internal/app"
	"github.com/yungbote/upwise-backend/internal/data/seed"
)

var (
	seedFile        string
	importFile      string
	reconcileUser   string
	tokenUser       string
	tokenTTL        time.Duration
	shutdownTimeout = 15 * time.Second

	rootCmd = &cobra.Command{
		Use:           "upwise",
		Short:         "Upwise course marketplace backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE:  runMigrate,
	}

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Upsert the course catalog from a YAML file",
		RunE:  runSeed,
	}

	importCmd = &cobra.Command{
		Use:   "import-legacy",
		Short: "Merge a legacy user export (JSON array) into the ledger",
		RunE:  runImportLegacy,
	}

	reconcileCmd = &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute progress records from purchases and quiz history",
		RunE:  runReconcile,
	}

	tokenCmd = &cobra.Command{
		Use:    "token",
		Short:  "Mint a bearer token for local testing",
		Hidden: true,
		RunE:   runToken,
	}
)

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "config/catalog.yaml", "catalog YAML file")
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "legacy export JSON file (- for stdin)")
	_ = importCmd.MarkFlagRequired("file")
	reconcileCmd.Flags().StringVar(&reconcileUser, "user", "", "only reconcile this user id")
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id (random when empty)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, importCmd, reconcileCmd, tokenCmd)
}

// withApp builds the app, runs fn and tears it down.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	log, err := app.NewLogger()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, log)
	if err != nil {
		log.Error("Failed to initialize app", "error", err)
		log.Sync()
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if err := a.Start(); err != nil {
			return err
		}
		errCh := make(chan error, 1)
		go func() { errCh <- a.Run() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		a.Log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		a.Log.Info("Schema is up to date")
		return nil
	})
}

func runSeed(cmd *cobra.Command, _ []string) error {
	courses, err := seed.LoadCatalogFile(seedFile)
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		n, err := a.Services.Catalog.Seed(ctx, courses)
		if err != nil {
			return err
		}
		a.Log.Info("Catalog seeded", "courses", n, "file", seedFile)
		return nil
	})
}

func runImportLegacy(cmd *cobra.Command, _ []string) error {
	in := os.Stdin
	if importFile != "-" {
		f, err := os.Open(importFile)
		if err != nil {
			return fmt.Errorf("open export: %w", err)
		}
		defer f.Close()
		in = f
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		report, err := a.Services.Reconcile.ImportLegacy(ctx, in)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	})
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if reconcileUser == "" {
			n, err := a.Services.Reconcile.RefreshAll(ctx)
			if err != nil {
				return err
			}
			a.Log.Info("Reconciled all users", "users", n)
			return nil
		}
		userID, err := uuid.Parse(reconcileUser)
		if err != nil {
			return fmt.Errorf("invalid --user: %w", err)
		}
		records, err := a.Services.Reconcile.RefreshProgress(ctx, userID)
		if err != nil {
			return err
		}
		a.Log.Info("Reconciled user", "records", len(records))
		return nil
	})
}

func runToken(cmd *cobra.Command, _ []string) error {
	userID := uuid.New()
	if tokenUser != "" {
		id, err := uuid.Parse(tokenUser)
		if err != nil {
			return fmt.Errorf("invalid --user: %w", err)
		}
		userID = id
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		tok, err := a.Services.Auth.IssueToken(userID, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user=%s\n%s\n", userID, tok)
		return nil
	})
}
