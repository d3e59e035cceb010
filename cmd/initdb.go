package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gulfgate/valuer/internal/store"
)

var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create store tables and optionally seed data",
	Long: `Create the property and market snapshot tables for the configured
store driver. With --seed, bulk-load records from a YAML file.

Examples:
  initdb
  initdb --seed seed.yaml`,
	RunE: runInitDB,
}

func init() {
	initdbCmd.Flags().String("seed", "", "YAML seed file of properties and snapshots")
	rootCmd.AddCommand(initdbCmd)
}

func runInitDB(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate(); err != nil {
		return err
	}

	seedPath, _ := cmd.Flags().GetString("seed")
	var seed *store.SeedFile
	if seedPath != "" {
		var err error
		seed, err = store.LoadSeedFile(seedPath)
		if err != nil {
			return err
		}
	}

	switch cfg.Store.Driver {
	case "postgres":
		return initPostgres(ctx, seed)
	case "sqlite":
		return initSQLite(ctx, seed)
	default:
		return eris.Errorf("initdb: driver %q has no persistent schema", cfg.Store.Driver)
	}
}

func initPostgres(ctx context.Context, seed *store.SeedFile) error {
	pg, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := pg.Migrate(ctx); err != nil {
		return err
	}
	zap.L().Info("postgres schema ready")

	if seed == nil {
		return nil
	}

	n, err := pg.SeedProperties(ctx, seed.Properties)
	if err != nil {
		return eris.Wrap(err, "initdb: seed properties")
	}
	if err := pg.SeedSnapshots(ctx, seed.Snapshots); err != nil {
		return eris.Wrap(err, "initdb: seed snapshots")
	}

	fmt.Printf("Seeded %d properties and %d snapshots\n", n, len(seed.Snapshots))
	return nil
}

func initSQLite(ctx context.Context, seed *store.SeedFile) error {
	sq, err := store.NewSQLite(cfg.Store.SQLitePath)
	if err != nil {
		return err
	}
	defer sq.Close() //nolint:errcheck

	if err := sq.Migrate(ctx); err != nil {
		return err
	}
	zap.L().Info("sqlite schema ready", zap.String("path", cfg.Store.SQLitePath))

	if seed == nil {
		return nil
	}

	for _, p := range seed.Properties {
		if err := sq.PutProperty(ctx, p); err != nil {
			return eris.Wrap(err, "initdb: seed properties")
		}
	}
	for _, s := range seed.Snapshots {
		if err := sq.PutSnapshot(ctx, s); err != nil {
			return eris.Wrap(err, "initdb: seed snapshots")
		}
	}

	fmt.Printf("Seeded %d properties and %d snapshots\n", len(seed.Properties), len(seed.Snapshots))
	return nil
}
