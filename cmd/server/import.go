package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spiralshops/relevance/internal/infrastructure/catalog"
	"github.com/spiralshops/relevance/internal/logging"
)

var importCmd = &cobra.Command{
	Use:   "import-catalog",
	Short: "Load a JSON catalog into the configured database",
	Long: `Reads a catalog file in fixture layout ({"items": [...], "interactions": [...]})
and upserts it into the database named by catalog.database. Interactions may also be
supplied in a separate file with the same layout.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().String("file", "", "catalog JSON file | example: --file=items.json")
	importCmd.Flags().String("interactions", "", "optional interactions JSON file | example: --interactions=events.json")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	logger := logging.Component("import")
	ctx := cmd.Context()

	file, _ := cmd.Flags().GetString("file")
	interactionsFile, _ := cmd.Flags().GetString("interactions")

	data, err := readFixture(file)
	if err != nil {
		return err
	}
	if len(data.Items) == 0 {
		return fmt.Errorf("%s contains no items", file)
	}
	events := data.Interactions
	if interactionsFile != "" {
		extra, err := readFixture(interactionsFile)
		if err != nil {
			return err
		}
		events = append(events, extra.Interactions...)
	}

	db, err := catalog.Open(cfg.Catalog.Database.Driver, cfg.Catalog.Database.DSN)
	if err != nil {
		return err
	}
	store := catalog.NewStore(db, logging.Logger())
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	if err := store.UpsertItems(ctx, data.Items); err != nil {
		return err
	}
	if err := store.AddInteractions(ctx, events); err != nil {
		return err
	}

	logger.Info().
		Str("driver", cfg.Catalog.Database.Driver).
		Int("items", len(data.Items)).
		Int("interactions", len(events)).
		Msg("catalog imported")
	return nil
}

func readFixture(path string) (*catalog.FixtureFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	f, err := catalog.ParseFixture(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}
