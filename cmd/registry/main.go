package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"txfeed/internal/config"
	"txfeed/internal/domain"
	"txfeed/internal/infrastructure/logging"
	"txfeed/internal/infrastructure/mysql"
	"txfeed/internal/infrastructure/sqlite"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type registryWriter interface {
	UpsertFungible(ctx context.Context, contracts []domain.ContractMetadata) error
	UpsertNonFungible(ctx context.Context, contracts []domain.ContractMetadata) error
	Close() error
}

// importFile is the on-disk registry seed format.
type importFile struct {
	Fungible    []domain.ContractMetadata `json:"fungible"`
	NonFungible []domain.ContractMetadata `json:"nonFungible"`
}

func main() {
	if err := newRootCommand(config.FromEnviron()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(env config.EnvSource) *cobra.Command {
	var dsn, sqlitePath string
	if value, ok := env.Lookup("METADATA_DB_DSN"); ok {
		dsn = value
	}
	if value, ok := env.Lookup("METADATA_SQLITE_PATH"); ok {
		sqlitePath = value
	}

	root := &cobra.Command{
		Use:          "registry",
		Short:        "Manage the contract metadata registry",
		SilenceUsage: true,
	}
	importCmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Upsert fungible and non-fungible contract metadata from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, _, err := logging.Init(logging.Config{Level: "info"})
			if err != nil {
				return err
			}
			writer, err := openRegistry(dsn, sqlitePath)
			if err != nil {
				return err
			}
			defer writer.Close()

			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			fungible, nonFungible, err := importContracts(cmd.Context(), writer, file)
			if err != nil {
				return err
			}
			logger.Info("registry import finished", zap.Int("fungible", fungible), zap.Int("non_fungible", nonFungible))
			return nil
		},
	}
	importCmd.Flags().StringVar(&dsn, "dsn", dsn, "MySQL registry DSN")
	importCmd.Flags().StringVar(&sqlitePath, "sqlite", sqlitePath, "SQLite registry path (used when no DSN is set)")
	root.AddCommand(importCmd)
	return root
}

func openRegistry(dsn, sqlitePath string) (registryWriter, error) {
	switch {
	case strings.TrimSpace(dsn) != "":
		return mysql.NewRegistry(dsn)
	case strings.TrimSpace(sqlitePath) != "":
		return sqlite.NewRegistry(sqlitePath)
	default:
		return nil, errors.New("either --dsn or --sqlite is required")
	}
}

func importContracts(ctx context.Context, writer registryWriter, r io.Reader) (int, int, error) {
	var payload importFile
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return 0, 0, fmt.Errorf("decode registry file: %w", err)
	}
	if err := validateContracts("fungible", payload.Fungible); err != nil {
		return 0, 0, err
	}
	if err := validateContracts("nonFungible", payload.NonFungible); err != nil {
		return 0, 0, err
	}
	for i := range payload.Fungible {
		if payload.Fungible[i].Decimals == 0 {
			payload.Fungible[i].Decimals = domain.DefaultDecimals
		}
	}
	if err := writer.UpsertFungible(ctx, payload.Fungible); err != nil {
		return 0, 0, err
	}
	if err := writer.UpsertNonFungible(ctx, payload.NonFungible); err != nil {
		return len(payload.Fungible), 0, err
	}
	return len(payload.Fungible), len(payload.NonFungible), nil
}

func validateContracts(section string, contracts []domain.ContractMetadata) error {
	for i, contract := range contracts {
		if contract.ChainID == 0 {
			return fmt.Errorf("%s[%d]: chainId is required", section, i)
		}
		if !common.IsHexAddress(contract.Address) {
			return fmt.Errorf("%s[%d]: invalid address %q", section, i, contract.Address)
		}
	}
	return nil
}
