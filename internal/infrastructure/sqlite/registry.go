package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"txfeed/internal/domain"

	_ "modernc.org/sqlite"
)

// Registry is the contract metadata registry on an embedded SQLite file.
type Registry struct {
	db *sql.DB
}

func NewRegistry(dbPath string) (*Registry, error) {
	if dbPath == "" {
		return nil, errors.New("db path is required")
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)
	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Registry{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS fungible_contracts (
			chain_id INTEGER NOT NULL,
			address TEXT NOT NULL,
			external_id TEXT NOT NULL DEFAULT '',
			symbol TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			image TEXT NOT NULL DEFAULT '',
			decimals INTEGER NOT NULL DEFAULT 18,
			PRIMARY KEY (chain_id, address)
		)`,
		`CREATE TABLE IF NOT EXISTS nft_contracts (
			chain_id INTEGER NOT NULL,
			address TEXT NOT NULL,
			external_id TEXT NOT NULL DEFAULT '',
			symbol TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			image TEXT NOT NULL DEFAULT '',
			contract_type INTEGER NOT NULL DEFAULT 721,
			PRIMARY KEY (chain_id, address)
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) Close() error {
	return r.db.Close()
}

func (r *Registry) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.db.PingContext(ctx)
}

func (r *Registry) FungibleContracts(ctx context.Context, keys []domain.ContractKey) ([]domain.ContractMetadata, error) {
	return r.lookup(ctx, "fungible_contracts", "decimals", keys, func(m *domain.ContractMetadata) any { return &m.Decimals })
}

func (r *Registry) NonFungibleContracts(ctx context.Context, keys []domain.ContractKey) ([]domain.ContractMetadata, error) {
	return r.lookup(ctx, "nft_contracts", "contract_type", keys, func(m *domain.ContractMetadata) any { return &m.ContractType })
}

func (r *Registry) lookup(ctx context.Context, table, extraColumn string, keys []domain.ContractKey, extra func(*domain.ContractMetadata) any) ([]domain.ContractMetadata, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		clauses = append(clauses, "(chain_id = ? AND address = ?)")
		args = append(args, key.ChainID, strings.ToLower(key.Address))
	}
	query := fmt.Sprintf(
		"SELECT chain_id, address, external_id, symbol, name, image, %s FROM %s WHERE %s ORDER BY chain_id, address",
		extraColumn, table, strings.Join(clauses, " OR "),
	)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ContractMetadata
	for rows.Next() {
		var m domain.ContractMetadata
		if err := rows.Scan(&m.ChainID, &m.Address, &m.ID, &m.Symbol, &m.Name, &m.Image, extra(&m)); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Registry) UpsertFungible(ctx context.Context, contracts []domain.ContractMetadata) error {
	return r.upsert(ctx, `INSERT INTO fungible_contracts (chain_id, address, external_id, symbol, name, image, decimals)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chain_id, address) DO UPDATE SET
			external_id = excluded.external_id,
			symbol = excluded.symbol,
			name = excluded.name,
			image = excluded.image,
			decimals = excluded.decimals`,
		contracts, func(m domain.ContractMetadata) any { return m.Decimals })
}

func (r *Registry) UpsertNonFungible(ctx context.Context, contracts []domain.ContractMetadata) error {
	return r.upsert(ctx, `INSERT INTO nft_contracts (chain_id, address, external_id, symbol, name, image, contract_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chain_id, address) DO UPDATE SET
			external_id = excluded.external_id,
			symbol = excluded.symbol,
			name = excluded.name,
			image = excluded.image,
			contract_type = excluded.contract_type`,
		contracts, func(m domain.ContractMetadata) any { return m.ContractType })
}

func (r *Registry) upsert(ctx context.Context, statement string, contracts []domain.ContractMetadata, extra func(domain.ContractMetadata) any) error {
	if len(contracts) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, statement)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, m := range contracts {
		if _, err := stmt.ExecContext(ctx, m.ChainID, strings.ToLower(m.Address), m.ID, m.Symbol, m.Name, m.Image, extra(m)); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
