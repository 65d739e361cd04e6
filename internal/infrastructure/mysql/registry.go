package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"txfeed/internal/domain"

	_ "github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	fungibleTable    = "fungible_contracts"
	nonFungibleTable = "nft_contracts"
)

// Registry is the contract metadata registry on MySQL.
type Registry struct {
	db *sql.DB
}

func NewRegistry(dsn string) (*Registry, error) {
	if dsn == "" {
		return nil, errors.New("db dsn is required")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Registry{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS fungible_contracts (
			chain_id BIGINT UNSIGNED NOT NULL,
			address VARCHAR(42) NOT NULL,
			external_id VARCHAR(128) NOT NULL DEFAULT '',
			symbol VARCHAR(64) NOT NULL DEFAULT '',
			name VARCHAR(255) NOT NULL DEFAULT '',
			image TEXT NOT NULL,
			decimals INT NOT NULL DEFAULT 18,
			PRIMARY KEY (chain_id, address)
		)`,
		`CREATE TABLE IF NOT EXISTS nft_contracts (
			chain_id BIGINT UNSIGNED NOT NULL,
			address VARCHAR(42) NOT NULL,
			external_id VARCHAR(128) NOT NULL DEFAULT '',
			symbol VARCHAR(64) NOT NULL DEFAULT '',
			name VARCHAR(255) NOT NULL DEFAULT '',
			image TEXT NOT NULL,
			contract_type INT NOT NULL DEFAULT 721,
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
	if len(keys) == 0 {
		return nil, nil
	}
	ctx, span := startDBSpan(ctx, "mysql.FungibleContracts", attribute.Int("contract.count", len(keys)))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query, args := lookupQuery(fungibleTable, "decimals", keys)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer rows.Close()

	var out []domain.ContractMetadata
	for rows.Next() {
		var m domain.ContractMetadata
		if err := rows.Scan(&m.ChainID, &m.Address, &m.ID, &m.Symbol, &m.Name, &m.Image, &m.Decimals); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return out, nil
}

func (r *Registry) NonFungibleContracts(ctx context.Context, keys []domain.ContractKey) ([]domain.ContractMetadata, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	ctx, span := startDBSpan(ctx, "mysql.NonFungibleContracts", attribute.Int("contract.count", len(keys)))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query, args := lookupQuery(nonFungibleTable, "contract_type", keys)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer rows.Close()

	var out []domain.ContractMetadata
	for rows.Next() {
		var m domain.ContractMetadata
		if err := rows.Scan(&m.ChainID, &m.Address, &m.ID, &m.Symbol, &m.Name, &m.Image, &m.ContractType); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return out, nil
}

func (r *Registry) UpsertFungible(ctx context.Context, contracts []domain.ContractMetadata) error {
	if len(contracts) == 0 {
		return nil
	}
	ctx, span := startDBSpan(ctx, "mysql.UpsertFungible", attribute.Int("contract.count", len(contracts)))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := r.upsert(ctx, `INSERT INTO fungible_contracts (chain_id, address, external_id, symbol, name, image, decimals)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			external_id = VALUES(external_id),
			symbol = VALUES(symbol),
			name = VALUES(name),
			image = VALUES(image),
			decimals = VALUES(decimals)`,
		contracts, func(m domain.ContractMetadata) []any {
			return []any{m.ChainID, strings.ToLower(m.Address), m.ID, m.Symbol, m.Name, m.Image, m.Decimals}
		})
	if err != nil {
		recordSpanError(span, err)
	}
	return err
}

func (r *Registry) UpsertNonFungible(ctx context.Context, contracts []domain.ContractMetadata) error {
	if len(contracts) == 0 {
		return nil
	}
	ctx, span := startDBSpan(ctx, "mysql.UpsertNonFungible", attribute.Int("contract.count", len(contracts)))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := r.upsert(ctx, `INSERT INTO nft_contracts (chain_id, address, external_id, symbol, name, image, contract_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			external_id = VALUES(external_id),
			symbol = VALUES(symbol),
			name = VALUES(name),
			image = VALUES(image),
			contract_type = VALUES(contract_type)`,
		contracts, func(m domain.ContractMetadata) []any {
			return []any{m.ChainID, strings.ToLower(m.Address), m.ID, m.Symbol, m.Name, m.Image, m.ContractType}
		})
	if err != nil {
		recordSpanError(span, err)
	}
	return err
}

func (r *Registry) upsert(ctx context.Context, statement string, contracts []domain.ContractMetadata, args func(domain.ContractMetadata) []any) error {
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
		if _, err := stmt.ExecContext(ctx, args(m)...); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// lookupQuery selects every row matching one of the (chain_id, address) keys.
func lookupQuery(table, extraColumn string, keys []domain.ContractKey) (string, []any) {
	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		clauses = append(clauses, "(chain_id = ? AND address = ?)")
		args = append(args, key.ChainID, strings.ToLower(key.Address))
	}
	query := fmt.Sprintf(
		"SELECT chain_id, address, external_id, symbol, name, image, %s FROM %s WHERE %s",
		extraColumn, table, strings.Join(clauses, " OR "),
	)
	return query, args
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func startDBSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("db.system", "mysql"))
	return otel.Tracer("txfeed/mysql").Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}
