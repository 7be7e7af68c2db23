package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver for goose
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// PostgresStore backs both the claim history and the token registry with a
// single pgx pool. It is the durable alternative to the in-memory stores.
type PostgresStore struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

// NewPostgres connects, pings and migrates the database.
func NewPostgres(ctx context.Context, log *slog.Logger, connStr string) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if err := migrate(connStr); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("connected to postgres")
	return &PostgresStore{log: log, pool: pool}, nil
}

// migrate runs embedded goose migrations through database/sql, which goose
// requires, while regular queries go through the pgx pool.
func migrate(connStr string) error {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// History returns the postgres-backed claim history.
func (s *PostgresStore) History() HistoryStore { return (*pgHistory)(s) }

// Tokens returns the postgres-backed token registry.
func (s *PostgresStore) Tokens() TokenStore { return (*pgTokens)(s) }

type pgHistory PostgresStore

func (h *pgHistory) Append(ctx context.Context, rec ClaimRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	_, err := h.pool.Exec(ctx, `
		INSERT INTO claims (id, address, token_address, amount, tx_hash, claimed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.ID, NormalizeAddress(rec.Address), NormalizeAddress(rec.TokenAddress), rec.Amount, rec.TxHash, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert claim: %w", err)
	}
	return nil
}

func (h *pgHistory) ListByAddress(ctx context.Context, address string) ([]ClaimRecord, error) {
	rows, err := h.pool.Query(ctx, `
		SELECT id, address, token_address, amount, tx_hash, claimed_at
		FROM claims WHERE address = $1 ORDER BY claimed_at DESC
	`, NormalizeAddress(address))
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()
	return scanClaims(rows)
}

func (h *pgHistory) ListAll(ctx context.Context) ([]ClaimRecord, error) {
	rows, err := h.pool.Query(ctx, `
		SELECT id, address, token_address, amount, tx_hash, claimed_at
		FROM claims ORDER BY claimed_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()
	return scanClaims(rows)
}

func (h *pgHistory) Stats(ctx context.Context, address string) (Stats, error) {
	stats := Stats{ClaimsByToken: make(map[string]int)}

	var filter string
	args := []any{}
	if address != "" {
		filter = "WHERE address = $1"
		args = append(args, NormalizeAddress(address))
	}

	err := h.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT COUNT(*), COUNT(DISTINCT address) FROM claims %s
	`, filter), args...).Scan(&stats.TotalClaims, &stats.UniqueAddresses)
	if err != nil {
		return stats, fmt.Errorf("failed to aggregate claims: %w", err)
	}

	rows, err := h.pool.Query(ctx, fmt.Sprintf(`
		SELECT token_address, COUNT(*) FROM claims %s GROUP BY token_address
	`, filter), args...)
	if err != nil {
		return stats, fmt.Errorf("failed to aggregate claims by token: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var token string
		var count int
		if err := rows.Scan(&token, &count); err != nil {
			return stats, err
		}
		stats.ClaimsByToken[token] = count
	}
	return stats, rows.Err()
}

type claimRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanClaims(rows claimRows) ([]ClaimRecord, error) {
	var out []ClaimRecord
	for rows.Next() {
		var rec ClaimRecord
		if err := rows.Scan(&rec.ID, &rec.Address, &rec.TokenAddress, &rec.Amount, &rec.TxHash, &rec.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type pgTokens PostgresStore

func (t *pgTokens) Get(ctx context.Context, address string) (TokenInfo, bool, error) {
	var info TokenInfo
	err := t.pool.QueryRow(ctx, `
		SELECT address, symbol, name, amount, decimals FROM tokens WHERE address = $1
	`, NormalizeAddress(address)).Scan(&info.Address, &info.Symbol, &info.Name, &info.Amount, &info.Decimals)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TokenInfo{}, false, nil
		}
		return TokenInfo{}, false, fmt.Errorf("failed to get token: %w", err)
	}
	return info, true, nil
}

func (t *pgTokens) List(ctx context.Context) ([]TokenInfo, error) {
	rows, err := t.pool.Query(ctx, `
		SELECT address, symbol, name, amount, decimals FROM tokens ORDER BY symbol, address
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var out []TokenInfo
	for rows.Next() {
		var info TokenInfo
		if err := rows.Scan(&info.Address, &info.Symbol, &info.Name, &info.Amount, &info.Decimals); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (t *pgTokens) Put(ctx context.Context, info TokenInfo) error {
	_, err := t.pool.Exec(ctx, `
		INSERT INTO tokens (address, symbol, name, amount, decimals)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (address) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			name = EXCLUDED.name,
			amount = EXCLUDED.amount,
			decimals = EXCLUDED.decimals
	`, NormalizeAddress(info.Address), info.Symbol, info.Name, info.Amount, info.Decimals)
	if err != nil {
		return fmt.Errorf("failed to upsert token: %w", err)
	}
	return nil
}

func (t *pgTokens) Delete(ctx context.Context, address string) (bool, error) {
	tag, err := t.pool.Exec(ctx, `DELETE FROM tokens WHERE address = $1`, NormalizeAddress(address))
	if err != nil {
		return false, fmt.Errorf("failed to delete token: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
