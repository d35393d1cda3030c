package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id                    TEXT PRIMARY KEY,
	identifier            TEXT NOT NULL UNIQUE,
	wallet_address        TEXT NOT NULL,
	encrypted_private_key TEXT NOT NULL,
	encrypted_mnemonic    TEXT NOT NULL,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const selectColumns = `SELECT id, identifier, wallet_address, encrypted_private_key, encrypted_mnemonic, created_at FROM accounts`

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// Compile-time interface check
var _ Store = (*Postgres)(nil)

// NewPostgres connects to dsn.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, custodyerr.Wrap(custodyerr.ErrConfiguration, "database dsn is required")
	}

	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, custodyerr.WithCause(custodyerr.ErrConfiguration, fmt.Errorf("connecting to postgres: %w", err))
	}
	return &Postgres{pool: pool}, nil
}

// EnsureSchema creates the accounts table if it is missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating accounts table: %w", err)
	}
	return nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// FindByIdentifier implements Store.
func (p *Postgres) FindByIdentifier(ctx context.Context, identifier string) (*Account, error) {
	return p.findOne(ctx, selectColumns+` WHERE identifier = $1`, identifier)
}

// FindByID implements Store.
func (p *Postgres) FindByID(ctx context.Context, id string) (*Account, error) {
	return p.findOne(ctx, selectColumns+` WHERE id = $1`, id)
}

func (p *Postgres) findOne(ctx context.Context, query string, arg string) (*Account, error) {
	var a Account
	err := p.pool.QueryRow(ctx, query, arg).Scan(
		&a.ID, &a.Identifier, &a.Address, &a.EncryptedPrivateKey, &a.EncryptedMnemonic, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, custodyerr.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying account: %w", err)
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

// Create implements Store.
func (p *Postgres) Create(ctx context.Context, a *Account) error {
	if a.Identifier == "" {
		return custodyerr.Wrap(custodyerr.ErrInvalidInput, "account identifier is required")
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO accounts (id, identifier, wallet_address, encrypted_private_key, encrypted_mnemonic, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.Identifier, a.Address, a.EncryptedPrivateKey, a.EncryptedMnemonic, a.CreatedAt,
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return custodyerr.ErrAccountExists
	}
	if err != nil {
		return fmt.Errorf("inserting account: %w", err)
	}
	return nil
}
