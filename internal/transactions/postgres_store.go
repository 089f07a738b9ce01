package transactions

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed transaction store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the swap_transactions table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS swap_transactions (
			transaction_id BIGSERIAL     PRIMARY KEY,
			occurred_at    TIMESTAMPTZ   NOT NULL,
			customer_name  VARCHAR(200)  NOT NULL,
			customer_email VARCHAR(200)  NOT NULL DEFAULT '',
			vin            VARCHAR(40)   NOT NULL DEFAULT '',
			amount         NUMERIC(12,2) NOT NULL DEFAULT 0,
			status         VARCHAR(20)   NOT NULL DEFAULT 'PENDING',
			user_id        BIGINT,
			station_id     BIGINT,
			package_id     BIGINT,
			created_at     TIMESTAMPTZ   DEFAULT NOW(),
			updated_at     TIMESTAMPTZ   DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_swap_transactions_occurred ON swap_transactions(occurred_at);
		CREATE INDEX IF NOT EXISTS idx_swap_transactions_status ON swap_transactions(status);
	`)
	return err
}

func (p *PostgresStore) Create(ctx context.Context, tx *Transaction) (*Transaction, error) {
	now := time.Now()
	cp := *tx
	cp.CreatedAt = now
	cp.UpdatedAt = now
	if cp.OccurredAt.IsZero() {
		cp.OccurredAt = now
	}

	err := p.db.QueryRowContext(ctx, `
		INSERT INTO swap_transactions (
			occurred_at, customer_name, customer_email, vin, amount, status,
			user_id, station_id, package_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING transaction_id
	`,
		cp.OccurredAt, cp.CustomerName, cp.CustomerEmail, cp.VIN, cp.Amount, string(cp.Status),
		nullInt64(cp.UserID), nullInt64(cp.StationID), nullInt64(cp.PackageID),
		cp.CreatedAt, cp.UpdatedAt,
	).Scan(&cp.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return &cp, nil
}

func (p *PostgresStore) Get(ctx context.Context, id int64) (*Transaction, error) {
	row := p.db.QueryRowContext(ctx, selectColumns+` WHERE transaction_id = $1`, id)

	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (p *PostgresStore) List(ctx context.Context, limit int) ([]*Transaction, error) {
	rows, err := p.db.QueryContext(ctx, selectColumns+`
		ORDER BY occurred_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanTransactions(rows)
}

func (p *PostgresStore) ListSince(ctx context.Context, since time.Time) ([]*Transaction, error) {
	rows, err := p.db.QueryContext(ctx, selectColumns+`
		WHERE occurred_at >= $1 ORDER BY occurred_at`, since)
	if err != nil {
		return nil, fmt.Errorf("list transactions since: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanTransactions(rows)
}

func (p *PostgresStore) UpdateStatus(ctx context.Context, id int64, status Status) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE swap_transactions SET status = $2, updated_at = $3
		WHERE transaction_id = $1
	`, id, string(status), time.Now())
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

const selectColumns = `
	SELECT transaction_id, occurred_at, customer_name, customer_email, vin,
		amount, status, user_id, station_id, package_id, created_at, updated_at
	FROM swap_transactions`

// scannable abstracts *sql.Row and *sql.Rows for shared scanning logic.
type scannable interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row scannable) (*Transaction, error) {
	var tx Transaction
	var status string
	var userID, stationID, packageID sql.NullInt64
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(
		&tx.TransactionID, &tx.OccurredAt, &tx.CustomerName, &tx.CustomerEmail, &tx.VIN,
		&tx.Amount, &status, &userID, &stationID, &packageID, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Status = Status(status)
	tx.UserID = userID.Int64
	tx.StationID = stationID.Int64
	tx.PackageID = packageID.Int64
	if createdAt.Valid {
		tx.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		tx.UpdatedAt = updatedAt.Time
	}
	return &tx, nil
}

func scanTransactions(rows *sql.Rows) ([]*Transaction, error) {
	var result []*Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}

// nullInt64 returns a sql.NullInt64: valid if v is non-zero, null otherwise.
func nullInt64(v int64) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}
