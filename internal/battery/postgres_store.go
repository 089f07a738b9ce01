package battery

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Compile-time check that PostgresReturnStore implements ReturnStore.
var _ ReturnStore = (*PostgresReturnStore)(nil)

// PostgresReturnStore implements ReturnStore backed by PostgreSQL.
type PostgresReturnStore struct {
	db *sql.DB
}

// NewPostgresReturnStore creates a new PostgreSQL-backed return store.
func NewPostgresReturnStore(db *sql.DB) *PostgresReturnStore {
	return &PostgresReturnStore{db: db}
}

// Migrate creates the battery_returns table if it doesn't exist.
func (p *PostgresReturnStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS battery_returns (
			battery_id     BIGINT       NOT NULL,
			transaction_id BIGINT       NOT NULL,
			customer       VARCHAR(200) NOT NULL,
			phone          VARCHAR(30)  NOT NULL,
			status         VARCHAR(20)  NOT NULL DEFAULT 'PENDING',
			returned_at    TIMESTAMPTZ  NOT NULL,
			updated_at     TIMESTAMPTZ  DEFAULT NOW(),
			PRIMARY KEY (battery_id, transaction_id)
		);
		CREATE INDEX IF NOT EXISTS idx_battery_returns_status ON battery_returns(status);
	`)
	return err
}

func (p *PostgresReturnStore) Create(ctx context.Context, ret *Return) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO battery_returns (
			battery_id, transaction_id, customer, phone, status, returned_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		ret.BatteryID, ret.TransactionID, ret.Customer, ret.Phone,
		string(ret.Status), ret.ReturnedAt, ret.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrReturnExists
		}
		return fmt.Errorf("insert return: %w", err)
	}
	return nil
}

func (p *PostgresReturnStore) Get(ctx context.Context, batteryID, transactionID int64) (*Return, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT battery_id, transaction_id, customer, phone, status, returned_at, updated_at
		FROM battery_returns WHERE battery_id = $1 AND transaction_id = $2
	`, batteryID, transactionID)

	ret, err := scanReturn(row)
	if err == sql.ErrNoRows {
		return nil, ErrReturnNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get return: %w", err)
	}
	return ret, nil
}

func (p *PostgresReturnStore) List(ctx context.Context) ([]*Return, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT battery_id, transaction_id, customer, phone, status, returned_at, updated_at
		FROM battery_returns ORDER BY returned_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list returns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Return
	for rows.Next() {
		ret, err := scanReturn(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ret)
	}
	return result, rows.Err()
}

func (p *PostgresReturnStore) UpdateStatus(ctx context.Context, batteryID, transactionID int64, status ReturnStatus) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE battery_returns SET status = $3, updated_at = $4
		WHERE battery_id = $1 AND transaction_id = $2
	`, batteryID, transactionID, string(status), time.Now())
	if err != nil {
		return fmt.Errorf("update return status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrReturnNotFound
	}
	return nil
}

// scannable abstracts *sql.Row and *sql.Rows for shared scanning logic.
type scannable interface {
	Scan(dest ...interface{}) error
}

func scanReturn(row scannable) (*Return, error) {
	var ret Return
	var status string
	var updatedAt sql.NullTime

	err := row.Scan(
		&ret.BatteryID, &ret.TransactionID, &ret.Customer, &ret.Phone,
		&status, &ret.ReturnedAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	ret.Status = ReturnStatus(status)
	if updatedAt.Valid {
		ret.UpdatedAt = updatedAt.Time
	}
	return &ret, nil
}
