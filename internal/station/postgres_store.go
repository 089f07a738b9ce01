package station

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed station store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the station tables if they don't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS stations (
			station_id   BIGINT        PRIMARY KEY,
			station_name VARCHAR(200)  NOT NULL,
			address      VARCHAR(500)  NOT NULL,
			status       VARCHAR(20)   NOT NULL DEFAULT 'active',
			total_slots  INT           NOT NULL DEFAULT 0,
			available    INT           NOT NULL DEFAULT 0,
			created_at   TIMESTAMPTZ   DEFAULT NOW(),
			updated_at   TIMESTAMPTZ   DEFAULT NOW(),
			CHECK (available >= 0 AND available <= total_slots)
		);
		CREATE TABLE IF NOT EXISTS battery_transfers (
			transfer_id     VARCHAR(36) PRIMARY KEY,
			from_station_id BIGINT      NOT NULL REFERENCES stations(station_id),
			to_station_id   BIGINT      NOT NULL REFERENCES stations(station_id),
			count           INT         NOT NULL,
			created_at      TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_battery_transfers_created ON battery_transfers(created_at);
	`)
	return err
}

func (p *PostgresStore) CreateStation(ctx context.Context, st *Station, slots Slots) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO stations (station_id, station_name, address, status, total_slots, available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, st.StationID, st.StationName, st.Address, string(st.Status),
		slots.Total, slots.Available, st.CreatedAt, st.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrStationExists
		}
		return fmt.Errorf("insert station: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetStation(ctx context.Context, id int64) (*Station, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT station_id, station_name, address, status, created_at, updated_at
		FROM stations WHERE station_id = $1
	`, id)

	st, err := scanStation(row)
	if err == sql.ErrNoRows {
		return nil, ErrStationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get station: %w", err)
	}
	return st, nil
}

func (p *PostgresStore) ListStations(ctx context.Context) ([]*Station, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT station_id, station_name, address, status, created_at, updated_at
		FROM stations ORDER BY station_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Station
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	return result, rows.Err()
}

func (p *PostgresStore) GetInventory(ctx context.Context) (Inventory, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT station_id, total_slots, available FROM stations
	`)
	if err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	defer func() { _ = rows.Close() }()

	inv := make(Inventory)
	for rows.Next() {
		var id int64
		var slots Slots
		if err := rows.Scan(&id, &slots.Total, &slots.Available); err != nil {
			return nil, err
		}
		inv[id] = slots
	}
	return inv, rows.Err()
}

func (p *PostgresStore) SetInventory(ctx context.Context, inv Inventory) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for id, slots := range inv {
		if _, err := tx.ExecContext(ctx, `
			UPDATE stations SET total_slots = $2, available = $3, updated_at = $4
			WHERE station_id = $1
		`, id, slots.Total, slots.Available, time.Now()); err != nil {
			return fmt.Errorf("update inventory for station %d: %w", id, err)
		}
	}
	return tx.Commit()
}

func (p *PostgresStore) RecordTransfer(ctx context.Context, t *Transfer) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO battery_transfers (transfer_id, from_station_id, to_station_id, count, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, t.TransferID, t.FromStationID, t.ToStationID, t.Count, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

func (p *PostgresStore) ListTransfers(ctx context.Context, limit int) ([]*Transfer, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT transfer_id, from_station_id, to_station_id, count, created_at
		FROM battery_transfers ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Transfer
	for rows.Next() {
		var t Transfer
		if err := rows.Scan(&t.TransferID, &t.FromStationID, &t.ToStationID, &t.Count, &t.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &t)
	}
	return result, rows.Err()
}

// scannable abstracts *sql.Row and *sql.Rows for shared scanning logic.
type scannable interface {
	Scan(dest ...interface{}) error
}

func scanStation(row scannable) (*Station, error) {
	var st Station
	var status string
	var createdAt, updatedAt sql.NullTime

	if err := row.Scan(&st.StationID, &st.StationName, &st.Address, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	st.Status = Status(status)
	if createdAt.Valid {
		st.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		st.UpdatedAt = updatedAt.Time
	}
	return &st, nil
}
