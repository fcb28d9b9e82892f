package booking

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Store is the persistence-of-record contract. The ledger in Engine stays
// authoritative for conflict detection; stores never veto a commit.
type Store interface {
	SaveBooking(ctx context.Context, b Booking) error
	UpdateStatus(ctx context.Context, bookingID string, status Status) error
}

// MemoryStore is the default: bookings live only in the engine.
type MemoryStore struct{}

func (MemoryStore) SaveBooking(context.Context, Booking) error { return nil }

func (MemoryStore) UpdateStatus(context.Context, string, Status) error { return nil }

type PostgresConfig struct {
	DSN     string        `split_words:"true"`
	Timeout time.Duration `split_words:"true" default:"5s"`
}

type bookingRecord struct {
	bun.BaseModel `bun:"table:test_drive_bookings"`

	ID            string    `bun:"id,pk"`
	CustomerName  string    `bun:"customer_name,notnull"`
	CustomerPhone string    `bun:"customer_phone,notnull"`
	CustomerEmail string    `bun:"customer_email"`
	VehicleID     string    `bun:"vehicle_id,notnull"`
	VehicleName   string    `bun:"vehicle_name,notnull"`
	Date          string    `bun:"date,notnull"`
	Time          string    `bun:"time,notnull"`
	Duration      int       `bun:"duration_minutes,notnull"`
	Status        string    `bun:"status,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

// PostgresStore writes bookings through to Postgres for audit and restarts.
// Cross-process consistency is explicitly not provided.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithTimeout(cfg.Timeout),
	))
	return &PostgresStore{db: bun.NewDB(sqldb, pgdialect.New())}, nil
}

// Init creates the bookings table when missing.
func (s *PostgresStore) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*bookingRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create bookings table: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveBooking(ctx context.Context, b Booking) error {
	rec := bookingRecord{
		ID:            b.ID,
		CustomerName:  b.CustomerName,
		CustomerPhone: b.CustomerPhone,
		CustomerEmail: b.CustomerEmail,
		VehicleID:     b.VehicleID,
		VehicleName:   b.VehicleName,
		Date:          b.Date,
		Time:          b.Time,
		Duration:      b.Duration,
		Status:        string(b.Status),
		CreatedAt:     b.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(&rec).Exec(ctx); err != nil {
		return fmt.Errorf("insert booking %s: %w", b.ID, err)
	}
	return nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, bookingID string, status Status) error {
	_, err := s.db.NewUpdate().
		Model((*bookingRecord)(nil)).
		Set("status = ?", string(status)).
		Where("id = ?", bookingID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update booking %s status: %w", bookingID, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
