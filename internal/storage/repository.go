package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pagos/internal/core"
	"pagos/internal/records"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores payments and agents in SQLite. It has no
// subscription support of its own; see adapters.SQLiteAdapter.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("SQLite schema ready", "path", dbPath, "version", version)

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreatePayment inserts p under a fresh id and returns it.
func (r *SQLiteRepository) CreatePayment(ctx context.Context, p core.Payment) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (id, agent, amount, reference, timestamp_ns, business_date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, p.Agent, p.Amount.String(), p.Reference, p.Timestamp.UnixNano(), p.BusinessDate())
	if err != nil {
		return "", fmt.Errorf("create payment: %w", err)
	}

	slog.InfoContext(ctx, "Payment saved to SQLite",
		"id", id,
		"agent", p.Agent,
		"reference", p.Reference,
		"business_date", p.BusinessDate())

	return id, nil
}

func (r *SQLiteRepository) UpdatePayment(ctx context.Context, p core.Payment) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments
		 SET agent = ?, amount = ?, reference = ?, timestamp_ns = ?, business_date = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		p.Agent, p.Amount.String(), p.Reference, p.Timestamp.UnixNano(), p.BusinessDate(), p.ID)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return expectOneRow(res, p.ID)
}

func (r *SQLiteRepository) DeletePayment(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	return expectOneRow(res, id)
}

// GetPayment returns the payment with id, or records.ErrNotFound.
func (r *SQLiteRepository) GetPayment(ctx context.Context, id string) (core.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, agent, amount, reference, timestamp_ns FROM payments WHERE id = ?`, id)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payment{}, fmt.Errorf("get payment %s: %w", id, records.ErrNotFound)
	}
	if err != nil {
		return core.Payment{}, fmt.Errorf("get payment %s: %w", id, err)
	}
	return p, nil
}

// ListPayments returns every payment, newest first.
func (r *SQLiteRepository) ListPayments(ctx context.Context) ([]core.Payment, error) {
	return r.queryPayments(ctx,
		`SELECT id, agent, amount, reference, timestamp_ns FROM payments
		 ORDER BY timestamp_ns DESC, id ASC`)
}

// ListPaymentsByDate returns the payments filed under one business date,
// newest first.
func (r *SQLiteRepository) ListPaymentsByDate(ctx context.Context, businessDate string) ([]core.Payment, error) {
	return r.queryPayments(ctx,
		`SELECT id, agent, amount, reference, timestamp_ns FROM payments
		 WHERE business_date = ?
		 ORDER BY timestamp_ns DESC, id ASC`, businessDate)
}

// AddAgent registers name; known names are ignored.
func (r *SQLiteRepository) AddAgent(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO agents (name) VALUES (?)`, name); err != nil {
		return fmt.Errorf("add agent: %w", err)
	}
	return nil
}

// ListAgents returns every agent name in ascending order.
func (r *SQLiteRepository) ListAgents(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM agents ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agents: %w", err)
	}
	return agents, nil
}

func (r *SQLiteRepository) queryPayments(ctx context.Context, query string, args ...any) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	payments := []core.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPayment(s scanner) (core.Payment, error) {
	var (
		p      core.Payment
		amount string
		tsNano int64
	)
	if err := s.Scan(&p.ID, &p.Agent, &amount, &p.Reference, &tsNano); err != nil {
		return core.Payment{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Payment{}, fmt.Errorf("amount %q: %w", amount, err)
	}
	p.Amount = d
	p.Timestamp = time.Unix(0, tsNano).UTC()
	return p, nil
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("payment %s: %w", id, records.ErrNotFound)
	}
	return nil
}
