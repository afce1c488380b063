// Package storage provides the durable aggregate store behind the report
// service, backed by SQLite, plus an in-memory variant for tests and
// development.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"saldo/internal/core"
	"saldo/internal/report"
)

// SQLiteRepository persists one row per (user_id, period). The schema
// enforces UNIQUE(user_id, period); amounts are stored as decimal strings so
// no precision is lost between the event payload and the row.
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

	// Single connection: writers serialize here, which gives every Update
	// call the read-modify-write isolation the report service requires.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Update runs get-or-create, the caller's mutation and the upsert inside a
// single transaction. Either the whole delta lands or none of it does.
func (r *SQLiteRepository) Update(ctx context.Context, userID, period string, apply func(*core.Report) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	rep, err := scanReport(tx.QueryRowContext(ctx,
		`SELECT user_id, period, total_income, total_expense, balance
		   FROM reports WHERE user_id = ? AND period = ?`, userID, period))
	if errors.Is(err, sql.ErrNoRows) {
		rep = core.NewReport(userID, period)
	} else if err != nil {
		return fmt.Errorf("load report: %w", err)
	}

	if err := apply(&rep); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reports (user_id, period, total_income, total_expense, balance)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, period) DO UPDATE SET
		   total_income = excluded.total_income,
		   total_expense = excluded.total_expense,
		   balance = excluded.balance`,
		rep.UserID, rep.Period,
		rep.TotalIncome.String(), rep.TotalExpense.String(), rep.Balance.String())
	if err != nil {
		return fmt.Errorf("upsert report: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report update: %w", err)
	}

	slog.DebugContext(ctx, "Report persisted",
		"user_id", rep.UserID,
		"period", rep.Period,
		"balance", rep.Balance.String())

	return nil
}

func (r *SQLiteRepository) GetReport(ctx context.Context, userID, period string) (core.Report, error) {
	rep, err := scanReport(r.db.QueryRowContext(ctx,
		`SELECT user_id, period, total_income, total_expense, balance
		   FROM reports WHERE user_id = ? AND period = ?`, userID, period))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Report{}, report.ErrNotFound
	}
	if err != nil {
		return core.Report{}, fmt.Errorf("get report: %w", err)
	}
	return rep, nil
}

func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string) ([]core.Report, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, period, total_income, total_expense, balance
		   FROM reports WHERE user_id = ? ORDER BY period ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list reports by user: %w", err)
	}
	defer rows.Close()
	return collectReports(rows)
}

// ListByPeriodRange relies on lexicographic comparison of the fixed-width
// "YYYY-MM" period column, which matches chronological order.
func (r *SQLiteRepository) ListByPeriodRange(ctx context.Context, userID, startPeriod, endPeriod string) ([]core.Report, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, period, total_income, total_expense, balance
		   FROM reports
		  WHERE user_id = ? AND period >= ? AND period <= ?
		  ORDER BY period ASC`, userID, startPeriod, endPeriod)
	if err != nil {
		return nil, fmt.Errorf("list reports by range: %w", err)
	}
	defer rows.Close()
	return collectReports(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (core.Report, error) {
	var rep core.Report
	var income, expense, balance string
	if err := row.Scan(&rep.UserID, &rep.Period, &income, &expense, &balance); err != nil {
		return core.Report{}, err
	}

	var err error
	if rep.TotalIncome, err = decimal.NewFromString(income); err != nil {
		return core.Report{}, fmt.Errorf("parse total_income %q: %w", income, err)
	}
	if rep.TotalExpense, err = decimal.NewFromString(expense); err != nil {
		return core.Report{}, fmt.Errorf("parse total_expense %q: %w", expense, err)
	}
	if rep.Balance, err = decimal.NewFromString(balance); err != nil {
		return core.Report{}, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	return rep, nil
}

func collectReports(rows *sql.Rows) ([]core.Report, error) {
	out := make([]core.Report, 0)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return out, nil
}
