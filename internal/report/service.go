// Package report implements the aggregation core: it folds transaction
// events into per-(user, period) running totals and answers report queries.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"saldo/internal/core"
)

// ErrNotFound signals a point lookup for a (user, period) pair that has
// never seen a transaction. Callers must be able to tell this apart from a
// report whose balance happens to be zero.
var ErrNotFound = errors.New("report not found")

// Repository is the persistence port for aggregates.
//
// Update must run get-or-create, apply and persist as one atomic unit per
// call: two concurrent updates for the same (userID, period) must serialize
// so that neither delta is lost, and a failed update must leave no partial
// state behind.
type Repository interface {
	Update(ctx context.Context, userID, period string, apply func(*core.Report) error) error
	GetReport(ctx context.Context, userID, period string) (core.Report, error)
	ListByUser(ctx context.Context, userID string) ([]core.Report, error)
	ListByPeriodRange(ctx context.Context, userID, startPeriod, endPeriod string) ([]core.Report, error)
}

// Service routes incoming transaction events into the aggregate store and
// serves the read side. It holds no state of its own; all serialization
// lives behind the Repository.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ApplyEvent folds one transaction event into the aggregate for the event's
// (user, month) key. Events missing any of user, type, amount or date are
// discarded without error and without touching the store. Both the created
// and updated channels land here; an update is applied as a fresh additive
// delta, the prior contribution is not reversed.
func (s *Service) ApplyEvent(ctx context.Context, ev core.TransactionEvent) error {
	if ev.Incomplete() {
		slog.DebugContext(ctx, "Discarding incomplete transaction event",
			"transaction_id", ev.TransactionID,
			"user_id", ev.UserID)
		return nil
	}

	period := ev.Date.Period()
	amount := *ev.Amount

	err := s.repo.Update(ctx, ev.UserID, period, func(r *core.Report) error {
		r.Apply(ev.Type, amount)
		return nil
	})
	if err != nil {
		return fmt.Errorf("update report %s/%s: %w", ev.UserID, period, err)
	}

	slog.InfoContext(ctx, "Applied transaction event",
		"transaction_id", ev.TransactionID,
		"user_id", ev.UserID,
		"period", period,
		"type", string(ev.Type),
		"amount", amount.String())

	return nil
}

// GetReport returns the aggregate for one (user, period) key, or ErrNotFound
// when no transaction was ever recorded for it.
func (s *Service) GetReport(ctx context.Context, userID, period string) (core.Report, error) {
	if userID == "" {
		return core.Report{}, core.ErrEmptyUserID
	}
	if !core.ValidPeriod(period) {
		return core.Report{}, core.ErrInvalidPeriod
	}
	return s.repo.GetReport(ctx, userID, period)
}

// GetReportsByUserID returns every period aggregate recorded for the user,
// ascending by period.
func (s *Service) GetReportsByUserID(ctx context.Context, userID string) ([]core.Report, error) {
	if userID == "" {
		return nil, core.ErrEmptyUserID
	}
	return s.repo.ListByUser(ctx, userID)
}

// GetReportsByPeriodRange folds all aggregates with period inside the
// inclusive [startPeriod, endPeriod] window into a single summary. An empty
// window yields zero totals and an empty sequence, never an error. The read
// takes no locks and may trail the writer path.
func (s *Service) GetReportsByPeriodRange(ctx context.Context, userID, startPeriod, endPeriod string) (core.RangeSummary, error) {
	if userID == "" {
		return core.RangeSummary{}, core.ErrEmptyUserID
	}
	if !core.ValidPeriod(startPeriod) || !core.ValidPeriod(endPeriod) {
		return core.RangeSummary{}, core.ErrInvalidPeriod
	}

	reports, err := s.repo.ListByPeriodRange(ctx, userID, startPeriod, endPeriod)
	if err != nil {
		return core.RangeSummary{}, fmt.Errorf("list reports %s [%s, %s]: %w", userID, startPeriod, endPeriod, err)
	}

	return core.Summarize(userID, startPeriod, endPeriod, reports), nil
}
