// Package worker glues the AMQP consume loop to the report service.
package worker

import (
	"context"
	"log/slog"

	"saldo/internal/amqp"
	"saldo/internal/metrics"
	"saldo/internal/report"
)

// ReportWorker turns decoded transaction messages into aggregate updates.
// Both the created and updated channels go through the same path; an update
// arrives as a fresh additive delta.
type ReportWorker struct {
	service *report.Service
}

func NewReportWorker(service *report.Service) *ReportWorker {
	return &ReportWorker{service: service}
}

// HandleTransactionMessage processes a single message from either queue.
// A returned error makes the consume loop requeue the delivery, so this
// must stay safe under redelivery of already-applied events upstream of
// the storage transaction.
func (w *ReportWorker) HandleTransactionMessage(ctx context.Context, channel string, msg *amqp.TransactionMessage) error {
	ev := msg.Event()

	if ev.Incomplete() {
		// Deliberate no-op: incomplete payloads are dropped, not failed,
		// so the broker never redelivers them.
		slog.WarnContext(ctx, "Dropping incomplete transaction message",
			"channel", channel,
			"transaction_id", msg.TransactionID,
			"user_id", msg.UserID)
		metrics.EventConsumed(channel, metrics.OutcomeDiscarded)
		return nil
	}

	if err := w.service.ApplyEvent(ctx, ev); err != nil {
		metrics.EventConsumed(channel, metrics.OutcomeError)
		return err
	}

	metrics.EventConsumed(channel, metrics.OutcomeApplied)
	return nil
}
