// saldo-publish injects a single transaction event into the broker. It
// exists for local development and smoke testing the consumer path without
// the upstream transaction service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"saldo/internal/amqp"
	"saldo/internal/config"
	"saldo/internal/core"
	applog "saldo/internal/log"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentAMQP)
	applog.SetDefault(logger)

	var (
		channel       = flag.String("channel", "created", "event channel: created or updated")
		transactionID = flag.Int64("id", 1, "transaction id")
		userID        = flag.String("user", "", "user id (required)")
		typ           = flag.String("type", "INCOME", "transaction type: INCOME or EXPENSE")
		amountStr     = flag.String("amount", "", "decimal amount (required)")
		dateStr       = flag.String("date", time.Now().Format("2006-01-02"), "transaction date, YYYY-MM-DD")
		description   = flag.String("description", "", "free-text description")
	)
	flag.Parse()

	if *userID == "" || *amountStr == "" {
		flag.Usage()
		os.Exit(2)
	}

	var queue string
	switch *channel {
	case "created":
		queue = amqp.TransactionCreatedQueue
	case "updated":
		queue = amqp.TransactionUpdatedQueue
	default:
		fmt.Fprintf(os.Stderr, "unknown channel %q, want created or updated\n", *channel)
		os.Exit(2)
	}

	amount, err := decimal.NewFromString(*amountStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid amount %q: %v\n", *amountStr, err)
		os.Exit(2)
	}

	parsed, err := time.Parse("2006-01-02", *dateStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid date %q: %v\n", *dateStr, err)
		os.Exit(2)
	}
	date := core.Date{Time: parsed}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	msg := &amqp.TransactionMessage{
		TransactionID: *transactionID,
		UserID:        *userID,
		Type:          *typ,
		Amount:        &amount,
		Date:          &date,
		Description:   *description,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.PublishTransaction(ctx, queue, msg); err != nil {
		logger.Error("Failed to publish transaction", "error", err)
		os.Exit(1)
	}

	logger.Info("Transaction published",
		"channel", queue,
		"user_id", *userID,
		"type", *typ,
		"amount", amount.String())
}
