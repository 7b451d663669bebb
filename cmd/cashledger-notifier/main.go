// Command cashledger-notifier drains the notification queue and delivers
// each message to the local notifiers.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"cashledger/internal/amqp"
	"cashledger/internal/cli"
	applog "cashledger/internal/log"
	"cashledger/internal/notify"
)

const (
	retryDelay      = 5 * time.Second
	shutdownTimeout = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)
	logger.Info("Starting cashledger-notifier")

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the notifier")
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(logger.Slog())
	defer cancel()

	amqpLog := logger.WithComponent(applog.ComponentAMQP)
	client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		amqpLog.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	amqpLog.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)

	sink := notify.NewLogNotifier(logger.WithComponent(applog.ComponentNotifier).Slog())
	handler := func(ctx context.Context, msg *amqp.NotificationMessage) error {
		return amqp.Deliver(ctx, sink, msg)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			err := client.ConsumeNotifications(gctx, handler)
			if gctx.Err() != nil {
				return nil
			}
			amqpLog.Warn("Notification consumer stopped, retrying", "error", err, "delay", retryDelay)
			select {
			case <-gctx.Done():
				return nil
			case <-time.After(retryDelay):
			}
		}
	})

	waitErr := g.Wait()

	logger.Info("Shutting down notifier...")
	done := make(chan error, 1)
	go func() { done <- client.Close() }()
	select {
	case err := <-done:
		if err != nil {
			amqpLog.Error("Failed to close AMQP client", "error", err)
		}
	case <-time.After(shutdownTimeout):
		logger.Warn("Shutdown timeout reached")
	}

	if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		logger.Error("Notifier error", "error", waitErr)
		os.Exit(1)
	}
	logger.Info("Notifier shutdown complete")
}
