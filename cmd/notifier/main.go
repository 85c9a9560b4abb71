package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"submissionportal/internal/config"
	"submissionportal/internal/mailer"
	"submissionportal/internal/notify"
	"submissionportal/pkg/ctxdata"
	"submissionportal/pkg/kafka"
	"submissionportal/pkg/logging"
)

type Sender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewNotifier()
	if err != nil {
		panic(fmt.Sprintf("cannot create config: %v", err))
	}

	logger, err := logging.NewDefault(cfg.IsProduction())
	if err != nil {
		panic(fmt.Sprintf("cannot create logger: %v", err))
	}
	defer func() { _ = logger.Sync() }()

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
		GroupID: cfg.KafkaGroupID,
	})
	if err != nil {
		logger.Fatal(ctx, "cannot create consumer", zap.Error(err))
	}
	defer func() { _ = consumer.Close() }()

	sender := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		Timeout:  cfg.SMTPTimeout,
	})

	logger.Info(ctx, "Starting notification consumer",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic),
		zap.String("group_id", cfg.KafkaGroupID),
	)

	onErr := func(err error) {
		logger.Error(ctx, "Notification failed", zap.Error(err))
	}
	if err := consumer.Run(ctx, newHandler(sender, cfg.OperatorEmail, logger), onErr); err != nil {
		logger.Error(ctx, "Consumer stopped", zap.Error(err))
		os.Exit(1)
	}
	logger.Info(ctx, "Consumer shutting down")
}

// newHandler mails each event once. Undecodable messages are logged and
// skipped so they never block the partition.
func newHandler(sender Sender, operator string, logger *logging.Logger) kafka.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var event notify.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Warn(ctx, "Failed to unmarshal message",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			return nil
		}
		if event.TraceId != "" {
			ctx = ctxdata.WithTraceID(ctx, event.TraceId)
		}

		mail, err := mailer.Compose(&event, operator)
		if err != nil {
			logger.Warn(ctx, "Skipping event", zap.String("event_id", event.Id.String()), zap.Error(err))
			return nil
		}

		if err := sender.Send(ctx, *mail); err != nil {
			return fmt.Errorf("send %s mail for event %s: %w", event.Type, event.Id, err)
		}

		logger.Info(ctx, "Notification sent",
			zap.String("event_id", event.Id.String()),
			zap.String("event_type", string(event.Type)),
			zap.Int("recipients", len(mail.To)),
		)
		return nil
	}
}
