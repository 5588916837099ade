package notification

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher writes notifications to the log. Used when no Kafka brokers
// are configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, msg Message) error {
	p.log.Info("owner notification",
		zap.String("event", string(msg.Event)),
		zap.Int64("appointment_id", msg.AppointmentID),
		zap.Int64("user_id", msg.UserID),
		zap.String("message", msg.Message),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
