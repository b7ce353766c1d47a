package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/matter-service/internal/config"
	"github.com/spec-kit/matter-service/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventMatterFieldUpdated, n.handleFieldUpdated)
	n.dispatcher.Subscribe(events.EventMatterStatusTransitioned, n.handleStatusTransitioned)
}

func (n *NotificationService) handleFieldUpdated(ctx context.Context, event events.Event) error {
	n.logger.Info("MatterFieldUpdated",
		zap.String("matter_id", event.MatterID),
		zap.Int64("user_id", event.Actor.UserID),
		zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleStatusTransitioned(ctx context.Context, event events.Event) error {
	n.logger.Info("MatterStatusTransitioned",
		zap.String("matter_id", event.MatterID),
		zap.Int64("user_id", event.Actor.UserID),
		zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	if payload, ok := event.Payload.(events.MatterStatusTransitionedPayload); ok && payload.ToTerminal {
		n.sendEmailNotificationStub(ctx, event)
	}
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("matter_id", event.MatterID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("matter_id", event.MatterID),
		zap.String("event_type", string(event.Type)))
}
