package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/opportunity-service/internal/config"
	"github.com/spec-kit/opportunity-service/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
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
	n.dispatcher.Subscribe(events.EventOpportunityCreated, n.handleOpportunityCreated)
	n.dispatcher.Subscribe(events.EventOpportunityAssigned, n.handleOpportunityAssigned)
	n.dispatcher.Subscribe(events.EventOpportunityUpdated, n.handleOpportunityUpdated)
	n.dispatcher.Subscribe(events.EventOpportunityConcluded, n.handleOpportunityConcluded)
}

func (n *NotificationService) handleOpportunityCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("OpportunityCreated", zap.String("opportunity_id", event.OpportunityID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleOpportunityAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("OpportunityAssigned", zap.String("opportunity_id", event.OpportunityID), zap.Any("payload", event.Payload))
	// The assistant who received the lead is told by email.
	if payload, ok := event.Payload.(events.OpportunityAssignedPayload); ok && payload.AssigneeID != nil {
		n.sendEmailNotificationStub(ctx, event)
	}
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleOpportunityUpdated(ctx context.Context, event events.Event) error {
	n.logger.Info("OpportunityUpdated", zap.String("opportunity_id", event.OpportunityID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleOpportunityConcluded(ctx context.Context, event events.Event) error {
	n.logger.Info("OpportunityConcluded", zap.String("opportunity_id", event.OpportunityID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("opportunity_id", event.OpportunityID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("opportunity_id", event.OpportunityID),
		zap.String("event_type", string(event.Type)))
}
