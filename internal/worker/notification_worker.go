package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/opportunity-service/internal/config"
	"github.com/spec-kit/opportunity-service/internal/events"
	"github.com/spec-kit/opportunity-service/internal/service"
)

// opportunityEvents lists what the notification handlers react to.
var opportunityEvents = []events.EventType{
	events.EventOpportunityCreated,
	events.EventOpportunityAssigned,
	events.EventOpportunityUpdated,
	events.EventOpportunityConcluded,
}

// StartNotificationWorker subscribes the notification handlers to the dispatcher the
// opportunity service publishes on.
func StartNotificationWorker(dispatcher events.Dispatcher, cfg config.NotificationConfig, logger *zap.Logger) *service.NotificationService {
	if dispatcher == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	notifications := service.NewNotificationService(dispatcher, logger, cfg)
	notifications.RegisterHandlers()

	types := make([]string, 0, len(opportunityEvents))
	for _, eventType := range opportunityEvents {
		types = append(types, string(eventType))
	}
	logger.Info("notification worker started",
		zap.Strings("events", types),
		zap.Bool("email", cfg.EmailFrom != ""),
		zap.Bool("webhook", cfg.WebhookURL != ""))
	return notifications
}
