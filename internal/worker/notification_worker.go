package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/matter-service/internal/service"
)

// StartNotificationWorker subscribes the notification handlers to matter events.
// It reports whether handlers were registered.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) bool {
	if notificationService == nil {
		return false
	}
	notificationService.RegisterHandlers()
	if logger != nil {
		logger.Info("notification worker started")
	}
	return true
}
