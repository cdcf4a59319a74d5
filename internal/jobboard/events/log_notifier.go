package events

import (
	"context"

	"github.com/gartstein/jobboard/internal/jobboard/models"
	"go.uber.org/zap"
)

// LogNotifier is a notification sink that only logs. It is used when
// neither Kafka nor SMTP is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("log_notifier")}
}

func (l *LogNotifier) Notify(_ context.Context, n *models.StatusNotification) error {
	l.logger.Info("Application status notification",
		zap.String("application_id", n.ApplicationID.String()),
		zap.String("status", string(n.Status)),
		zap.String("job_title", n.JobTitle),
		zap.String("recipient", n.EmployeeEmail),
	)
	return nil
}
