package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/deppfellow/portfolio-backend/internal/lib/email"
	"github.com/hibiken/asynq"
)

// Mailer sends contact notifications. *email.Client implements it.
type Mailer interface {
	SendContactEmail(ctx context.Context, msg email.ContactEmail) error
}

// InitHandlers sets the mailer used by the task handlers.
func (j *JobService) InitHandlers(mailer Mailer) {
	j.mailer = mailer
}

func (j *JobService) handleContactNotificationTask(ctx context.Context, t *asynq.Task) error {
	var p ContactNotificationPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal contact notification payload: %w: %w", err, asynq.SkipRetry)
	}

	if j.mailer == nil {
		return fmt.Errorf("no mailer configured: %w", asynq.SkipRetry)
	}

	j.logger.Info().
		Str("type", "contact_notification").
		Int64("message_id", p.MessageID).
		Msg("Processing contact notification task")

	if err := j.mailer.SendContactEmail(ctx, p.Email); err != nil {
		j.logger.Error().
			Str("type", "contact_notification").
			Int64("message_id", p.MessageID).
			Err(err).
			Msg("Failed to send contact notification")
		return err
	}

	j.logger.Info().
		Str("type", "contact_notification").
		Int64("message_id", p.MessageID).
		Msg("Successfully sent contact notification")

	return nil
}
