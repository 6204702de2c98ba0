package job

import (
	"encoding/json"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/lib/email"
	"github.com/hibiken/asynq"
)

const (
	TaskContactNotification = "email:contact_notification"
)

// ContactNotificationPayload carries one submission to the worker.
type ContactNotificationPayload struct {
	MessageID int64              `json:"message_id"`
	Email     email.ContactEmail `json:"email"`
}

func NewContactNotificationTask(messageID int64, msg email.ContactEmail) (*asynq.Task, error) {
	payload, err := json.Marshal(ContactNotificationPayload{
		MessageID: messageID,
		Email:     msg,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskContactNotification,
		payload,
		asynq.MaxRetry(3),
		asynq.Queue("critical"),
		asynq.Timeout(30*time.Second),
	), nil
}
