package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/errs"
	"github.com/deppfellow/portfolio-backend/internal/lib/email"
	"github.com/deppfellow/portfolio-backend/internal/lib/job"
	"github.com/deppfellow/portfolio-backend/internal/repository"
	"github.com/deppfellow/portfolio-backend/internal/server"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ContactStore is the persistence the contact service needs.
// *repository.ContactRepository implements it.
type ContactStore interface {
	Create(ctx context.Context, in repository.NewContactMessage) (*repository.ContactMessage, error)
	List(ctx context.Context, limit, offset int) ([]repository.ContactMessage, error)
	Count(ctx context.Context) (int64, error)
	FindByID(ctx context.Context, id int64) (*repository.ContactMessage, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Stats(ctx context.Context, now time.Time) (*repository.ContactStats, error)
}

// Mailer is the part of *email.Client the service uses.
type Mailer interface {
	IsConfigured() bool
	SendContactEmail(ctx context.Context, msg email.ContactEmail) error
	TestConfiguration(ctx context.Context) email.TestResult
}

// TaskEnqueuer queues background work. *job.JobService implements it.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task) (string, error)
}

type CreateContactInput struct {
	Name      string
	Email     string
	Subject   string
	Message   string
	IPAddress string
	UserAgent string
}

type ContactResult struct {
	ID              int64     `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	EmailSent       bool      `json:"emailSent"`
	EmailConfigured bool      `json:"emailConfigured"`
}

type Pagination struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	Pages   int64 `json:"pages"`
	HasNext bool  `json:"has_next"`
	HasPrev bool  `json:"has_prev"`
}

type ContactPage struct {
	Messages   []repository.ContactMessage `json:"messages"`
	Pagination Pagination                  `json:"pagination"`
}

type ContactService struct {
	store  ContactStore
	mailer Mailer
	jobs   TaskEnqueuer
	logger *zerolog.Logger
	now    func() time.Time
}

// NewContactService builds the service. Notifications are queued on the job
// worker when e-mail is configured as asynchronous and a worker exists;
// otherwise they are sent inline.
func NewContactService(s *server.Server, store ContactStore, mailer Mailer) *ContactService {
	svc := &ContactService{
		store:  store,
		mailer: mailer,
		logger: s.Logger,
		now:    time.Now,
	}
	if s.Config.Email.Async && s.Job != nil {
		svc.jobs = s.Job
	}
	return svc
}

// ClampPagination applies the page and limit bounds of the listing.
func ClampPagination(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

// Create stores a submission and sends the notification. A failed
// notification does not fail the submission.
func (s *ContactService) Create(ctx context.Context, in CreateContactInput) (*ContactResult, error) {
	stored, err := s.store.Create(ctx, repository.NewContactMessage{
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Subject:   strings.TrimSpace(in.Subject),
		Message:   strings.TrimSpace(in.Message),
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	result := &ContactResult{
		ID:              stored.ID,
		Timestamp:       stored.CreatedAt.UTC(),
		EmailConfigured: s.mailer != nil && s.mailer.IsConfigured(),
	}
	if !result.EmailConfigured {
		s.logger.Warn().
			Int64("message_id", stored.ID).
			Msg("email not configured, contact notification skipped")
		return result, nil
	}

	result.EmailSent = s.notify(ctx, stored)
	return result, nil
}

func (s *ContactService) notify(ctx context.Context, stored *repository.ContactMessage) bool {
	msg := email.ContactEmail{
		Name:    stored.Name,
		Email:   stored.Email,
		Subject: stored.Subject,
		Message: stored.Message,
		SentAt:  s.now().UTC(),
	}
	if stored.IPAddress != nil {
		msg.IPAddress = *stored.IPAddress
	}

	if s.jobs != nil {
		task, err := job.NewContactNotificationTask(stored.ID, msg)
		if err == nil {
			_, err = s.jobs.Enqueue(ctx, task)
		}
		if err != nil {
			s.logger.Error().
				Err(err).
				Int64("message_id", stored.ID).
				Msg("failed to enqueue contact notification")
			return false
		}
		return true
	}

	if err := s.mailer.SendContactEmail(ctx, msg); err != nil {
		// Already logged by the e-mail client.
		return false
	}
	return true
}

func (s *ContactService) List(ctx context.Context, page, limit int) (*ContactPage, error) {
	page, limit = ClampPagination(page, limit)
	offset := (page - 1) * limit

	messages, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []repository.ContactMessage{}
	}

	pages := (total + int64(limit) - 1) / int64(limit)
	return &ContactPage{
		Messages: messages,
		Pagination: Pagination{
			Page:    page,
			Limit:   limit,
			Total:   total,
			Pages:   pages,
			HasNext: int64(page) < pages,
			HasPrev: page > 1,
		},
	}, nil
}

func (s *ContactService) Get(ctx context.Context, id int64) (*repository.ContactMessage, error) {
	msg, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NewNotFoundError("Contact message not found", true, nil)
		}
		return nil, err
	}
	return msg, nil
}

func (s *ContactService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return errs.NewNotFoundError("Contact message not found", true, nil)
	}

	s.logger.Info().Int64("message_id", id).Msg("contact message deleted")
	return nil
}

func (s *ContactService) Stats(ctx context.Context) (*repository.ContactStats, error) {
	return s.store.Stats(ctx, s.now())
}

// TestEmail sends a sample notification through the configured provider.
func (s *ContactService) TestEmail(ctx context.Context) email.TestResult {
	return s.mailer.TestConfiguration(ctx)
}
