package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/config"
	"github.com/deppfellow/portfolio-backend/internal/errs"
	"github.com/deppfellow/portfolio-backend/internal/lib/email"
	"github.com/deppfellow/portfolio-backend/internal/lib/job"
	"github.com/deppfellow/portfolio-backend/internal/repository"
	"github.com/deppfellow/portfolio-backend/internal/server"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	created []repository.NewContactMessage
	total   int64
	listed  [2]int
	byID    map[int64]*repository.ContactMessage
	err     error
}

func (f *fakeStore) Create(_ context.Context, in repository.NewContactMessage) (*repository.ContactMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, in)
	ip := in.IPAddress
	return &repository.ContactMessage{
		ID:        int64(len(f.created)),
		Name:      in.Name,
		Email:     in.Email,
		Subject:   in.Subject,
		Message:   in.Message,
		IPAddress: &ip,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}, nil
}

func (f *fakeStore) List(_ context.Context, limit, offset int) ([]repository.ContactMessage, error) {
	f.listed = [2]int{limit, offset}
	return nil, f.err
}

func (f *fakeStore) Count(context.Context) (int64, error) { return f.total, f.err }

func (f *fakeStore) FindByID(_ context.Context, id int64) (*repository.ContactMessage, error) {
	if msg, ok := f.byID[id]; ok {
		return msg, nil
	}
	return nil, fmt.Errorf("table:contact_messages: %w", pgx.ErrNoRows)
}

func (f *fakeStore) Delete(_ context.Context, id int64) (bool, error) {
	_, ok := f.byID[id]
	delete(f.byID, id)
	return ok, nil
}

func (f *fakeStore) Stats(context.Context, time.Time) (*repository.ContactStats, error) {
	return &repository.ContactStats{TotalMessages: f.total}, nil
}

type fakeMailer struct {
	configured bool
	sendErr    error
	sent       []email.ContactEmail
}

func (m *fakeMailer) IsConfigured() bool { return m.configured }

func (m *fakeMailer) SendContactEmail(_ context.Context, msg email.ContactEmail) error {
	m.sent = append(m.sent, msg)
	return m.sendErr
}

func (m *fakeMailer) TestConfiguration(context.Context) email.TestResult {
	return email.TestResult{Provider: "fake", Configured: m.configured, TestSuccessful: m.configured}
}

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) Enqueue(_ context.Context, task *asynq.Task) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.tasks = append(q.tasks, task)
	return "task-1", nil
}

func newTestService(store ContactStore, mailer Mailer) *ContactService {
	log := zerolog.Nop()
	s := &server.Server{Config: config.DefaultConfig(), Logger: &log}
	return NewContactService(s, store, mailer)
}

func TestCreateNormalizesAndSends(t *testing.T) {
	store := &fakeStore{}
	mailer := &fakeMailer{configured: true}
	svc := newTestService(store, mailer)

	res, err := svc.Create(context.Background(), CreateContactInput{
		Name:      "  Ada  ",
		Email:     " Ada@Example.COM ",
		Subject:   "Hi",
		Message:   "Hello there",
		IPAddress: "203.0.113.7",
	})
	require.NoError(t, err)

	require.Len(t, store.created, 1)
	assert.Equal(t, "Ada", store.created[0].Name)
	assert.Equal(t, "ada@example.com", store.created[0].Email)

	assert.Equal(t, int64(1), res.ID)
	assert.True(t, res.EmailConfigured)
	assert.True(t, res.EmailSent)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "203.0.113.7", mailer.sent[0].IPAddress)
}

func TestCreateSurvivesEmailFailure(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeMailer{configured: true, sendErr: errors.New("boom")})

	res, err := svc.Create(context.Background(), CreateContactInput{Name: "a", Email: "a@b.co"})
	require.NoError(t, err)
	assert.True(t, res.EmailConfigured)
	assert.False(t, res.EmailSent)
}

func TestCreateWithoutEmailConfigured(t *testing.T) {
	mailer := &fakeMailer{}
	svc := newTestService(&fakeStore{}, mailer)

	res, err := svc.Create(context.Background(), CreateContactInput{Name: "a", Email: "a@b.co"})
	require.NoError(t, err)
	assert.False(t, res.EmailConfigured)
	assert.False(t, res.EmailSent)
	assert.Empty(t, mailer.sent)
}

func TestCreateQueuesNotificationWhenAsync(t *testing.T) {
	mailer := &fakeMailer{configured: true}
	queue := &fakeQueue{}
	svc := newTestService(&fakeStore{}, mailer)
	svc.jobs = queue

	res, err := svc.Create(context.Background(), CreateContactInput{Name: "a", Email: "a@b.co"})
	require.NoError(t, err)
	assert.True(t, res.EmailSent)
	assert.Empty(t, mailer.sent)
	require.Len(t, queue.tasks, 1)
	assert.Equal(t, job.TaskContactNotification, queue.tasks[0].Type())
}

func TestCreatePropagatesStoreError(t *testing.T) {
	svc := newTestService(&fakeStore{err: errors.New("db down")}, &fakeMailer{})

	_, err := svc.Create(context.Background(), CreateContactInput{})
	assert.EqualError(t, err, "db down")
}

func TestClampPagination(t *testing.T) {
	tests := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{0, 0, 1, DefaultPageLimit},
		{-3, 5, 1, 5},
		{2, 500, 2, MaxPageLimit},
		{4, 100, 4, 100},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d", tt.page, tt.limit), func(t *testing.T) {
			page, limit := ClampPagination(tt.page, tt.limit)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}

func TestListPagination(t *testing.T) {
	store := &fakeStore{total: 45}
	svc := newTestService(store, &fakeMailer{})

	page, err := svc.List(context.Background(), 2, 20)
	require.NoError(t, err)

	assert.Equal(t, [2]int{20, 20}, store.listed)
	assert.NotNil(t, page.Messages)
	assert.Equal(t, Pagination{Page: 2, Limit: 20, Total: 45, Pages: 3, HasNext: true, HasPrev: true}, page.Pagination)
}

func TestGetAndDeleteMissing(t *testing.T) {
	store := &fakeStore{byID: map[int64]*repository.ContactMessage{7: {ID: 7}}}
	svc := newTestService(store, &fakeMailer{})

	msg, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), msg.ID)

	_, err = svc.Get(context.Background(), 8)
	assert.Equal(t, http.StatusNotFound, errs.StatusOf(err))

	require.NoError(t, svc.Delete(context.Background(), 7))
	err = svc.Delete(context.Background(), 7)
	assert.Equal(t, http.StatusNotFound, errs.StatusOf(err))
}
