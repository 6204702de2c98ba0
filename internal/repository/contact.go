package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const contactTable = "contact_messages"

// ContactMessage is one stored contact form submission.
type ContactMessage struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Subject   string    `json:"subject" db:"subject"`
	Message   string    `json:"message" db:"message"`
	IPAddress *string   `json:"ip_address" db:"ip_address"`
	UserAgent *string   `json:"user_agent" db:"user_agent"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewContactMessage is the data stored for a new submission.
type NewContactMessage struct {
	Name      string
	Email     string
	Subject   string
	Message   string
	IPAddress string
	UserAgent string
}

type RecentMessage struct {
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Subject   string    `json:"subject" db:"subject"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type DomainCount struct {
	Domain string `json:"domain" db:"domain"`
	Count  int64  `json:"count" db:"count"`
}

type ContactStats struct {
	TotalMessages     int64           `json:"total_messages"`
	MessagesToday     int64           `json:"messages_today"`
	MessagesThisWeek  int64           `json:"messages_this_week"`
	MessagesThisMonth int64           `json:"messages_this_month"`
	TopDomains        []DomainCount   `json:"top_domains"`
	RecentMessages    []RecentMessage `json:"recent_messages"`
}

type ContactRepository struct {
	db DBTX
}

func NewContactRepository(db DBTX) *ContactRepository {
	return &ContactRepository{db: db}
}

// notFound tags ErrNoRows with the table name for sqlerr.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("table:%s: %w", contactTable, err)
	}
	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *ContactRepository) Create(ctx context.Context, in NewContactMessage) (*ContactMessage, error) {
	rows, err := r.db.Query(ctx, `
		INSERT INTO contact_messages (name, email, subject, message, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, name, email, subject, message, ip_address, user_agent, created_at`,
		in.Name, in.Email, in.Subject, in.Message, nullable(in.IPAddress), nullable(in.UserAgent),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert contact message: %w", err)
	}

	msg, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[ContactMessage])
	if err != nil {
		return nil, fmt.Errorf("failed to insert contact message: %w", err)
	}
	return msg, nil
}

// List returns messages newest first.
func (r *ContactRepository) List(ctx context.Context, limit, offset int) ([]ContactMessage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, email, subject, message, ip_address, user_agent, created_at
		FROM contact_messages
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list contact messages: %w", err)
	}

	messages, err := pgx.CollectRows(rows, pgx.RowToStructByName[ContactMessage])
	if err != nil {
		return nil, fmt.Errorf("failed to list contact messages: %w", err)
	}
	return messages, nil
}

func (r *ContactRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM contact_messages`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count contact messages: %w", err)
	}
	return total, nil
}

func (r *ContactRepository) FindByID(ctx context.Context, id int64) (*ContactMessage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, email, subject, message, ip_address, user_agent, created_at
		FROM contact_messages
		WHERE id = $1`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load contact message %d: %w", id, err)
	}

	msg, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[ContactMessage])
	if err != nil {
		return nil, notFound(err)
	}
	return msg, nil
}

// Delete reports whether a row was removed.
func (r *ContactRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM contact_messages WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete contact message %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Stats aggregates message counts relative to now.
func (r *ContactRepository) Stats(ctx context.Context, now time.Time) (*ContactStats, error) {
	stats := &ContactStats{}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE created_at >= $1),
			COUNT(*) FILTER (WHERE created_at >= $2),
			COUNT(*) FILTER (WHERE created_at >= $3)
		FROM contact_messages`,
		startOfDay, now.AddDate(0, 0, -7), now.AddDate(0, -1, 0),
	).Scan(&stats.TotalMessages, &stats.MessagesToday, &stats.MessagesThisWeek, &stats.MessagesThisMonth)
	if err != nil {
		return nil, fmt.Errorf("failed to count contact messages: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT split_part(email, '@', 2) AS domain, COUNT(*) AS count
		FROM contact_messages
		WHERE email <> ''
		GROUP BY domain
		ORDER BY count DESC, domain
		LIMIT 5`)
	if err != nil {
		return nil, fmt.Errorf("failed to load top domains: %w", err)
	}
	stats.TopDomains, err = pgx.CollectRows(rows, pgx.RowToStructByName[DomainCount])
	if err != nil {
		return nil, fmt.Errorf("failed to load top domains: %w", err)
	}

	rows, err = r.db.Query(ctx, `
		SELECT name, email, subject, created_at
		FROM contact_messages
		ORDER BY created_at DESC, id DESC
		LIMIT 5`)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent messages: %w", err)
	}
	stats.RecentMessages, err = pgx.CollectRows(rows, pgx.RowToStructByName[RecentMessage])
	if err != nil {
		return nil, fmt.Errorf("failed to load recent messages: %w", err)
	}

	return stats, nil
}
