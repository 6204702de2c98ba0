// Package ratelimit implements sliding-window request accounting.
//
// Every client is tracked under two keys, "{ip}_general" and
// "{ip}_contact". A key maps to the epoch-second timestamps of its recorded
// requests; a request is rejected when the number of timestamps inside the
// trailing window has reached the limit. Timestamps that fall out of the
// window are pruned whenever a key is written.
//
// State lives in a Store. Every check runs inside one Store.Update call so
// the load, check, append and persist steps happen under one exclusive lock.
package ratelimit

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Category separates the independent budgets of a client.
type Category string

const (
	CategoryGeneral Category = "general"
	CategoryContact Category = "contact"
)

// Rule is a limit of Limit requests per trailing Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// WindowSeconds returns the window in whole seconds, at least 1.
func (r Rule) WindowSeconds() int64 {
	secs := int64(r.Window / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Config holds the budgets and the path namespace the contact budget
// applies to.
type Config struct {
	General       Rule
	Contact       Rule
	ContactPrefix string
}

// DefaultConfig returns 100 requests per 15 minutes in general and 5 contact
// submissions per 15 minutes.
func DefaultConfig() Config {
	return Config{
		General:       Rule{Limit: 100, Window: 900 * time.Second},
		Contact:       Rule{Limit: 5, Window: 900 * time.Second},
		ContactPrefix: "/api/contact",
	}
}

// Decision is the outcome of one check.
type Decision struct {
	Allowed  bool
	Category Category
	Key      string
	Count    int
	Limit    int
	// RetryAfter is the window of the violated rule in seconds.
	RetryAfter int
}

// Limiter applies Config against a Store.
type Limiter struct {
	store Store
	cfg   Config
	now   func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a Limiter. Zero rules fall back to the defaults.
func New(store Store, cfg Config, opts ...Option) *Limiter {
	defaults := DefaultConfig()
	if cfg.General.Limit <= 0 || cfg.General.Window <= 0 {
		cfg.General = defaults.General
	}
	if cfg.Contact.Limit <= 0 || cfg.Contact.Window <= 0 {
		cfg.Contact = defaults.Contact
	}
	if cfg.ContactPrefix == "" {
		cfg.ContactPrefix = defaults.ContactPrefix
	}

	l := &Limiter{store: store, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Config returns the effective configuration.
func (l *Limiter) Config() Config { return l.cfg }

// Key builds the record key of a client and category.
func Key(ip string, category Category) string {
	return ip + "_" + string(category)
}

// IsContactPath reports whether path falls under the contact namespace.
func (l *Limiter) IsContactPath(path string) bool {
	prefix := strings.TrimRight(l.cfg.ContactPrefix, "/")
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// Check accounts one request from ip. The general budget is checked first;
// the contact budget is checked only for paths under the contact namespace.
// When neither is exhausted the request is recorded under general, and
// under contact too when it is a POST to the contact namespace.
func (l *Limiter) Check(ctx context.Context, ip, method, path string) (Decision, error) {
	now := l.now().Unix()
	contactPath := l.IsContactPath(path)
	recordContact := contactPath && strings.EqualFold(method, http.MethodPost)

	var decision Decision
	err := l.store.Update(ctx, func(records Records) error {
		generalKey := Key(ip, CategoryGeneral)
		general := records.Get(generalKey)
		if count := countWithin(general, now, l.cfg.General); count >= l.cfg.General.Limit {
			decision = l.deny(CategoryGeneral, generalKey, count, l.cfg.General)
			return nil
		}

		contactKey := Key(ip, CategoryContact)
		var contact []int64
		if contactPath {
			contact = records.Get(contactKey)
			if count := countWithin(contact, now, l.cfg.Contact); count >= l.cfg.Contact.Limit {
				decision = l.deny(CategoryContact, contactKey, count, l.cfg.Contact)
				return nil
			}
		}

		general = append(prune(general, now, l.cfg.General), now)
		records.Set(generalKey, general)
		decision = Decision{
			Allowed:  true,
			Category: CategoryGeneral,
			Key:      generalKey,
			Count:    len(general),
			Limit:    l.cfg.General.Limit,
		}

		if recordContact {
			contact = append(prune(contact, now, l.cfg.Contact), now)
			records.Set(contactKey, contact)
		}
		return nil
	})
	if err != nil {
		return Decision{}, err
	}

	return decision, nil
}

func (l *Limiter) deny(category Category, key string, count int, rule Rule) Decision {
	return Decision{
		Allowed:    false,
		Category:   category,
		Key:        key,
		Count:      count,
		Limit:      rule.Limit,
		RetryAfter: int(rule.WindowSeconds()),
	}
}

// Retention is how long any recorded timestamp can still matter.
func (l *Limiter) Retention() time.Duration {
	if l.cfg.Contact.Window > l.cfg.General.Window {
		return l.cfg.Contact.Window
	}
	return l.cfg.General.Window
}

func countWithin(timestamps []int64, now int64, rule Rule) int {
	window := rule.WindowSeconds()
	count := 0
	for _, ts := range timestamps {
		if now-ts < window {
			count++
		}
	}
	return count
}

func prune(timestamps []int64, now int64, rule Rule) []int64 {
	window := rule.WindowSeconds()
	kept := make([]int64, 0, len(timestamps)+1)
	for _, ts := range timestamps {
		if now-ts < window {
			kept = append(kept, ts)
		}
	}
	return kept
}
