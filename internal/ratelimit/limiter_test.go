package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func newTestLimiter(t *testing.T, cfg Config, clock *fakeClock) (*Limiter, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore(0)
	return New(store, cfg, WithClock(clock.Now)), store
}

func TestLimiterBoundary(t *testing.T) {
	clock := newClock()
	limiter, _ := newTestLimiter(t, Config{
		General: Rule{Limit: 3, Window: 60 * time.Second},
	}, clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := limiter.Check(ctx, "8.8.8.8", http.MethodGet, "/")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i+1)
	}

	d, err := limiter.Check(ctx, "8.8.8.8", http.MethodGet, "/")
	require.NoError(t, err)

	assert.False(t, d.Allowed)
	assert.Equal(t, CategoryGeneral, d.Category)
	assert.Equal(t, 60, d.RetryAfter)
}

func TestLimiterWindowExpiryResets(t *testing.T) {
	clock := newClock()
	limiter, store := newTestLimiter(t, Config{
		General: Rule{Limit: 2, Window: 60 * time.Second},
	}, clock)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := limiter.Check(ctx, "1.1.1.1", http.MethodGet, "/")
		require.NoError(t, err)
	}

	d, err := limiter.Check(ctx, "1.1.1.1", http.MethodGet, "/")
	require.NoError(t, err)
	require.False(t, d.Allowed)

	clock.Advance(60 * time.Second)

	d, err = limiter.Check(ctx, "1.1.1.1", http.MethodGet, "/")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Count)

	// Expired timestamps were pruned on write.
	assert.Len(t, store.Snapshot()[Key("1.1.1.1", CategoryGeneral)], 1)
}

func TestLimiterUnseenKeyIsNeverLimited(t *testing.T) {
	clock := newClock()
	limiter, _ := newTestLimiter(t, Config{
		General: Rule{Limit: 1, Window: time.Hour},
	}, clock)
	ctx := context.Background()

	_, err := limiter.Check(ctx, "1.1.1.1", http.MethodGet, "/")
	require.NoError(t, err)

	d, err := limiter.Check(ctx, "2.2.2.2", http.MethodGet, "/")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestLimiterContactBudget(t *testing.T) {
	clock := newClock()
	limiter, store := newTestLimiter(t, Config{
		General:       Rule{Limit: 100, Window: 900 * time.Second},
		Contact:       Rule{Limit: 2, Window: 300 * time.Second},
		ContactPrefix: "/api/contact",
	}, clock)
	ctx := context.Background()
	ip := "9.9.9.9"

	// Reads under the contact namespace are checked but not recorded.
	for i := 0; i < 5; i++ {
		d, err := limiter.Check(ctx, ip, http.MethodGet, "/api/contact/messages")
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
	assert.Empty(t, store.Snapshot()[Key(ip, CategoryContact)])

	for i := 0; i < 2; i++ {
		d, err := limiter.Check(ctx, ip, http.MethodPost, "/api/contact")
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}

	d, err := limiter.Check(ctx, ip, http.MethodPost, "/api/contact")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, CategoryContact, d.Category)
	assert.Equal(t, 300, d.RetryAfter)

	// The exhausted contact budget also blocks reads in that namespace,
	// but not other paths.
	d, err = limiter.Check(ctx, ip, http.MethodGet, "/api/contact/stats")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	d, err = limiter.Check(ctx, ip, http.MethodGet, "/health")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestLimiterGeneralCheckedFirst(t *testing.T) {
	clock := newClock()
	limiter, _ := newTestLimiter(t, Config{
		General: Rule{Limit: 1, Window: 60 * time.Second},
		Contact: Rule{Limit: 1, Window: 30 * time.Second},
	}, clock)
	ctx := context.Background()

	_, err := limiter.Check(ctx, "5.5.5.5", http.MethodPost, "/api/contact")
	require.NoError(t, err)

	d, err := limiter.Check(ctx, "5.5.5.5", http.MethodPost, "/api/contact")
	require.NoError(t, err)

	assert.False(t, d.Allowed)
	assert.Equal(t, CategoryGeneral, d.Category)
	assert.Equal(t, 60, d.RetryAfter)
}

func TestIsContactPath(t *testing.T) {
	limiter := New(NewMemoryStore(0), DefaultConfig())

	assert.True(t, limiter.IsContactPath("/api/contact"))
	assert.True(t, limiter.IsContactPath("/api/contact/messages/1"))
	assert.False(t, limiter.IsContactPath("/api/contacts"))
	assert.False(t, limiter.IsContactPath("/health"))
}

func TestDefaults(t *testing.T) {
	limiter := New(NewMemoryStore(0), Config{})
	cfg := limiter.Config()

	assert.Equal(t, 100, cfg.General.Limit)
	assert.Equal(t, 900*time.Second, cfg.General.Window)
	assert.Equal(t, 5, cfg.Contact.Limit)
	assert.Equal(t, 900*time.Second, cfg.Contact.Window)
	assert.Equal(t, 900*time.Second, limiter.Retention())
}
