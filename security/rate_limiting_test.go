package security

import (
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_SuspiciousUserAgents(t *testing.T) {
	db, _ := redismock.NewClientMock()
	rl := NewRateLimiter(db, 60)

	assert.True(t, rl.isSuspiciousUserAgent("Googlebot/2.1"))
	assert.True(t, rl.isSuspiciousUserAgent("my-scraper v1"))
	assert.True(t, rl.isSuspiciousUserAgent("WebCrawler"))
	assert.False(t, rl.isSuspiciousUserAgent("Mozilla/5.0 (X11; Linux x86_64)"))
	assert.False(t, rl.isSuspiciousUserAgent(""))
}

func TestRateLimiter_DefaultLimit(t *testing.T) {
	db, _ := redismock.NewClientMock()

	rl := NewRateLimiter(db, 0)
	assert.Equal(t, int64(60), rl.perMinute)

	rl = NewRateLimiter(db, 5)
	assert.Equal(t, int64(5), rl.perMinute)
}

func TestRateLimiter_NilRedisPassesThrough(t *testing.T) {
	rl := NewRateLimiter(nil, 60)
	assert.NotNil(t, rl.PurchaseRateLimit())
}
