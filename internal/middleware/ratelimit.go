package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// PublicRateLimit throttles unauthenticated endpoints per client IP. rate uses the
// limiter format, e.g. "60-M" for 60 requests a minute.
func PublicRateLimit(rate string) (gin.HandlerFunc, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate limit %q: %w", rate, err)
	}

	store := memory.NewStore()
	return mgin.NewMiddleware(
		limiter.New(store, r),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests, please slow down."})
		}),
	), nil
}

// TrustProxies sets which peers may supply X-Forwarded-For. With no proxies configured
// gin falls back to the peer address, so c.ClientIP (the rate limit key and the recorded
// approval IP) cannot be chosen by the caller.
func TrustProxies(engine *gin.Engine, proxies []string) error {
	var trusted []string
	for _, p := range proxies {
		if p = strings.TrimSpace(p); p != "" {
			trusted = append(trusted, p)
		}
	}
	if err := engine.SetTrustedProxies(trusted); err != nil {
		return fmt.Errorf("set trusted proxies: %w", err)
	}
	return nil
}
