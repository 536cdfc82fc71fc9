package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"winery_backend/pkg/utils"
)

// RateLimit limits requests per client IP. rate uses the limiter format, e.g.
// "10-M" for ten per minute. A nil client keeps counters in process memory.
func RateLimit(rate string, client *redis.Client) (gin.HandlerFunc, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", rate, err)
	}

	var store limiter.Store
	if client != nil {
		store, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: "winery:ratelimit"})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis rate limit store: %w", err)
		}
	} else {
		store = memory.NewStore()
	}

	return mgin.NewMiddleware(limiter.New(store, parsed),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusTooManyRequests, utils.ErrCodeTooManyRequests,
				"Too many requests, try again later", ""))
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			utils.LogError(err, "RateLimit: limiter store failure")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError,
				"Failed to apply rate limit", ""))
		}),
	), nil
}
