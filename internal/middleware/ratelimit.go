package middleware

import (
	"net/http"

	"ecofood/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimit limits requests per client IP using an in-memory store.
// rate uses the limiter format, e.g. "10-M" for ten requests per minute.
func RateLimit(rate string, log logrus.FieldLogger) (gin.HandlerFunc, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, errors.Wrapf(err, "parse rate %q", rate)
	}

	instance := limiter.New(memory.NewStore(), parsed)
	return mgin.NewMiddleware(instance,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.Error(http.StatusTooManyRequests, "Too many requests, try again later"))
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			log.WithError(err).Error("rate limiter failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error"))
		}),
	), nil
}
