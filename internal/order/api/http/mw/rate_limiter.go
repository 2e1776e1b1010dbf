package mw

import (
	"net/http"
	"time"

	"github.com/ulule/limiter/v3"
	mhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// CheckoutRateLimit caps order creation per client IP. Everything else on
// the API stays unlimited; the kitchen board polls and transitions freely.
func CheckoutRateLimit(perMinute int64) func(http.Handler) http.Handler {
	rate := limiter.Rate{
		Period: time.Minute,
		Limit:  perMinute,
	}
	middleware := mhttp.NewMiddleware(limiter.New(memory.NewStore(), rate))
	return middleware.Handler
}
