package http

import (
	"math"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"web3-gateway/internal/config"
	domainRepo "web3-gateway/internal/domain/repository"
	"web3-gateway/internal/pkg/apperrors"
)

// RateLimiter admits at most max requests per caller identity per fixed window on
// protected routes. It runs before the AuthGate.
type RateLimiter struct {
	counters domainRepo.CounterRepository
	max      int64
	window   time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewRateLimiter creates a limiter backed by counters.
func NewRateLimiter(counters domainRepo.CounterRepository, cfg config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		counters: counters,
		max:      int64(cfg.Max),
		window:   cfg.GetWindow(),
		logger:   logger.Named("RateLimiter"),
		now:      time.Now,
	}
}

// RateLimitKey derives the caller identity: the API key when one is sent, else the source address.
// The key is used as presented, so an invalid key still gets its own budget.
func RateLimitKey(apiKey, remoteIP string) string {
	if apiKey != "" {
		return "key:" + apiKey
	}
	return "ip:" + remoteIP
}

// Middleware counts protected requests and rejects those over budget with 429.
// Counter failures let the request through.
func (l *RateLimiter) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if !IsProtectedPath(ctx.Path()) {
			next(ctx)
			return
		}

		key := RateLimitKey(ExtractAPIKey(&ctx.Request.Header), ctx.RemoteIP().String())
		count, resetAt, err := l.counters.Hit(ctx, key, l.window)
		if err != nil {
			l.logger.Warn("Rate limit counter unavailable, admitting request", zap.Error(err))
			next(ctx)
			return
		}

		resetIn := secondsUntil(l.now(), resetAt)
		remaining := l.max - count
		if remaining < 0 {
			remaining = 0
		}
		ctx.Response.Header.Set(headerRateLimit, strconv.FormatInt(l.max, 10))
		ctx.Response.Header.Set(headerRateRemaining, strconv.FormatInt(remaining, 10))
		ctx.Response.Header.Set(headerRateReset, strconv.FormatInt(resetIn, 10))

		if count > l.max {
			l.logger.Debug("Rate limit exceeded", zap.Int64("count", count), zap.Time("resetAt", resetAt))
			ctx.Response.Header.Set(headerRetryAfter, strconv.FormatInt(resetIn, 10))
			writeAppError(ctx, apperrors.ErrRateLimited, msgTooManyRequests, l.logger)
			return
		}
		next(ctx)
	}
}

// secondsUntil rounds the time left up to whole seconds, never below zero.
func secondsUntil(now, t time.Time) int64 {
	d := t.Sub(now)
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}
