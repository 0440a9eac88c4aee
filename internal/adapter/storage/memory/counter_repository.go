package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"web3-gateway/internal/config"
	domainRepo "web3-gateway/internal/domain/repository"
)

// Compile-time check
var _ domainRepo.CounterRepository = (*CounterRepository)(nil)

const counterKeyPrefix = "rl_"

// window is one fixed accounting window for a key.
type window struct {
	count   int64
	resetAt time.Time
}

// CounterRepository implements domainRepo.CounterRepository using the go-cache in-memory
// library. Entries expire with their window so idle identities are evicted by the janitor.
type CounterRepository struct {
	mu     sync.Mutex
	cache  *cache.Cache
	logger *zap.Logger
	now    func() time.Time
}

// NewCounterRepository creates a new in-memory counter repository instance.
func NewCounterRepository(cfg config.RateLimitConfig, logger *zap.Logger) *CounterRepository {
	cleanupInterval := cfg.GetWindow()
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	c := cache.New(cache.NoExpiration, cleanupInterval)
	logger.Info(
		"Initialized go-cache for rate limit counters",
		zap.Duration("cleanupInterval", cleanupInterval),
	)

	return &CounterRepository{
		cache:  c,
		logger: logger.Named("MemoryCounterStorage"),
		now:    time.Now,
	}
}

// Hit counts one request for key. A missing or expired window is replaced by a fresh one
// that resets window from now.
func (r *CounterRepository) Hit(_ context.Context, key string, windowLen time.Duration) (int64, time.Time, error) {
	if windowLen <= 0 {
		return 0, time.Time{}, fmt.Errorf("counter window must be positive, got %s", windowLen)
	}
	cacheKey := counterKeyPrefix + key
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if x, found := r.cache.Get(cacheKey); found {
		if w, ok := x.(*window); ok && now.Before(w.resetAt) {
			w.count++
			return w.count, w.resetAt, nil
		} else if !ok {
			r.logger.Warn(
				"Memory cache data type mismatch for key",
				zap.String("key", cacheKey), zap.String("type", fmt.Sprintf("%T", x)),
			)
		}
	}

	w := &window{count: 1, resetAt: now.Add(windowLen)}
	r.cache.Set(cacheKey, w, windowLen)
	r.logger.Debug("Rate limit window opened", zap.String("key", cacheKey), zap.Time("resetAt", w.resetAt))
	return w.count, w.resetAt, nil
}
