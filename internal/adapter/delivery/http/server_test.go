package http

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fasthttp/router"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"go.uber.org/zap"

	"web3-gateway/internal/adapter/storage/memory"
	"web3-gateway/internal/application/port"
	"web3-gateway/internal/config"
	"web3-gateway/internal/domain/entity"
	domainRepo "web3-gateway/internal/domain/repository"
)

const (
	validKey     = "k1"
	otherKey     = "k2"
	testAddress  = "0x000000000000000000000000000000000000dEaD"
	testContract = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	testHash     = "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"
)

// fakeRandomizer returns fixed values.
type fakeRandomizer struct {
	delay time.Duration
	pick  int
}

func (r fakeRandomizer) Delay() time.Duration { return r.delay }
func (r fakeRandomizer) Pick(int) int         { return r.pick }

// recordingSleeper records requested delays without waiting.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
}

func (s *recordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// fakeQueryService returns canned results and counts calls.
type fakeQueryService struct {
	calls atomic.Int64

	health  *entity.HealthResult
	balance *entity.BalanceResult
	token   *entity.TokenBalanceResult
	tx      *entity.TxStatusResult
	err     error
	panics  bool

	mu            sync.Mutex
	lastChain     entity.ChainKey
	lastThreshold uint64
}

func (f *fakeQueryService) record(chain entity.ChainKey, threshold uint64) {
	f.calls.Add(1)
	f.mu.Lock()
	f.lastChain = chain
	f.lastThreshold = threshold
	f.mu.Unlock()
	if f.panics {
		panic("provider exploded")
	}
}

func (f *fakeQueryService) Health(context.Context) (*entity.HealthResult, error) {
	f.record(entity.ChainBase, 0)
	return f.health, f.err
}

func (f *fakeQueryService) AddressBalance(_ context.Context, chain entity.ChainKey, _ entity.Address) (*entity.BalanceResult, error) {
	f.record(chain, 0)
	return f.balance, f.err
}

func (f *fakeQueryService) TokenBalance(_ context.Context, chain entity.ChainKey, _, _ entity.Address) (*entity.TokenBalanceResult, error) {
	f.record(chain, 0)
	return f.token, f.err
}

func (f *fakeQueryService) TransactionStatus(_ context.Context, chain entity.ChainKey, _ entity.TxHash, threshold uint64) (*entity.TxStatusResult, error) {
	f.record(chain, threshold)
	return f.tx, f.err
}

func (f *fakeQueryService) LastCall() (entity.ChainKey, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastChain, f.lastThreshold
}

type serverOptions struct {
	apiKeys  []string
	max      int
	random   Randomizer
	counters domainRepo.CounterRepository
	// backend replaces the fake query service when set.
	backend port.QueryService
}

type testServer struct {
	client  *fasthttp.Client
	service *fakeQueryService
	sleeper *recordingSleeper
	corpus  *LoreCorpus
}

func newTestServer(t *testing.T, svc *fakeQueryService, opts serverOptions) *testServer {
	t.Helper()
	if opts.max == 0 {
		opts.max = 100
	}
	if opts.random == nil {
		opts.random = fakeRandomizer{delay: 275 * time.Millisecond, pick: 0}
	}
	logger := zap.NewNop()
	rateCfg := config.RateLimitConfig{Max: opts.max, WindowMs: 60_000}
	if opts.counters == nil {
		opts.counters = memory.NewCounterRepository(rateCfg, logger)
	}

	corpus, err := LoadLoreCorpus()
	require.NoError(t, err)

	sleeper := &recordingSleeper{}
	gate := NewAuthGate(config.AuthConfig{APIKeys: opts.apiKeys, Realm: "web3-api"}, corpus, logger,
		WithRandomizer(opts.random), WithSleeper(sleeper.Sleep))
	limiter := NewRateLimiter(opts.counters, rateCfg, logger)
	var backend port.QueryService = svc
	if opts.backend != nil {
		backend = opts.backend
	}
	handler := NewQueryHandler(backend, 1, logger)

	r := router.New()
	RegisterRoutes(r, handler, gate, logger)

	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: NewHandler(r, limiter, gate, logger)}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	return &testServer{
		client: &fasthttp.Client{
			Dial: func(string) (net.Conn, error) { return ln.Dial() },
		},
		service: svc,
		sleeper: sleeper,
		corpus:  corpus,
	}
}

func (s *testServer) get(t *testing.T, path string, headers map[string]string) *fasthttp.Response {
	t.Helper()
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI("http://gateway.test" + path)
	req.Header.SetMethod(fasthttp.MethodGet)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp := &fasthttp.Response{}
	require.NoError(t, s.client.DoTimeout(req, resp, 5*time.Second))
	return resp
}

func withKey(key string) map[string]string {
	return map[string]string{"x-api-key": key}
}
