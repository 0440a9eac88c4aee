package http

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"web3-gateway/internal/config"
	"web3-gateway/internal/pkg/apperrors"
)

// ProtectedPrefix is the path subtree that requires an API key.
const ProtectedPrefix = "/v1"

// Bounds of the delay inserted before every decoy response.
const (
	MinJitter = 150 * time.Millisecond
	MaxJitter = 400 * time.Millisecond
)

const authDecisionKey = "authDecision"

// AuthDecision is attached to every protected request the gate lets through.
type AuthDecision struct {
	Authenticated bool
}

// Randomizer supplies the jitter delay and the decoy index.
type Randomizer interface {
	// Delay returns a duration in [MinJitter, MaxJitter].
	Delay() time.Duration
	// Pick returns an index in [0, n).
	Pick(n int) int
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration)

type uniformRandomizer struct{}

func (uniformRandomizer) Delay() time.Duration {
	return MinJitter + rand.N(MaxJitter-MinJitter+1)
}

func (uniformRandomizer) Pick(n int) int {
	return rand.IntN(n)
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// AuthOption customises an AuthGate.
type AuthOption func(*AuthGate)

// WithRandomizer replaces the jitter and decoy source.
func WithRandomizer(r Randomizer) AuthOption {
	return func(g *AuthGate) { g.random = r }
}

// WithSleeper replaces how the jitter delay is waited out.
func WithSleeper(s Sleeper) AuthOption {
	return func(g *AuthGate) { g.sleep = s }
}

// AuthGate authenticates requests under ProtectedPrefix and answers failed or
// unauthenticated requests with a delayed decoy.
type AuthGate struct {
	allowed map[string]struct{}
	realm   string
	corpus  *LoreCorpus
	random  Randomizer
	sleep   Sleeper
	logger  *zap.Logger
}

// NewAuthGate builds a gate from the configured key set. Keys are trimmed and empty ones dropped.
func NewAuthGate(cfg config.AuthConfig, corpus *LoreCorpus, logger *zap.Logger, opts ...AuthOption) *AuthGate {
	allowed := make(map[string]struct{}, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			allowed[k] = struct{}{}
		}
	}
	realm := cfg.Realm
	if realm == "" {
		realm = "web3-api"
	}

	g := &AuthGate{
		allowed: allowed,
		realm:   realm,
		corpus:  corpus,
		random:  uniformRandomizer{},
		sleep:   sleepContext,
		logger:  logger.Named("AuthGate"),
	}
	for _, opt := range opts {
		opt(g)
	}
	if len(allowed) == 0 {
		g.logger.Warn("No API keys configured, every protected request will fail with 500")
	}
	return g
}

// IsProtectedPath reports whether path lies under ProtectedPrefix.
func IsProtectedPath(path []byte) bool {
	p := string(path)
	return p == ProtectedPrefix || strings.HasPrefix(p, ProtectedPrefix+"/")
}

// ExtractAPIKey returns the trimmed first x-api-key value. Header lookup is case-insensitive.
func ExtractAPIKey(h *fasthttp.RequestHeader) string {
	return strings.TrimSpace(string(h.Peek(headerAPIKey)))
}

// IsAuthenticated reports whether the gate admitted this request.
func IsAuthenticated(ctx *fasthttp.RequestCtx) bool {
	d, ok := ctx.UserValue(authDecisionKey).(AuthDecision)
	return ok && d.Authenticated
}

// Authenticate reports whether key is in the allowed set.
func (g *AuthGate) Authenticate(key string) bool {
	if key == "" {
		return false
	}
	_, ok := g.allowed[key]
	return ok
}

// Middleware enforces the gate on protected paths and passes everything else through.
func (g *AuthGate) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if !IsProtectedPath(ctx.Path()) {
			next(ctx)
			return
		}
		if len(g.allowed) == 0 {
			g.logger.Error("Rejecting protected request, no API keys configured",
				zap.ByteString("path", ctx.Path()))
			writeAppError(ctx, apperrors.ErrMisconfigured, msgMisconfigured, g.logger)
			return
		}
		if !g.Authenticate(ExtractAPIKey(&ctx.Request.Header)) {
			g.Reject(ctx)
			return
		}
		ctx.SetUserValue(authDecisionKey, AuthDecision{Authenticated: true})
		next(ctx)
	}
}

// Reject waits out a random delay and writes a 401 with a decoy message.
func (g *AuthGate) Reject(ctx *fasthttp.RequestCtx) {
	delay := g.random.Delay()
	if delay < MinJitter {
		delay = MinJitter
	} else if delay > MaxJitter {
		delay = MaxJitter
	}
	g.sleep(ctx, delay)

	lore := g.corpus.Message(g.random.Pick(g.corpus.Len()))
	g.logger.Info("Rejected unauthenticated request",
		zap.ByteString("path", ctx.Path()),
		zap.String("remoteIp", ctx.RemoteIP().String()),
		zap.Duration("jitter", delay),
	)

	ctx.Response.Header.Set(headerAuthenticate, `ApiKey realm="`+g.realm+`"`)
	writeJSON(ctx, apperrors.HTTPStatus(apperrors.ErrUnauthorized), UnauthorizedResponse{
		Error:   msgUnauthorized,
		Lore:    EncodeLore(lore),
		LoreEnc: LoreEncoding,
	}, g.logger)
}

// NotFound answers unmatched routes. Under the protected prefix only an authenticated
// request learns that the route does not exist.
func (g *AuthGate) NotFound(ctx *fasthttp.RequestCtx) {
	if IsProtectedPath(ctx.Path()) && !IsAuthenticated(ctx) {
		g.Reject(ctx)
		return
	}
	writeAppError(ctx, apperrors.ErrNotFound, msgNotFound, g.logger)
}
