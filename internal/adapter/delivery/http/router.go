package http

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// RegisterRoutes sets up the public routes and the protected /v1 group.
func RegisterRoutes(r *router.Router, h *QueryHandler, gate *AuthGate, logger *zap.Logger) {
	logger.Info("Setting up application-specific routes...")

	// Case-corrected redirects would reveal which protected routes exist.
	r.RedirectFixedPath = false
	r.RedirectTrailingSlash = false
	r.NotFound = gate.NotFound

	r.GET("/health", h.Health)
	r.GET("/openapi.json", OpenAPI)
	r.GET("/docs", Docs)

	v1 := r.Group(ProtectedPrefix)
	v1.GET("/addresses/{address}/balance", h.AddressBalance)
	v1.GET("/tokens/{contract}/{holder}/balance", h.TokenBalance)
	v1.GET("/txs/{hash}", h.TransactionStatus)

	logger.Info("All routes registered.")
}

// NewHandler builds the server handler: request id, access log, panic recovery, then the
// rate limiter and auth gate (both scoped to the protected prefix), then the router.
func NewHandler(r *router.Router, limiter *RateLimiter, gate *AuthGate, logger *zap.Logger) fasthttp.RequestHandler {
	return Chain(r.Handler,
		RequestID,
		AccessLog(logger),
		Recover(logger),
		limiter.Middleware,
		gate.Middleware,
	)
}
