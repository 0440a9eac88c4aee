package http

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Middleware wraps a handler.
type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

const requestIDKey = "requestId"

// Chain applies mws so that the first one runs outermost.
func Chain(h fasthttp.RequestHandler, mws ...Middleware) fasthttp.RequestHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// RequestID echoes the caller's x-request-id or assigns a new one.
func RequestID(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id := string(ctx.Request.Header.Peek(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		ctx.SetUserValue(requestIDKey, id)
		next(ctx)
		ctx.Response.Header.Set(headerRequestID, id)
	}
}

// RequestIDFrom returns the id assigned by RequestID.
func RequestIDFrom(ctx *fasthttp.RequestCtx) string {
	id, _ := ctx.UserValue(requestIDKey).(string)
	return id
}

// AccessLog emits one line per request.
func AccessLog(logger *zap.Logger) Middleware {
	logger = logger.Named("AccessLog")
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			start := time.Now()
			next(ctx)
			logger.Info("Request handled",
				zap.ByteString("method", ctx.Method()),
				zap.ByteString("path", ctx.Path()),
				zap.Int("status", ctx.Response.StatusCode()),
				zap.Duration("latency", time.Since(start)),
				zap.String("requestId", RequestIDFrom(ctx)),
			)
		}
	}
}

// Recover turns a handler panic into a 500.
func Recover(logger *zap.Logger) Middleware {
	logger = logger.Named("Recover")
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Handler panicked",
						zap.String("panic", fmt.Sprint(r)),
						zap.ByteString("path", ctx.Path()),
						zap.String("requestId", RequestIDFrom(ctx)),
						zap.Stack("stack"),
					)
					ctx.Response.Reset()
					writeError(ctx, fasthttp.StatusInternalServerError, msgInternalError, logger)
				}
			}()
			next(ctx)
		}
	}
}
