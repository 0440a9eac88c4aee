package http

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"web3-gateway/internal/pkg/apperrors"
)

// Error strings surfaced to callers.
const (
	msgBadRequest       = "Bad Request"
	msgUnauthorized     = "Unauthorized"
	msgNotFound         = "Not Found"
	msgTooManyRequests  = "Too Many Requests"
	msgMisconfigured    = "Server not configured with API_KEYS"
	msgUpstreamFailure  = "Upstream RPC failure"
	msgUpstreamTimeout  = "Upstream RPC timeout"
	msgInternalError    = "Internal Server Error"
	contentTypeJSON     = "application/json; charset=utf-8"
	headerRequestID     = "x-request-id"
	headerAPIKey        = "x-api-key"
	headerAuthenticate  = "www-authenticate"
	headerRetryAfter    = "retry-after"
	headerRateLimit     = "x-ratelimit-limit"
	headerRateRemaining = "x-ratelimit-remaining"
	headerRateReset     = "x-ratelimit-reset"
)

// ErrorResponse is the envelope of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// UnauthorizedResponse carries the decoy lore alongside the error.
type UnauthorizedResponse struct {
	Error   string `json:"error"`
	Lore    string `json:"lore"`
	LoreEnc string `json:"loreEnc"`
}

// writeJSON replaces any partially written body with v.
func writeJSON(ctx *fasthttp.RequestCtx, status int, v any, logger *zap.Logger) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
		ctx.Error(msgInternalError, fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType(contentTypeJSON)
	ctx.SetBody(body)
}

func writeError(ctx *fasthttp.RequestCtx, status int, message string, logger *zap.Logger) {
	writeJSON(ctx, status, ErrorResponse{Error: message}, logger)
}

// writeAppError writes message with the status apperrors assigns to err.
func writeAppError(ctx *fasthttp.RequestCtx, err error, message string, logger *zap.Logger) {
	writeError(ctx, apperrors.HTTPStatus(err), message, logger)
}
