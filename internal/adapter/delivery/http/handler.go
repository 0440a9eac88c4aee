package http

import (
	"errors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"web3-gateway/internal/application/port"
	"web3-gateway/internal/domain"
	"web3-gateway/internal/domain/entity"
	"web3-gateway/internal/pkg/apperrors"
)

// QueryHandler serves the read endpoints.
type QueryHandler struct {
	service              port.QueryService
	defaultConfirmations uint64
	logger               *zap.Logger
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(svc port.QueryService, defaultConfirmations uint64, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		service:              svc,
		defaultConfirmations: defaultConfirmations,
		logger:               logger.Named("QueryHandler"),
	}
}

// Health handles GET /health.
func (h *QueryHandler) Health(ctx *fasthttp.RequestCtx) {
	res, err := h.service.Health(ctx)
	if err != nil {
		h.handleServiceError(ctx, "health", err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, res, h.logger)
}

// AddressBalance handles GET /v1/addresses/{address}/balance.
func (h *QueryHandler) AddressBalance(ctx *fasthttp.RequestCtx) {
	address, err := entity.NewAddress(pathParam(ctx, "address"))
	if err != nil {
		h.badRequest(ctx, err)
		return
	}
	chain, err := parseChain(ctx.QueryArgs())
	if err != nil {
		h.badRequest(ctx, err)
		return
	}

	res, err := h.service.AddressBalance(ctx, chain, address)
	if err != nil {
		h.handleServiceError(ctx, "address balance", err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, res, h.logger)
}

// TokenBalance handles GET /v1/tokens/{contract}/{holder}/balance.
func (h *QueryHandler) TokenBalance(ctx *fasthttp.RequestCtx) {
	contract, err := entity.NewAddress(pathParam(ctx, "contract"))
	if err != nil {
		h.badRequest(ctx, err)
		return
	}
	holder, err := entity.NewAddress(pathParam(ctx, "holder"))
	if err != nil {
		h.badRequest(ctx, err)
		return
	}
	chain, err := parseChain(ctx.QueryArgs())
	if err != nil {
		h.badRequest(ctx, err)
		return
	}

	res, err := h.service.TokenBalance(ctx, chain, contract, holder)
	if err != nil {
		h.handleServiceError(ctx, "token balance", err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, res, h.logger)
}

// TransactionStatus handles GET /v1/txs/{hash}.
func (h *QueryHandler) TransactionStatus(ctx *fasthttp.RequestCtx) {
	hash, err := entity.NewTxHash(pathParam(ctx, "hash"))
	if err != nil {
		h.badRequest(ctx, err)
		return
	}
	chain, err := parseChain(ctx.QueryArgs())
	if err != nil {
		h.badRequest(ctx, err)
		return
	}
	threshold, err := parseConfirmations(ctx.QueryArgs(), h.defaultConfirmations)
	if err != nil {
		h.badRequest(ctx, err)
		return
	}

	res, err := h.service.TransactionStatus(ctx, chain, hash, threshold)
	if err != nil {
		h.handleServiceError(ctx, "transaction status", err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, res, h.logger)
}

func (h *QueryHandler) badRequest(ctx *fasthttp.RequestCtx, err error) {
	h.logger.Debug("Rejected invalid request", zap.ByteString("path", ctx.Path()), zap.Error(err))
	writeJSON(ctx, fasthttp.StatusBadRequest, ErrorResponse{Error: msgBadRequest, Message: err.Error()}, h.logger)
}

// handleServiceError maps a query failure to a response. Provider failures are never
// reported as not found.
func (h *QueryHandler) handleServiceError(ctx *fasthttp.RequestCtx, op string, err error) {
	if errors.Is(err, domain.ErrUnsupportedChain) {
		h.badRequest(ctx, err)
		return
	}

	status := apperrors.HTTPStatus(err)
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("requestId", RequestIDFrom(ctx)),
		zap.Error(err),
	}
	switch status {
	case fasthttp.StatusBadRequest:
		h.badRequest(ctx, err)
	case fasthttp.StatusGatewayTimeout:
		h.logger.Warn("Upstream RPC timed out", fields...)
		writeError(ctx, status, msgUpstreamTimeout, h.logger)
	case fasthttp.StatusBadGateway:
		h.logger.Error("Upstream RPC failed", fields...)
		writeError(ctx, status, msgUpstreamFailure, h.logger)
	default:
		h.logger.Error("Query failed", fields...)
		writeError(ctx, fasthttp.StatusInternalServerError, msgInternalError, h.logger)
	}
}
