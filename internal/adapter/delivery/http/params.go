package http

import (
	"fmt"
	"strconv"

	"github.com/valyala/fasthttp"

	"web3-gateway/internal/domain/entity"
	"web3-gateway/internal/pkg/apperrors"
)

const (
	queryChain         = "chain"
	queryConfirmations = "confirmations"
)

// pathParam returns a router path parameter.
func pathParam(ctx *fasthttp.RequestCtx, name string) string {
	v, _ := ctx.UserValue(name).(string)
	return v
}

// parseChain reads the chain query parameter. An absent parameter selects the default chain.
func parseChain(args *fasthttp.Args) (entity.ChainKey, error) {
	if !args.Has(queryChain) {
		return entity.DefaultChainKey, nil
	}
	return entity.ParseChainKey(string(args.Peek(queryChain)))
}

// parseConfirmations reads the confirmations threshold, a non-negative base-10 integer.
func parseConfirmations(args *fasthttp.Args, fallback uint64) (uint64, error) {
	if !args.Has(queryConfirmations) {
		return fallback, nil
	}
	raw := string(args.Peek(queryConfirmations))
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: confirmations must be a non-negative integer, got '%s'", apperrors.ErrInvalidInput, raw)
	}
	return n, nil
}
