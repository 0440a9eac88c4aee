package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"web3-gateway/internal/application"
	"web3-gateway/internal/config"
	"web3-gateway/internal/domain"
	"web3-gateway/internal/domain/entity"
	domainService "web3-gateway/internal/domain/service"
	"web3-gateway/internal/pkg/apperrors"
)

// steadyChain is a ChainClient whose head and balances never move.
type steadyChain struct {
	head     uint64
	wei      *big.Int
	decimals uint8
	tokenRaw *big.Int
}

func (c steadyChain) BlockNumber(context.Context) (uint64, error) { return c.head, nil }

func (c steadyChain) BlockByTag(context.Context, entity.BlockTag) (*entity.Block, error) {
	return &entity.Block{Timestamp: 1_700_000_000}, nil
}

func (c steadyChain) Balance(context.Context, entity.Address) (*big.Int, error) {
	return new(big.Int).Set(c.wei), nil
}

func (c steadyChain) ReadContract(_ context.Context, _ entity.Address, _ abi.ABI, method string, _ ...any) ([]any, error) {
	switch method {
	case domainService.ERC20MethodDecimals:
		return []any{c.decimals}, nil
	case domainService.ERC20MethodBalanceOf:
		return []any{new(big.Int).Set(c.tokenRaw)}, nil
	}
	return nil, errors.New("unexpected method " + method)
}

func (c steadyChain) TransactionByHash(context.Context, entity.TxHash) (*entity.Transaction, error) {
	return nil, domain.ErrTransactionNotFound
}

func (c steadyChain) TransactionReceipt(context.Context, entity.TxHash) (*entity.Receipt, error) {
	return nil, domain.ErrReceiptNotFound
}

type steadyChains struct {
	client domainService.ChainClient
}

func (f steadyChains) Client(entity.ChainKey) (domainService.ChainClient, error) {
	return f.client, nil
}

func authedServer(t *testing.T, svc *fakeQueryService) *testServer {
	return newTestServer(t, svc, serverOptions{apiKeys: []string{validKey}})
}

func TestQueryHandler_ValidationRejectsBeforeProviderCalls(t *testing.T) {
	srv := authedServer(t, balanceService())

	paths := []string{
		"/v1/addresses/0xZZ00000000000000000000000000000000000000/balance",
		"/v1/addresses/0x1234/balance",
		"/v1/addresses/" + testAddress + "00/balance",
		"/v1/addresses/000000000000000000000000000000000000dEaD00/balance",
		"/v1/addresses/" + testAddress + "/balance?chain=ethereum",
		"/v1/addresses/" + testAddress + "/balance?chain=BASE",
		"/v1/addresses/" + testAddress + "/balance?chain=",
		"/v1/tokens/0xnothex/" + testAddress + "/balance",
		"/v1/tokens/" + testContract + "/0x12/balance",
		"/v1/txs/0x1234",
		"/v1/txs/" + strings.Replace(testHash, "5c", "zz", 1),
		"/v1/txs/" + testHash + "?confirmations=-1",
		"/v1/txs/" + testHash + "?confirmations=abc",
		"/v1/txs/" + testHash + "?confirmations=1.5",
		"/v1/txs/" + testHash + "?chain=solana",
	}
	for _, p := range paths {
		resp := srv.get(t, p, withKey(validKey))
		require.Equal(t, fasthttp.StatusBadRequest, resp.StatusCode(), p)

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(resp.Body(), &body))
		assert.Equal(t, "Bad Request", body.Error)
		assert.NotEmpty(t, body.Message, p)
	}
	assert.Zero(t, srv.service.calls.Load())
}

func TestQueryHandler_AddressBalance(t *testing.T) {
	svc := &fakeQueryService{balance: &entity.BalanceResult{
		Address: testAddress, Wei: "1500000000000000000", Ether: "1.5", BlockNumber: "123",
	}}
	srv := authedServer(t, svc)

	resp := srv.get(t, "/v1/addresses/"+testAddress+"/balance", withKey(validKey))
	require.Equal(t, fasthttp.StatusOK, resp.StatusCode())
	assert.JSONEq(t, `{"address":"`+testAddress+`","wei":"1500000000000000000","ether":"1.5","blockNumber":"123"}`,
		string(resp.Body()))
	assert.Contains(t, string(resp.Header.ContentType()), "application/json")

	chain, _ := svc.LastCall()
	assert.Equal(t, entity.ChainBase, chain, "chain defaults to base")

	srv.get(t, "/v1/addresses/"+testAddress+"/balance?chain=baseSepolia", withKey(validKey))
	chain, _ = svc.LastCall()
	assert.Equal(t, entity.ChainBaseSepolia, chain)
}

func TestQueryHandler_TokenBalance(t *testing.T) {
	svc := &fakeQueryService{token: &entity.TokenBalanceResult{
		Contract: testContract, Holder: testAddress, Decimals: 6, Raw: "0", Formatted: "0",
	}}
	srv := authedServer(t, svc)

	resp := srv.get(t, "/v1/tokens/"+testContract+"/"+testAddress+"/balance", withKey(validKey))
	require.Equal(t, fasthttp.StatusOK, resp.StatusCode())
	assert.JSONEq(t, `{"contract":"`+testContract+`","holder":"`+testAddress+`","decimals":6,"raw":"0","formatted":"0"}`,
		string(resp.Body()))
}

func TestQueryHandler_BalancesAreByteIdenticalAcrossRepeats(t *testing.T) {
	tokenRaw, _ := new(big.Int).SetString("2500000", 10)
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	chain := steadyChain{head: 123, wei: wei, decimals: 6, tokenRaw: tokenRaw}
	cfg := config.Config{Chain: config.ChainConfig{Default: string(entity.ChainBase)}}
	svc := application.NewQueryService(steadyChains{client: chain}, zap.NewNop(), cfg)
	srv := newTestServer(t, nil, serverOptions{apiKeys: []string{validKey}, backend: svc})

	cases := []struct {
		path string
		body string
	}{
		{
			"/v1/addresses/" + testAddress + "/balance",
			`{"address":"` + testAddress + `","wei":"1500000000000000000","ether":"1.5","blockNumber":"123"}`,
		},
		{
			"/v1/tokens/" + testContract + "/" + testAddress + "/balance",
			`{"contract":"` + testContract + `","holder":"` + testAddress + `","decimals":6,"raw":"2500000","formatted":"2.5"}`,
		},
	}
	for _, tc := range cases {
		first := srv.get(t, tc.path, withKey(validKey))
		require.Equal(t, fasthttp.StatusOK, first.StatusCode(), tc.path)
		second := srv.get(t, tc.path, withKey(validKey))
		require.Equal(t, fasthttp.StatusOK, second.StatusCode(), tc.path)

		assert.Equal(t, string(first.Body()), string(second.Body()), tc.path)
		assert.JSONEq(t, tc.body, string(first.Body()))
	}
}

func TestQueryHandler_TransactionStatus(t *testing.T) {
	bn, from, value := "97", "0x1111111111111111111111111111111111111111", "42"
	svc := &fakeQueryService{tx: entity.TxFound(entity.TxStatusRecord{
		Hash:          testHash,
		BlockNumber:   &bn,
		Status:        entity.TxStatusSuccess,
		From:          &from,
		Value:         &value,
		Confirmations: 3,
		Finality:      entity.FinalitySafe,
	})}
	srv := authedServer(t, svc)

	resp := srv.get(t, "/v1/txs/"+testHash, withKey(validKey))
	require.Equal(t, fasthttp.StatusOK, resp.StatusCode())
	assert.JSONEq(t, `{
		"found": true,
		"hash": "`+testHash+`",
		"blockNumber": "97",
		"status": "success",
		"from": "0x1111111111111111111111111111111111111111",
		"to": null,
		"value": "42",
		"confirmations": 3,
		"finality": "safe"
	}`, string(resp.Body()))

	_, threshold := svc.LastCall()
	assert.Equal(t, uint64(1), threshold, "configured default threshold")

	srv.get(t, "/v1/txs/"+testHash+"?confirmations=12&chain=baseSepolia", withKey(validKey))
	chain, threshold := svc.LastCall()
	assert.Equal(t, uint64(12), threshold)
	assert.Equal(t, entity.ChainBaseSepolia, chain)

	srv.get(t, "/v1/txs/"+testHash+"?confirmations=0", withKey(validKey))
	_, threshold = svc.LastCall()
	assert.Equal(t, uint64(0), threshold)
}

func TestQueryHandler_TransactionNotFoundIsSuccess(t *testing.T) {
	srv := authedServer(t, &fakeQueryService{tx: entity.TxNotFound()})

	resp := srv.get(t, "/v1/txs/"+testHash, withKey(validKey))
	require.Equal(t, fasthttp.StatusOK, resp.StatusCode())
	assert.JSONEq(t, `{"found":false}`, string(resp.Body()))
}

func TestQueryHandler_ServiceErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		body   string
	}{
		{fmt.Errorf("wrapped: %w", apperrors.ErrExternalServiceFailure), fasthttp.StatusBadGateway, `{"error":"Upstream RPC failure"}`},
		{fmt.Errorf("wrapped: %w", apperrors.ErrTimeout), fasthttp.StatusGatewayTimeout, `{"error":"Upstream RPC timeout"}`},
		{fmt.Errorf("boom"), fasthttp.StatusInternalServerError, `{"error":"Internal Server Error"}`},
	}
	for _, tc := range cases {
		srv := authedServer(t, &fakeQueryService{err: tc.err})

		resp := srv.get(t, "/v1/addresses/"+testAddress+"/balance", withKey(validKey))
		assert.Equal(t, tc.status, resp.StatusCode(), tc.err.Error())
		assert.JSONEq(t, tc.body, string(resp.Body()))

		health := srv.get(t, "/health", nil)
		assert.Equal(t, tc.status, health.StatusCode())
	}

	srv := authedServer(t, &fakeQueryService{err: fmt.Errorf("%w: polygon", domain.ErrUnsupportedChain)})
	resp := srv.get(t, "/v1/txs/"+testHash, withKey(validKey))
	assert.Equal(t, fasthttp.StatusBadRequest, resp.StatusCode())
}

func TestQueryHandler_Health(t *testing.T) {
	srv := authedServer(t, balanceService())

	resp := srv.get(t, "/health", nil)
	require.Equal(t, fasthttp.StatusOK, resp.StatusCode())

	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "base", body["chain"])
	assert.Equal(t, "1", body["block"])
}

func TestMiddleware_RequestID(t *testing.T) {
	srv := authedServer(t, balanceService())

	resp := srv.get(t, "/health", map[string]string{"x-request-id": "req-123"})
	assert.Equal(t, "req-123", string(resp.Header.Peek("x-request-id")))

	resp = srv.get(t, "/health", nil)
	assert.Len(t, string(resp.Header.Peek("x-request-id")), 36, "generated uuid")

	resp = srv.get(t, "/v1/txs/"+testHash, map[string]string{"x-request-id": "req-401"})
	assert.Equal(t, fasthttp.StatusUnauthorized, resp.StatusCode())
	assert.Equal(t, "req-401", string(resp.Header.Peek("x-request-id")))
}

func TestMiddleware_RecoverTurnsPanicInto500(t *testing.T) {
	srv := authedServer(t, &fakeQueryService{panics: true})

	resp := srv.get(t, "/v1/addresses/"+testAddress+"/balance", map[string]string{
		"x-api-key":    validKey,
		"x-request-id": "req-panic",
	})
	assert.Equal(t, fasthttp.StatusInternalServerError, resp.StatusCode())
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, string(resp.Body()))
	assert.Equal(t, "req-panic", string(resp.Header.Peek("x-request-id")))
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
			return func(ctx *fasthttp.RequestCtx) {
				order = append(order, name)
				next(ctx)
			}
		}
	}
	h := Chain(func(*fasthttp.RequestCtx) { order = append(order, "handler") }, mw("a"), mw("b"))

	var ctx fasthttp.RequestCtx
	h(&ctx)
	assert.Equal(t, []string{"a", "b", "handler"}, order)
}
