package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/websocket"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"web3-gateway/internal/domain"
	"web3-gateway/internal/domain/entity"
	domainService "web3-gateway/internal/domain/service"
	"web3-gateway/internal/pkg/apperrors"
)

// Compile-time check
var _ domainService.ChainClient = (*Client)(nil)

const defaultReadTimeout = 10 * time.Second

// Client implements domainService.ChainClient against one JSON-RPC endpoint.
type Client struct {
	chain  entity.ChainKey
	rpcURL string
	client *fasthttp.Client
	logger *zap.Logger
	nextID atomic.Uint64
}

// NewClient creates a JSON-RPC client bound to chain. http(s) endpoints are called through
// fasthttp; ws(s) endpoints dial a fresh connection per call.
func NewClient(chain entity.ChainKey, rpcURL string, readTimeout time.Duration, logger *zap.Logger) (*Client, error) {
	if !isHTTP(rpcURL) && !isWS(rpcURL) {
		return nil, fmt.Errorf("%w: unsupported protocol in rpc url for chain %s", apperrors.ErrInvalidInput, chain)
	}
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	return &Client{
		chain:  chain,
		rpcURL: rpcURL,
		client: &fasthttp.Client{
			ReadTimeout: readTimeout,
		},
		logger: logger.Named("RPCClient").With(zap.String("chain", chain.String())),
	}, nil
}

// JSONRPCRequest is the envelope sent for every call.
type JSONRPCRequest struct {
	Jsonrpc string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// JSONRPCResponse defines the basic structure for a JSON-RPC response.
type JSONRPCResponse struct {
	ID      interface{}     `json:"id"`
	Jsonrpc string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError defines the structure for a JSON-RPC error.
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BlockNumber calls eth_blockNumber.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var n hexutil.Uint64
	if err := c.call(ctx, &n, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

type rpcBlock struct {
	Timestamp hexutil.Uint64 `json:"timestamp"`
}

// BlockByTag calls eth_getBlockByNumber without transaction bodies.
func (c *Client) BlockByTag(ctx context.Context, tag entity.BlockTag) (*entity.Block, error) {
	var b *rpcBlock
	if err := c.call(ctx, &b, "eth_getBlockByNumber", string(tag), false); err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: rpc returned no block for tag %s", apperrors.ErrExternalServiceFailure, tag)
	}
	return &entity.Block{Timestamp: uint64(b.Timestamp)}, nil
}

// Balance calls eth_getBalance at the latest block.
func (c *Client) Balance(ctx context.Context, address entity.Address) (*big.Int, error) {
	var wei *hexutil.Big
	if err := c.call(ctx, &wei, "eth_getBalance", address.String(), string(entity.BlockTagLatest)); err != nil {
		return nil, err
	}
	if wei == nil {
		return nil, fmt.Errorf("%w: rpc returned no balance for %s", apperrors.ErrExternalServiceFailure, address)
	}
	return wei.ToInt(), nil
}

type callMsg struct {
	To   string        `json:"to"`
	Data hexutil.Bytes `json:"data"`
}

// ReadContract packs method with args, sends eth_call at the latest block and unpacks the outputs.
func (c *Client) ReadContract(
	ctx context.Context,
	contract entity.Address,
	contractABI abi.ABI,
	method string,
	args ...any,
) ([]any, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: pack %s: %v", apperrors.ErrInvalidInput, method, err)
	}

	var out hexutil.Bytes
	msg := callMsg{To: contract.String(), Data: data}
	if err := c.call(ctx, &out, "eth_call", msg, string(entity.BlockTagLatest)); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s on %s returned empty data", apperrors.ErrExternalServiceFailure, method, contract)
	}

	values, err := contractABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("%w: unpack %s from %s: %v", apperrors.ErrExternalServiceFailure, method, contract, err)
	}
	return values, nil
}

type rpcTransaction struct {
	BlockNumber *hexutil.Uint64 `json:"blockNumber"`
	From        string          `json:"from"`
	To          *string         `json:"to"`
	Value       *hexutil.Big    `json:"value"`
}

// TransactionByHash calls eth_getTransactionByHash.
func (c *Client) TransactionByHash(ctx context.Context, hash entity.TxHash) (*entity.Transaction, error) {
	var tx *rpcTransaction
	if err := c.call(ctx, &tx, "eth_getTransactionByHash", hash.String()); err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, domain.ErrTransactionNotFound
	}

	out := &entity.Transaction{
		From: tx.From,
		To:   tx.To,
	}
	if tx.BlockNumber != nil {
		n := uint64(*tx.BlockNumber)
		out.BlockNumber = &n
	}
	if tx.Value != nil {
		out.Value = tx.Value.ToInt()
	}
	return out, nil
}

type rpcReceipt struct {
	BlockNumber hexutil.Uint64  `json:"blockNumber"`
	Status      *hexutil.Uint64 `json:"status"`
}

// TransactionReceipt calls eth_getTransactionReceipt. A receipt without a status field
// (pre-Byzantium style) is returned with an empty Status.
func (c *Client) TransactionReceipt(ctx context.Context, hash entity.TxHash) (*entity.Receipt, error) {
	var r *rpcReceipt
	if err := c.call(ctx, &r, "eth_getTransactionReceipt", hash.String()); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, domain.ErrReceiptNotFound
	}

	out := &entity.Receipt{BlockNumber: uint64(r.BlockNumber)}
	if r.Status != nil {
		if *r.Status == 1 {
			out.Status = entity.TxStatusSuccess
		} else {
			out.Status = entity.TxStatusReverted
		}
	}
	return out, nil
}

// call sends one JSON-RPC request and decodes its result into result. A null result
// leaves result untouched.
func (c *Client) call(ctx context.Context, result any, method string, params ...any) error {
	if params == nil {
		params = []any{}
	}
	payload, err := json.Marshal(JSONRPCRequest{
		Jsonrpc: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("%w: encode %s request: %v", apperrors.ErrInternal, method, err)
	}

	startTime := time.Now()
	var body []byte
	if isWS(c.rpcURL) {
		body, err = c.doWS(ctx, method, payload)
	} else {
		body, err = c.doHTTP(ctx, method, payload)
	}
	if err != nil {
		return err
	}

	raw, err := c.validateJSONRPCResponse(method, body)
	if err != nil {
		return err
	}
	c.logger.Debug("RPC call completed",
		zap.String("method", method), zap.Duration("latency", time.Since(startTime)))

	if isNullResult(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("%w: rpc %s returned malformed result: %v",
			apperrors.ErrExternalServiceFailure, method, err,
		)
	}
	return nil
}

// doHTTP performs the call over HTTP/HTTPS.
func (c *Client) doHTTP(ctx context.Context, method string, payload []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.rpcURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	if err := ctx.Err(); err != nil {
		return nil, c.contextError(method, err)
	}

	deadline, hasDeadline := ctx.Deadline()
	timeout := c.client.ReadTimeout
	if hasDeadline {
		requestTimeout := time.Until(deadline)
		if requestTimeout > 0 && (timeout <= 0 || requestTimeout < timeout) {
			timeout = requestTimeout
		}
	}

	var requestErr error
	if timeout <= 0 {
		requestErr = c.client.Do(req, resp)
	} else {
		requestErr = c.client.DoTimeout(req, resp, timeout)
	}

	if requestErr != nil {
		if errors.Is(requestErr, fasthttp.ErrTimeout) {
			c.logger.Debug("HTTP RPC call timed out",
				zap.String("method", method), zap.Duration("timeout", timeout), zap.Error(requestErr))
			return nil, fmt.Errorf("%w: %s timed out after %v: %v",
				apperrors.ErrTimeout, method, timeout, requestErr,
			)
		}
		c.logger.Debug("HTTP RPC call failed", zap.String("method", method), zap.Error(requestErr))
		return nil, fmt.Errorf("%w: %s request failed: %v",
			apperrors.ErrExternalServiceFailure, method, requestErr,
		)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Debug("HTTP RPC call returned non-OK status",
			zap.String("method", method), zap.Int("statusCode", resp.StatusCode()))
		return nil, fmt.Errorf("%w: %s returned non-OK http status: %d",
			apperrors.ErrExternalServiceFailure, method, resp.StatusCode(),
		)
	}

	// resp is released on return; the body must outlive it.
	return append([]byte(nil), resp.Body()...), nil
}

// doWS performs the call over WSS/WS on a dedicated connection.
func (c *Client) doWS(ctx context.Context, method string, payload []byte) ([]byte, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.client.ReadTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.rpcURL, nil)
	if err != nil {
		c.logger.Debug("WS dial failed", zap.String("method", method), zap.Error(err))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, c.contextError(method, ctxErr)
		}
		return nil, fmt.Errorf("%w: ws dial for %s failed: %v", apperrors.ErrExternalServiceFailure, method, err)
	}
	defer conn.Close()

	operationTimeout := c.client.ReadTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) < operationTimeout {
			operationTimeout = time.Until(deadline)
		}
	}
	if operationTimeout <= 0 {
		return nil, c.contextError(method, context.DeadlineExceeded)
	}

	_ = conn.SetWriteDeadline(time.Now().Add(operationTimeout))
	_ = conn.SetReadDeadline(time.Now().Add(operationTimeout))

	if wErr := conn.WriteMessage(websocket.TextMessage, payload); wErr != nil {
		c.logger.Debug("WS write message failed", zap.String("method", method), zap.Error(wErr))
		return nil, fmt.Errorf("%w: ws write for %s failed: %v", apperrors.ErrExternalServiceFailure, method, wErr)
	}

	_, message, rErr := conn.ReadMessage()
	if rErr != nil {
		c.logger.Debug("WS read message failed", zap.String("method", method), zap.Error(rErr))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, c.contextError(method, ctxErr)
		}
		var netErr interface{ Timeout() bool }
		if errors.As(rErr, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w: ws read for %s timed out: %v", apperrors.ErrTimeout, method, rErr)
		}
		return nil, fmt.Errorf("%w: ws read for %s failed: %v", apperrors.ErrExternalServiceFailure, method, rErr)
	}
	return message, nil
}

// validateJSONRPCResponse checks the envelope and returns the raw result.
func (c *Client) validateJSONRPCResponse(method string, body []byte) (json.RawMessage, error) {
	var rpcResp JSONRPCResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		c.logger.Debug("RPC call returned invalid JSON",
			zap.String("method", method), zap.ByteString("body", body), zap.Error(err))
		return nil, fmt.Errorf("%w: %s returned invalid JSON response: %v",
			apperrors.ErrExternalServiceFailure, method, err,
		)
	}

	if rpcResp.Error != nil {
		c.logger.Debug("RPC call returned JSON-RPC error",
			zap.String("method", method),
			zap.Int("errorCode", rpcResp.Error.Code),
			zap.String("errorMessage", rpcResp.Error.Message),
		)
		return nil, fmt.Errorf("%w: %s returned json-rpc error: %d %s",
			apperrors.ErrExternalServiceFailure, method, rpcResp.Error.Code, rpcResp.Error.Message,
		)
	}

	if rpcResp.Jsonrpc != "2.0" {
		return nil, fmt.Errorf("%w: %s returned invalid JSON-RPC structure",
			apperrors.ErrExternalServiceFailure, method,
		)
	}

	return rpcResp.Result, nil
}

func (c *Client) contextError(method string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrTimeout, method, err)
	}
	return fmt.Errorf("%w: %s: %v", apperrors.ErrExternalServiceFailure, method, err)
}

func isNullResult(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

func isHTTP(rawURL string) bool {
	return strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://")
}

func isWS(rawURL string) bool {
	return strings.HasPrefix(rawURL, "wss://") || strings.HasPrefix(rawURL, "ws://")
}
