package application

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"web3-gateway/internal/application/port"
	"web3-gateway/internal/config"
	"web3-gateway/internal/domain"
	"web3-gateway/internal/domain/entity"
	domainService "web3-gateway/internal/domain/service"
	"web3-gateway/internal/pkg/apperrors"
)

// Compile-time check to ensure queryService implements QueryService
var _ port.QueryService = (*queryService)(nil)

// queryService implements port.QueryService by fanning out independent provider reads
// and joining them before deriving a response.
type queryService struct {
	clients domainService.ChainClientFactory
	logger  *zap.Logger
	cfg     config.Config
	now     func() time.Time
}

// NewQueryService creates a new instance of the query service.
func NewQueryService(
	clients domainService.ChainClientFactory,
	logger *zap.Logger,
	cfg config.Config,
) port.QueryService {
	return &queryService{
		clients: clients,
		logger:  logger.Named("QueryService"),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Health checks the default chain: head number and latest block are read concurrently.
func (s *queryService) Health(ctx context.Context) (*entity.HealthResult, error) {
	chainKey := s.cfg.Chain.GetDefault()
	client, err := s.clients.Client(chainKey)
	if err != nil {
		return nil, err
	}
	chain, _ := entity.LookupChain(chainKey)

	ctx, cancel := s.upstreamContext(ctx)
	defer cancel()

	var (
		head   uint64
		latest *entity.Block
	)
	start := s.now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := client.BlockNumber(gctx)
		head = n
		return err
	})
	g.Go(func() error {
		b, err := client.BlockByTag(gctx, entity.BlockTagLatest)
		latest = b
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("Health check failed", zap.String("chain", chainKey.String()), zap.Error(err))
		return nil, fmt.Errorf("health check on %s: %w", chainKey, err)
	}
	finished := s.now()

	skew := finished.Sub(time.Unix(int64(latest.Timestamp), 0))
	if skew < 0 {
		skew = -skew
	}

	return &entity.HealthResult{
		Status:          entity.HealthStatusOK,
		Chain:           chainKey,
		ChainID:         chain.ChainID,
		Block:           strconv.FormatUint(head, 10),
		RPCLatencyMs:    finished.Sub(start).Milliseconds(),
		BlockTimeSkewMs: skew.Milliseconds(),
	}, nil
}

// AddressBalance reads the balance and the head block number concurrently.
func (s *queryService) AddressBalance(
	ctx context.Context,
	chainKey entity.ChainKey,
	address entity.Address,
) (*entity.BalanceResult, error) {
	client, err := s.clients.Client(chainKey)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.upstreamContext(ctx)
	defer cancel()

	var (
		wei  *big.Int
		head uint64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := client.Balance(gctx, address)
		wei = b
		return err
	})
	g.Go(func() error {
		n, err := client.BlockNumber(gctx)
		head = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("balance of %s on %s: %w", address, chainKey, err)
	}
	if wei == nil {
		return nil, fmt.Errorf("%w: provider returned no balance for %s", apperrors.ErrExternalServiceFailure, address)
	}

	return &entity.BalanceResult{
		Address:     address.String(),
		Wei:         wei.String(),
		Ether:       FormatEther(wei),
		BlockNumber: strconv.FormatUint(head, 10),
	}, nil
}

// TokenBalance reads decimals() and balanceOf(holder) concurrently.
func (s *queryService) TokenBalance(
	ctx context.Context,
	chainKey entity.ChainKey,
	contract, holder entity.Address,
) (*entity.TokenBalanceResult, error) {
	client, err := s.clients.Client(chainKey)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.upstreamContext(ctx)
	defer cancel()

	var (
		decimals uint8
		raw      *big.Int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := client.ReadContract(gctx, contract, domainService.ERC20ABI, domainService.ERC20MethodDecimals)
		if err != nil {
			return err
		}
		decimals, err = decodeUint8(out)
		return err
	})
	g.Go(func() error {
		out, err := client.ReadContract(gctx, contract, domainService.ERC20ABI, domainService.ERC20MethodBalanceOf, holder.Common())
		if err != nil {
			return err
		}
		raw, err = decodeBigInt(out)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("token balance of %s on %s (%s): %w", holder, contract, chainKey, err)
	}

	formatted := "0"
	if raw.Sign() != 0 {
		formatted = FormatUnits(raw, int32(decimals))
	}

	return &entity.TokenBalanceResult{
		Contract:  contract.String(),
		Holder:    holder.String(),
		Decimals:  int(decimals),
		Raw:       raw.String(),
		Formatted: formatted,
	}, nil
}

// lookup is the independently resolved outcome of one fault-tolerant provider call.
type lookup[T any] struct {
	value *T
	err   error
}

func (l lookup[T]) present() bool {
	return l.err == nil && l.value != nil
}

// TransactionStatus reads the transaction, its receipt and the head concurrently. The
// transaction and receipt lookups are allowed to fail; only the head read is required.
func (s *queryService) TransactionStatus(
	ctx context.Context,
	chainKey entity.ChainKey,
	hash entity.TxHash,
	threshold uint64,
) (*entity.TxStatusResult, error) {
	client, err := s.clients.Client(chainKey)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.upstreamContext(ctx)
	defer cancel()

	var (
		tx      lookup[entity.Transaction]
		receipt lookup[entity.Receipt]
		head    uint64
		headErr error
		wg      sync.WaitGroup
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		tx.value, tx.err = client.TransactionByHash(ctx, hash)
	}()
	go func() {
		defer wg.Done()
		receipt.value, receipt.err = client.TransactionReceipt(ctx, hash)
	}()
	go func() {
		defer wg.Done()
		head, headErr = client.BlockNumber(ctx)
	}()
	wg.Wait()

	if headErr != nil {
		return nil, fmt.Errorf("head block on %s: %w", chainKey, headErr)
	}
	s.logAbsent("transaction", hash, tx.err)
	s.logAbsent("receipt", hash, receipt.err)

	if !tx.present() && !receipt.present() {
		return entity.TxNotFound(), nil
	}

	record := entity.TxStatusRecord{
		Hash:   hash.String(),
		Status: entity.TxStatusPending,
	}

	var blockNumber *uint64
	if receipt.present() {
		n := receipt.value.BlockNumber
		blockNumber = &n
		if receipt.value.Status != "" {
			record.Status = receipt.value.Status
		}
	} else if tx.value.BlockNumber != nil {
		n := *tx.value.BlockNumber
		blockNumber = &n
	}

	if tx.present() {
		from := tx.value.From
		record.From = &from
		if tx.value.To != nil {
			to := *tx.value.To
			record.To = &to
		}
		// Zero-value transfers render as null.
		if tx.value.Value != nil && tx.value.Value.Sign() != 0 {
			value := tx.value.Value.String()
			record.Value = &value
		}
	}

	if blockNumber != nil {
		bn := strconv.FormatUint(*blockNumber, 10)
		record.BlockNumber = &bn
		record.Confirmations = Confirmations(head, *blockNumber)
	}
	record.Finality = ClassifyFinality(record.Confirmations, threshold)

	return entity.TxFound(record), nil
}

// Confirmations is head minus block, saturating at zero when the node reports a block above its own head.
func Confirmations(head, block uint64) uint64 {
	if block > head {
		return 0
	}
	return head - block
}

// ClassifyFinality reports safe once confirmations reach threshold.
func ClassifyFinality(confirmations, threshold uint64) entity.Finality {
	if confirmations >= threshold {
		return entity.FinalitySafe
	}
	return entity.FinalityPending
}

// logAbsent records why a fault-tolerant lookup came back empty. Plain absence is expected.
func (s *queryService) logAbsent(what string, hash entity.TxHash, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, domain.ErrTransactionNotFound) || errors.Is(err, domain.ErrReceiptNotFound) {
		s.logger.Debug("Lookup returned nothing", zap.String("lookup", what), zap.String("hash", hash.String()))
		return
	}
	s.logger.Warn("Lookup failed, treating as absent",
		zap.String("lookup", what), zap.String("hash", hash.String()), zap.Error(err))
}

// upstreamContext applies the configured provider deadline, if any.
func (s *queryService) upstreamContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout := s.cfg.Upstream.GetTimeout(); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

func decodeUint8(out []any) (uint8, error) {
	if len(out) != 1 {
		return 0, fmt.Errorf("%w: decimals() returned %d values", apperrors.ErrExternalServiceFailure, len(out))
	}
	switch v := out[0].(type) {
	case uint8:
		return v, nil
	case *big.Int:
		if v.Sign() < 0 || !v.IsUint64() || v.Uint64() > 255 {
			return 0, fmt.Errorf("%w: decimals() out of range: %s", apperrors.ErrExternalServiceFailure, v)
		}
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("%w: decimals() returned %T", apperrors.ErrExternalServiceFailure, out[0])
	}
}

func decodeBigInt(out []any) (*big.Int, error) {
	if len(out) != 1 {
		return nil, fmt.Errorf("%w: balanceOf() returned %d values", apperrors.ErrExternalServiceFailure, len(out))
	}
	v, ok := out[0].(*big.Int)
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: balanceOf() returned %T", apperrors.ErrExternalServiceFailure, out[0])
	}
	return v, nil
}
