package dex

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"burnwatch/internal/model"
)

// ContractCaller is the read-only eth_call surface the resolver needs.
// *chain.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// assetDecimals is the fixed decimal exponent of the paired asset and of
// every token the tax swapper burns (wrapped-native convention).
const assetDecimals = 18

var weiPerUnit = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(assetDecimals), nil))

// ReserveResolver locates a token's paired-asset pool through the factory
// and reads its oriented reserves. Resolve never fails: any miss or RPC
// error collapses to the zero snapshot.
type ReserveResolver struct {
	caller  ContractCaller
	factory common.Address
	paired  common.Address
	logger  *zap.Logger
}

// NewReserveResolver builds a resolver against the given factory and paired
// asset address.
func NewReserveResolver(caller ContractCaller, factory, paired common.Address, logger *zap.Logger) *ReserveResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReserveResolver{
		caller:  caller,
		factory: factory,
		paired:  paired,
		logger:  logger,
	}
}

// Resolve returns the pool reserves for token, oriented so the first side is
// always the token's own reserve. The volatile pool is tried first, then the
// stable variant. Both missing, or any call failure, yields the zero
// snapshot.
func (r *ReserveResolver) Resolve(ctx context.Context, token common.Address) model.PoolReserves {
	pool, err := r.lookupPool(ctx, token)
	if err != nil {
		r.logger.Warn("pool lookup failed", zap.String("token", token.Hex()), zap.Error(err))
		return model.PoolReserves{}
	}
	if pool == (common.Address{}) {
		r.logger.Debug("no pool for token", zap.String("token", token.Hex()))
		return model.PoolReserves{}
	}

	reserves, err := r.readReserves(ctx, pool, token)
	if err != nil {
		r.logger.Warn("reserve read failed",
			zap.String("token", token.Hex()),
			zap.String("pool", pool.Hex()),
			zap.Error(err),
		)
		return model.PoolReserves{}
	}
	return reserves
}

// lookupPool queries the factory for the volatile pool, falling back to the
// stable variant. The zero address means neither exists.
func (r *ReserveResolver) lookupPool(ctx context.Context, token common.Address) (common.Address, error) {
	for _, stable := range []bool{false, true} {
		pool, err := r.getPool(ctx, token, stable)
		if err != nil {
			return common.Address{}, err
		}
		if pool != (common.Address{}) {
			return pool, nil
		}
	}
	return common.Address{}, nil
}

func (r *ReserveResolver) getPool(ctx context.Context, token common.Address, stable bool) (common.Address, error) {
	parsed, err := FactoryABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse factory abi: %w", err)
	}
	values, err := r.call(ctx, r.factory, parsed, "getPool", token, r.paired, stable)
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(values[0])
}

func (r *ReserveResolver) readReserves(ctx context.Context, pool, token common.Address) (model.PoolReserves, error) {
	parsed, err := PoolABI()
	if err != nil {
		return model.PoolReserves{}, fmt.Errorf("parse pool abi: %w", err)
	}

	values, err := r.call(ctx, pool, parsed, "getReserves")
	if err != nil {
		return model.PoolReserves{}, err
	}
	if len(values) < 2 {
		return model.PoolReserves{}, fmt.Errorf("getReserves returned %d values", len(values))
	}
	reserve0, err := asBigInt(values[0])
	if err != nil {
		return model.PoolReserves{}, fmt.Errorf("reserve0: %w", err)
	}
	reserve1, err := asBigInt(values[1])
	if err != nil {
		return model.PoolReserves{}, fmt.Errorf("reserve1: %w", err)
	}

	values, err = r.call(ctx, pool, parsed, "token0")
	if err != nil {
		return model.PoolReserves{}, err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return model.PoolReserves{}, fmt.Errorf("token0: %w", err)
	}

	// Orient so the token's own reserve comes first, whichever slot the pool
	// assigned it.
	if strings.EqualFold(token0.Hex(), token.Hex()) {
		return model.PoolReserves{Token: FromWei(reserve0), Paired: FromWei(reserve1)}, nil
	}
	return model.PoolReserves{Token: FromWei(reserve1), Paired: FromWei(reserve0)}, nil
}

func (r *ReserveResolver) call(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := r.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// FromWei scales a raw smallest-denomination amount to display units.
func FromWei(raw *big.Int) float64 {
	if raw == nil {
		return 0
	}
	value, _ := new(big.Float).Quo(new(big.Float).SetInt(raw), weiPerUnit).Float64()
	return value
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
