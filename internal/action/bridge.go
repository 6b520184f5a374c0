package action

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"OdysseyFarmer/internal/chain"
	"OdysseyFarmer/internal/model"
)

const (
	// BridgeGasLimit is the gas limit of a depositETHTo call on the L1 bridge.
	BridgeGasLimit = 1_304_456

	DefaultBridgeContract = "0x9228665c0D8f9Fc36843572bE50B716B81e042BA"
	DefaultBridgeL2Gas    = 200_000
)

// DefaultBridgeData is the opaque payload "superbridge".
var DefaultBridgeData = []byte("superbridge")

const bridgeJSON = `[
 {"type":"function","name":"depositETHTo","stateMutability":"payable",
  "inputs":[{"name":"_to","type":"address"},{"name":"_l2Gas","type":"uint32"},{"name":"_data","type":"bytes"}],
  "outputs":[]}
]`

var bridgeABI = mustABI(bridgeJSON)

// Bridge deposits a percentage of the account's secondary-network balance
// into the L1 standard bridge, crediting the same address on the primary network.
type Bridge struct{}

func (Bridge) Name() string { return NameBridge }

func (Bridge) Prepare(ctx context.Context, acct model.Account, env *Env) (Plan, error) {
	if env.Secondary == nil {
		return Plan{}, errors.New("secondary network not configured")
	}
	p := env.Params
	pct := ClampPercent(p.BridgePercent)
	target := fmt.Sprintf("%.2f%%", pct)

	bal, err := env.Secondary.BalanceOf(ctx, acct.Identity)
	if err != nil {
		return Plan{Target: target}, err
	}
	gp, err := env.Secondary.GasPrice(ctx)
	if err != nil {
		return Plan{Target: target}, err
	}

	_, amount := BridgeAmount(bal, BridgeGasLimit, gp, p.BridgeReserve, pct)
	if amount.IsZero() {
		return Plan{Target: target, Skip: "amount<=0"}, nil
	}

	contract := p.BridgeContract
	if contract == "" {
		contract = DefaultBridgeContract
	}
	extra := p.BridgeExtraData
	if extra == nil {
		extra = DefaultBridgeData
	}
	data, err := bridgeABI.Pack("depositETHTo", common.HexToAddress(acct.Identity), ClampL2Gas(p.BridgeL2Gas), extra)
	if err != nil {
		return Plan{Target: target}, err
	}
	return Plan{
		Target: target,
		Op: &chain.Op{
			Network:  chain.Secondary,
			To:       contract,
			Data:     data,
			Value:    amount,
			GasLimit: BridgeGasLimit,
			GasPrice: gp,
		},
	}, nil
}

// BridgeAmount computes
//
//	available = max(0, balance - gasLimit*gasPrice - reserve)
//	amount    = available * floor(percent*100) / 10000
//
// in integer arithmetic. percent is clamped to [0,100].
func BridgeAmount(balance *uint256.Int, gasLimit uint64, gasPrice, reserve *uint256.Int, percent float64) (available, amount *uint256.Int) {
	available = new(uint256.Int)
	amount = new(uint256.Int)
	if balance == nil {
		return available, amount
	}
	spend, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(gasLimit), orZero(gasPrice))
	if overflow {
		return available, amount
	}
	if _, overflow = spend.AddOverflow(spend, orZero(reserve)); overflow {
		return available, amount
	}
	if !balance.Gt(spend) {
		return available, amount
	}
	available.Sub(balance, spend)

	bps := uint256.NewInt(uint64(math.Floor(ClampPercent(percent) * 100)))
	// available < 2^256 and bps <= 10000, so the product can overflow only
	// for balances far beyond any real supply; fall back to divide-first.
	if _, overflow = amount.MulOverflow(available, bps); overflow {
		amount.Div(available, uint256.NewInt(10_000))
		amount.Mul(amount, bps)
		return available, amount
	}
	amount.Div(amount, uint256.NewInt(10_000))
	return available, amount
}

// ClampPercent bounds p to [0,100]; NaN becomes 0.
func ClampPercent(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// ClampL2Gas bounds the target gas parameter to the uint32 range.
func ClampL2Gas(v int64) uint32 {
	if v < 0 {
		return 0
	}
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
