package action

import (
	"context"
	"math/rand/v2"

	"github.com/holiman/uint256"

	"OdysseyFarmer/internal/chain"
	"OdysseyFarmer/internal/model"
)

// Action names recognized in the enabled-actions config.
const (
	NamePing    = "ping"
	NameApprove = "approve"
	NameMint    = "mint"
	NameDeploy  = "deploy"
	NameBridge  = "bridge"
)

// Params are the run-time parameters actions read.
type Params struct {
	Tokens         []string
	GasPriceCapWei *uint256.Int // nil disables the cap

	BridgeContract  string
	BridgePercent   float64
	BridgeReserve   *uint256.Int
	BridgeL2Gas     int64
	BridgeExtraData []byte
}

// Env is what an action may consult. Rand is owned by the loop goroutine.
type Env struct {
	Primary   chain.Client
	Secondary chain.Client
	Rand      *rand.Rand
	Params    Params
}

// Plan is the result of preparing an action: either an Op to submit or a
// reason to skip. Target is the per-call detail recorded in the log.
type Plan struct {
	Op     *chain.Op
	Skip   string
	Target string
	// Guarded ops are checked against the cached primary balance first.
	Guarded bool
}

// Action is one named remote operation.
type Action interface {
	Name() string
	Prepare(ctx context.Context, acct model.Account, env *Env) (Plan, error)
}

// CapGasPrice returns min(network, cap). A nil cap leaves the price alone;
// a zero cap prices at 0.
func CapGasPrice(network, capWei *uint256.Int) *uint256.Int {
	if capWei == nil || network.Lt(capWei) {
		return new(uint256.Int).Set(network)
	}
	return new(uint256.Int).Set(capWei)
}

func primaryGasPrice(ctx context.Context, env *Env) (*uint256.Int, error) {
	gp, err := env.Primary.GasPrice(ctx)
	if err != nil {
		return nil, err
	}
	return CapGasPrice(gp, env.Params.GasPriceCapWei), nil
}
