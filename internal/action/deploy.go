package action

import (
	"context"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"OdysseyFarmer/internal/chain"
	"OdysseyFarmer/internal/model"
)

const deployGas = 60_000

// deployPayload creates a one-byte contract.
var deployPayload = hexutil.MustDecode("0x6001600c60003960016000f300")

// Deploy submits a minimal contract creation.
type Deploy struct{}

func (Deploy) Name() string { return NameDeploy }

func (Deploy) Prepare(ctx context.Context, acct model.Account, env *Env) (Plan, error) {
	gp, err := primaryGasPrice(ctx, env)
	if err != nil {
		return Plan{}, err
	}
	return Plan{
		Guarded: true,
		Op: &chain.Op{
			Network:  chain.Primary,
			Data:     append([]byte(nil), deployPayload...),
			Value:    new(uint256.Int),
			GasLimit: deployGas,
			GasPrice: gp,
		},
	}, nil
}
