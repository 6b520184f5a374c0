package action

import (
	"context"

	"github.com/holiman/uint256"

	"OdysseyFarmer/internal/chain"
	"OdysseyFarmer/internal/model"
)

const pingGas = 30_000

// Ping sends a zero-value transfer to the account itself.
type Ping struct{}

func (Ping) Name() string { return NamePing }

func (Ping) Prepare(ctx context.Context, acct model.Account, env *Env) (Plan, error) {
	gp, err := primaryGasPrice(ctx, env)
	if err != nil {
		return Plan{}, err
	}
	return Plan{
		Guarded: true,
		Op: &chain.Op{
			Network:  chain.Primary,
			To:       acct.Identity,
			Value:    new(uint256.Int),
			GasLimit: pingGas,
			GasPrice: gp,
		},
	}, nil
}
