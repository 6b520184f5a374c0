package action

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"OdysseyFarmer/internal/chain"
	"OdysseyFarmer/internal/model"
)

const (
	approveGas = 80_000
	mintGas    = 120_000
)

// MintContracts are the Odyssey test tokens that expose an open mint:
// EXP, EXP2 and ExperimentERC20.
var MintContracts = [3]string{
	"0x706Aa5C8e5cC2c67Da21ee220718f6f6B154E75c",
	"0x390dD40042a844F92b499069CFe983236d9fe204",
	"0x238c8CD93ee9F8c7Edf395548eF60c0d2e46665E",
}

const erc20JSON = `[
 {"type":"function","name":"approve","stateMutability":"nonpayable",
  "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
  "outputs":[{"name":"","type":"bool"}]},
 {"type":"function","name":"mint","stateMutability":"nonpayable",
  "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
  "outputs":[]}
]`

var erc20ABI = mustABI(erc20JSON)

func mustABI(s string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return a
}

var oneToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Approve sets a zero allowance for the account itself on a random token.
type Approve struct{}

func (Approve) Name() string { return NameApprove }

func (Approve) Prepare(ctx context.Context, acct model.Account, env *Env) (Plan, error) {
	tokens := env.Params.Tokens
	if len(tokens) == 0 {
		return Plan{Skip: "token list empty"}, nil
	}
	token := tokens[env.Rand.IntN(len(tokens))]
	data, err := erc20ABI.Pack("approve", common.HexToAddress(acct.Identity), big.NewInt(0))
	if err != nil {
		return Plan{Target: token}, err
	}
	gp, err := primaryGasPrice(ctx, env)
	if err != nil {
		return Plan{Target: token}, err
	}
	return Plan{
		Target:  token,
		Guarded: true,
		Op: &chain.Op{
			Network:  chain.Primary,
			To:       token,
			Data:     data,
			Value:    new(uint256.Int),
			GasLimit: approveGas,
			GasPrice: gp,
		},
	}, nil
}

// Mint mints 1 to 3 whole tokens to the account on a random mint contract.
type Mint struct{}

func (Mint) Name() string { return NameMint }

func (Mint) Prepare(ctx context.Context, acct model.Account, env *Env) (Plan, error) {
	target := MintContracts[env.Rand.IntN(len(MintContracts))]
	count := int64(1 + env.Rand.IntN(3))
	amount := new(big.Int).Mul(big.NewInt(count), oneToken)
	data, err := erc20ABI.Pack("mint", common.HexToAddress(acct.Identity), amount)
	if err != nil {
		return Plan{Target: target}, err
	}
	gp, err := primaryGasPrice(ctx, env)
	if err != nil {
		return Plan{Target: target}, err
	}
	return Plan{
		Target:  target,
		Guarded: true,
		Op: &chain.Op{
			Network:  chain.Primary,
			To:       target,
			Data:     data,
			Value:    new(uint256.Int),
			GasLimit: mintGas,
			GasPrice: gp,
		},
	}, nil
}
