package chain

import (
	"context"
	"errors"

	"github.com/holiman/uint256"

	"OdysseyFarmer/internal/model"
)

// Network selects which client an Op is submitted to.
type Network int

const (
	Primary Network = iota
	Secondary
)

func (n Network) String() string {
	if n == Secondary {
		return "secondary"
	}
	return "primary"
}

// Op is a prepared, unsigned transaction. To is empty for contract creation.
type Op struct {
	Network  Network
	To       string
	Data     []byte
	Value    *uint256.Int
	GasLimit uint64
	GasPrice *uint256.Int
}

// ErrReverted is returned by WaitConfirmed when the receipt status is failure.
var ErrReverted = errors.New("transaction reverted")

// Client is the remote network collaborator. Every call may fail or time out.
type Client interface {
	ChainID(ctx context.Context) (uint64, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceOf(ctx context.Context, identity string) (*uint256.Int, error)
	GasPrice(ctx context.Context) (*uint256.Int, error)
	// Send signs op with the account key and broadcasts it.
	Send(ctx context.Context, acct model.Account, op Op) (string, error)
	// WaitConfirmed blocks until hash is mined or ctx ends.
	WaitConfirmed(ctx context.Context, hash string) error
}
