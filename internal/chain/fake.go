package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"OdysseyFarmer/internal/model"
)

// Fake is an in-memory Client for tests and dry runs.
type Fake struct {
	mu sync.Mutex

	ID       uint64
	Block    uint64
	Price    *uint256.Int
	Balances map[string]*uint256.Int

	ProbeErr   error
	PriceErr   error
	BalanceErr map[string]error
	SendErr    error
	ConfirmErr error

	// Confirm, when set, is received from before WaitConfirmed returns.
	Confirm chan struct{}
	// OnSend is called after an op is recorded.
	OnSend func(acct model.Account, op Op)

	Sent []SentOp
	seq  int
}

// SentOp is one recorded submission.
type SentOp struct {
	Account string
	Op      Op
	Hash    string
}

// NewFake returns a Fake with gas price 1 wei.
func NewFake(chainID uint64) *Fake {
	return &Fake{
		ID:         chainID,
		Price:      uint256.NewInt(1),
		Balances:   map[string]*uint256.Int{},
		BalanceErr: map[string]error{},
	}
}

// SetBalance sets an account balance.
func (f *Fake) SetBalance(identity string, amount *uint256.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Balances[identity] = amount
}

// SetBalanceErr makes BalanceOf fail for identity until cleared with nil.
func (f *Fake) SetBalanceErr(identity string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.BalanceErr[identity] = err
}

// SentOps returns a copy of the recorded submissions.
func (f *Fake) SentOps() []SentOp {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentOp(nil), f.Sent...)
}

func (f *Fake) ChainID(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ProbeErr != nil {
		return 0, f.ProbeErr
	}
	return f.ID, nil
}

func (f *Fake) BlockNumber(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ProbeErr != nil {
		return 0, f.ProbeErr
	}
	return f.Block, nil
}

func (f *Fake) BalanceOf(ctx context.Context, identity string) (*uint256.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.BalanceErr[identity]; err != nil {
		return nil, err
	}
	b, ok := f.Balances[identity]
	if !ok {
		return uint256.NewInt(0), nil
	}
	return new(uint256.Int).Set(b), nil
}

func (f *Fake) GasPrice(ctx context.Context) (*uint256.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PriceErr != nil {
		return nil, f.PriceErr
	}
	return new(uint256.Int).Set(f.Price), nil
}

func (f *Fake) Send(ctx context.Context, acct model.Account, op Op) (string, error) {
	f.mu.Lock()
	if f.SendErr != nil {
		err := f.SendErr
		f.mu.Unlock()
		return "", err
	}
	f.seq++
	hash := fmt.Sprintf("0x%064x", f.seq)
	f.Sent = append(f.Sent, SentOp{Account: acct.Identity, Op: op, Hash: hash})
	hook := f.OnSend
	f.mu.Unlock()
	if hook != nil {
		hook(acct, op)
	}
	return hash, nil
}

func (f *Fake) WaitConfirmed(ctx context.Context, hash string) error {
	f.mu.Lock()
	ch, err := f.Confirm, f.ConfirmErr
	f.mu.Unlock()
	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

var _ Client = (*Fake)(nil)
var _ Client = (*EthClient)(nil)
var _ Client = (*Failover)(nil)

// ErrFake is a convenience error for tests.
var ErrFake = errors.New("fake rpc failure")
