package chain

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/holiman/uint256"

	"OdysseyFarmer/internal/model"
)

// Failover tries its clients in order for read calls, starting from the last
// one that answered. Writes go to that preferred client only, so a broadcast
// is never repeated on another endpoint.
type Failover struct {
	clients []Client
	cur     atomic.Int32
}

// NewFailover panics on an empty client list.
func NewFailover(clients ...Client) *Failover {
	if len(clients) == 0 {
		panic("chain: failover needs at least one client")
	}
	return &Failover{clients: clients}
}

func (f *Failover) preferred() Client { return f.clients[int(f.cur.Load())%len(f.clients)] }

func (f *Failover) each(ctx context.Context, fn func(Client) error) error {
	start := int(f.cur.Load())
	var errs []error
	for i := 0; i < len(f.clients); i++ {
		idx := (start + i) % len(f.clients)
		err := fn(f.clients[idx])
		if err == nil {
			f.cur.Store(int32(idx))
			return nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return errors.Join(errs...)
}

func (f *Failover) ChainID(ctx context.Context) (uint64, error) {
	var out uint64
	err := f.each(ctx, func(c Client) (err error) {
		out, err = c.ChainID(ctx)
		return err
	})
	return out, err
}

func (f *Failover) BlockNumber(ctx context.Context) (uint64, error) {
	var out uint64
	err := f.each(ctx, func(c Client) (err error) {
		out, err = c.BlockNumber(ctx)
		return err
	})
	return out, err
}

func (f *Failover) BalanceOf(ctx context.Context, identity string) (*uint256.Int, error) {
	var out *uint256.Int
	err := f.each(ctx, func(c Client) (err error) {
		out, err = c.BalanceOf(ctx, identity)
		return err
	})
	return out, err
}

func (f *Failover) GasPrice(ctx context.Context) (*uint256.Int, error) {
	var out *uint256.Int
	err := f.each(ctx, func(c Client) (err error) {
		out, err = c.GasPrice(ctx)
		return err
	})
	return out, err
}

func (f *Failover) Send(ctx context.Context, acct model.Account, op Op) (string, error) {
	return f.preferred().Send(ctx, acct, op)
}

func (f *Failover) WaitConfirmed(ctx context.Context, hash string) error {
	return f.preferred().WaitConfirmed(ctx, hash)
}
