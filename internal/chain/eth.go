package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"

	"OdysseyFarmer/internal/model"
)

// Options tune the RPC adapter.
type Options struct {
	CallTimeout  time.Duration // per remote call
	Retries      int           // extra attempts for read calls
	RetryDelay   time.Duration
	PollInterval time.Duration // receipt polling
	// ConfirmTimeout bounds WaitConfirmed as a whole, independent of the
	// caller's context.
	ConfirmTimeout time.Duration
}

// DefaultOptions mirror the viem transport settings the farmer has always used.
func DefaultOptions() Options {
	return Options{
		CallTimeout:    12 * time.Second,
		Retries:        2,
		RetryDelay:     time.Second,
		PollInterval:   2 * time.Second,
		ConfirmTimeout: 3 * time.Minute,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.CallTimeout <= 0 {
		o.CallTimeout = d.CallTimeout
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = d.RetryDelay
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.ConfirmTimeout <= 0 {
		o.ConfirmTimeout = d.ConfirmTimeout
	}
	return o
}

// EthClient implements Client over go-ethereum's ethclient.
type EthClient struct {
	URL  string
	rpc  *ethclient.Client
	opts Options
}

// DialEth connects to a single JSON-RPC endpoint.
func DialEth(ctx context.Context, url string, opts Options) (*EthClient, error) {
	rc, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &EthClient{URL: url, rpc: rc, opts: opts.withDefaults()}, nil
}

// Dial connects to every url and returns a Failover over them. Endpoints that
// fail to dial are skipped; at least one must succeed.
func Dial(ctx context.Context, urls []string, opts Options) (Client, error) {
	var clients []Client
	var errs []error
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		c, err := DialEth(ctx, u, opts)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		clients = append(clients, c)
	}
	if len(clients) == 0 {
		if len(errs) == 0 {
			return nil, errors.New("no rpc urls configured")
		}
		return nil, errors.Join(errs...)
	}
	if len(clients) == 1 {
		return clients[0], nil
	}
	return NewFailover(clients...), nil
}

// Close releases the underlying connection.
func (c *EthClient) Close() { c.rpc.Close() }

func (c *EthClient) ChainID(ctx context.Context) (uint64, error) {
	var id uint64
	err := c.read(ctx, "eth_chainId", func(ctx context.Context) error {
		v, err := c.rpc.ChainID(ctx)
		if err != nil {
			return err
		}
		id = v.Uint64()
		return nil
	})
	return id, err
}

func (c *EthClient) BlockNumber(ctx context.Context) (uint64, error) {
	var n uint64
	err := c.read(ctx, "eth_blockNumber", func(ctx context.Context) error {
		v, err := c.rpc.BlockNumber(ctx)
		n = v
		return err
	})
	return n, err
}

func (c *EthClient) BalanceOf(ctx context.Context, identity string) (*uint256.Int, error) {
	if !common.IsHexAddress(identity) {
		return nil, fmt.Errorf("invalid address %q", identity)
	}
	var out *uint256.Int
	err := c.read(ctx, "eth_getBalance", func(ctx context.Context) error {
		v, err := c.rpc.BalanceAt(ctx, common.HexToAddress(identity), nil)
		if err != nil {
			return err
		}
		out, err = toUint256(v)
		return err
	})
	return out, err
}

func (c *EthClient) GasPrice(ctx context.Context) (*uint256.Int, error) {
	var out *uint256.Int
	err := c.read(ctx, "eth_gasPrice", func(ctx context.Context) error {
		v, err := c.rpc.SuggestGasPrice(ctx)
		if err != nil {
			return err
		}
		out, err = toUint256(v)
		return err
	})
	return out, err
}

// Send signs a legacy transaction for the node's chain id. The nonce is the
// node's pending nonce; replay handling beyond that is left to the node.
func (c *EthClient) Send(ctx context.Context, acct model.Account, op Op) (string, error) {
	key := acct.Key()
	if key == nil {
		return "", errors.New("account has no signing key")
	}
	chainID, err := c.ChainID(ctx)
	if err != nil {
		return "", err
	}
	from := crypto.PubkeyToAddress(key.PublicKey)

	cctx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()
	nonce, err := c.rpc.PendingNonceAt(cctx, from)
	if err != nil {
		return "", fmt.Errorf("eth_getTransactionCount: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: bigOrZero(op.GasPrice),
		Gas:      op.GasLimit,
		To:       toAddress(op.To),
		Value:    bigOrZero(op.Value),
		Data:     op.Data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(new(big.Int).SetUint64(chainID)), key)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	if err := c.rpc.SendTransaction(cctx, signed); err != nil {
		return "", fmt.Errorf("eth_sendRawTransaction: %w", err)
	}
	return signed.Hash().Hex(), nil
}

// WaitConfirmed polls for the receipt until it appears, ctx ends or
// ConfirmTimeout elapses.
func (c *EthClient) WaitConfirmed(ctx context.Context, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.ConfirmTimeout)
	defer cancel()
	h := common.HexToHash(hash)
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()
	for {
		cctx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
		rcpt, err := c.rpc.TransactionReceipt(cctx, h)
		cancel()
		switch {
		case err == nil:
			if rcpt.Status != types.ReceiptStatusSuccessful {
				return ErrReverted
			}
			return nil
		case errors.Is(err, ethereum.NotFound):
		default:
			if ctx.Err() != nil {
				return fmt.Errorf("wait %s: %w", hash, ctx.Err())
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait %s: %w", hash, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *EthClient) read(ctx context.Context, method string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= c.opts.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: %w", method, ctx.Err())
			case <-time.After(c.opts.RetryDelay):
			}
		}
		cctx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
		lastErr = fn(cctx)
		cancel()
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("%s: %w", method, lastErr)
}

func toUint256(v *big.Int) (*uint256.Int, error) {
	if v == nil || v.Sign() < 0 {
		return nil, errors.New("invalid quantity")
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, errors.New("quantity overflows 256 bits")
	}
	return out, nil
}

func bigOrZero(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}

func toAddress(s string) *common.Address {
	if s == "" {
		return nil
	}
	a := common.HexToAddress(s)
	return &a
}
