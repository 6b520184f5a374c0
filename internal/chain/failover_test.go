package chain

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OdysseyFarmer/internal/model"
)

func TestFailoverFallsThroughOnReadErrors(t *testing.T) {
	bad := NewFake(1)
	bad.ProbeErr = ErrFake
	bad.PriceErr = ErrFake
	good := NewFake(11155111)
	good.Price = uint256.NewInt(7)

	f := NewFailover(bad, good)
	ctx := context.Background()

	id, err := f.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(11155111), id)

	// preferred client is now the healthy one
	price, err := f.GasPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), price.Uint64())

	_, err = f.Send(ctx, model.Account{Identity: "0xabc"}, Op{})
	require.NoError(t, err)
	assert.Len(t, good.SentOps(), 1)
	assert.Empty(t, bad.SentOps())
}

func TestFailoverJoinsErrors(t *testing.T) {
	a, b := NewFake(1), NewFake(2)
	a.PriceErr, b.PriceErr = ErrFake, ErrFake
	_, err := NewFailover(a, b).GasPrice(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFake)
}

func TestFakeBalanceErr(t *testing.T) {
	f := NewFake(1)
	f.SetBalance("0x1", uint256.NewInt(5))
	f.SetBalanceErr("0x1", ErrFake)
	_, err := f.BalanceOf(context.Background(), "0x1")
	assert.ErrorIs(t, err, ErrFake)

	f.SetBalanceErr("0x1", nil)
	b, err := f.BalanceOf(context.Background(), "0x1")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), b.Uint64())
}
