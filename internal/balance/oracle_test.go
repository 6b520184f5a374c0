package balance

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"OdysseyFarmer/internal/chain"
	"OdysseyFarmer/internal/model"
)

func accounts(ids ...string) []model.Account {
	out := make([]model.Account, len(ids))
	for i, id := range ids {
		out[i] = model.Account{Identity: id}
	}
	return out
}

func TestRefreshStoresPerAccount(t *testing.T) {
	fake := chain.NewFake(1)
	fake.SetBalance("0xa", uint256.NewInt(100))
	fake.SetBalance("0xb", uint256.NewInt(200))
	fake.SetBalanceErr("0xc", chain.ErrFake)

	o := NewOracle(fake, 0, time.Second, zerolog.Nop())
	o.Refresh(context.Background(), accounts("0xa", "0xb", "0xc"))

	a, ok := o.Latest("0xa")
	require.True(t, ok)
	assert.True(t, a.Valid())
	assert.Equal(t, uint64(100), a.Amount.Uint64())

	c, ok := o.Latest("0xc")
	require.True(t, ok)
	assert.False(t, c.Valid())
	assert.Nil(t, c.Amount)
	assert.Contains(t, c.Err, "fake rpc failure")

	_, ok = o.Latest("0xmissing")
	assert.False(t, ok)
}

func TestFailedRefreshKeepsLastAmount(t *testing.T) {
	fake := chain.NewFake(1)
	fake.SetBalance("0xa", uint256.NewInt(42))
	o := NewOracle(fake, 0, time.Second, zerolog.Nop())
	ctx := context.Background()

	o.Refresh(ctx, accounts("0xa"))
	first, _ := o.Latest("0xa")

	fake.SetBalanceErr("0xa", chain.ErrFake)
	o.Refresh(ctx, accounts("0xa"))

	r, _ := o.Latest("0xa")
	require.NotNil(t, r.Amount, "amount must never be zeroed")
	assert.Equal(t, uint64(42), r.Amount.Uint64())
	assert.NotEmpty(t, r.Err)
	assert.False(t, r.Valid())
	assert.Equal(t, first.AsOf, r.AsOf)

	fake.SetBalanceErr("0xa", nil)
	o.Refresh(ctx, accounts("0xa"))
	r, _ = o.Latest("0xa")
	assert.True(t, r.Valid())
}

func TestLatestReturnsCopy(t *testing.T) {
	fake := chain.NewFake(1)
	fake.SetBalance("0xa", uint256.NewInt(7))
	o := NewOracle(fake, 0, time.Second, zerolog.Nop())
	o.Refresh(context.Background(), accounts("0xa"))

	r, _ := o.Latest("0xa")
	r.Amount.SetUint64(0)

	again, _ := o.Latest("0xa")
	assert.Equal(t, uint64(7), again.Amount.Uint64())
}

func TestSnapshotHookAndOrder(t *testing.T) {
	fake := chain.NewFake(1)
	o := NewOracle(fake, 0, time.Second, zerolog.Nop())
	var got []model.BalanceReading
	o.OnSnapshot(func(rs []model.BalanceReading) { got = rs })
	o.Refresh(context.Background(), accounts("0xb", "0xa"))

	require.Len(t, got, 2)
	assert.Equal(t, "0xb", got[0].Identity)
	assert.Equal(t, "0xa", got[1].Identity)
}

func TestStartStopRunsPeriodically(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls atomic.Int32
	fake := chain.NewFake(1)
	o := NewOracle(fake, time.Second, time.Second, zerolog.Nop())
	o.OnSnapshot(func([]model.BalanceReading) { calls.Add(1) })

	o.Start(accounts("0xa"))
	o.Start(accounts("0xa")) // second start is a no-op
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	o.Stop()
	o.Stop()

	n := calls.Load()
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, n, calls.Load(), "no refresh after Stop")
}
