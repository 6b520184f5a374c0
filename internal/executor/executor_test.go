package executor

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OdysseyFarmer/internal/action"
	"OdysseyFarmer/internal/chain"
	"OdysseyFarmer/internal/guard"
	"OdysseyFarmer/internal/journal"
	"OdysseyFarmer/internal/model"
)

const self = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

var acct = model.Account{Identity: self}

type staticBalances map[string]model.BalanceReading

func (s staticBalances) Latest(id string) (model.BalanceReading, bool) {
	r, ok := s[id]
	return r, ok
}

func wei(v uint64) *uint256.Int { return uint256.NewInt(v) }

type fixture struct {
	exec      *Executor
	primary   *chain.Fake
	secondary *chain.Fake
	journal   *journal.Journal
	balances  staticBalances
}

func newFixture(g guard.Guard) *fixture {
	primary := chain.NewFake(911867)
	secondary := chain.NewFake(11155111)
	env := &action.Env{
		Primary:   primary,
		Secondary: secondary,
		Rand:      rand.New(rand.NewPCG(1, 1)),
		Params:    action.Params{BridgePercent: 10, BridgeL2Gas: action.DefaultBridgeL2Gas},
	}
	j := journal.New(0, nil, zerolog.Nop())
	b := staticBalances{}
	return &fixture{
		exec:      New(env, b, g, j, "run-1", zerolog.Nop()),
		primary:   primary,
		secondary: secondary,
		journal:   j,
		balances:  b,
	}
}

func kinds(entries []model.LogEntry) []model.OutcomeKind {
	out := make([]model.OutcomeKind, len(entries))
	for i, e := range entries {
		out[i] = e.Outcome.Kind
	}
	return out
}

func TestExecuteSendsAndConfirms(t *testing.T) {
	f := newFixture(guard.Guard{Enabled: true})
	f.balances[self] = model.BalanceReading{Identity: self, Amount: wei(30_000)}

	out := f.exec.Execute(context.Background(), acct, action.Ping{})
	assert.Equal(t, model.OutcomeConfirmed, out.Kind)
	require.Len(t, f.primary.SentOps(), 1)

	entries := f.journal.Recent(0)
	assert.Equal(t, []model.OutcomeKind{model.OutcomeConfirmed, model.OutcomeSent}, kinds(entries))
	assert.Equal(t, entries[0].Outcome.Hash, entries[1].Outcome.Hash)
	assert.Equal(t, "run-1", entries[0].RunID)
	assert.Equal(t, action.NamePing, entries[0].Action)
}

func TestExecuteGuardSkipsWithoutSubmitting(t *testing.T) {
	f := newFixture(guard.Guard{Enabled: true})
	f.balances[self] = model.BalanceReading{Identity: self, Amount: wei(29_999)}

	out := f.exec.Execute(context.Background(), acct, action.Ping{})
	assert.Equal(t, model.Skipped(ReasonInsufficientFunds), out)
	assert.Empty(t, f.primary.SentOps())
	assert.Equal(t, 1, f.journal.Len())
}

func TestExecuteGuardSkipsOnAbsentOrErroredReading(t *testing.T) {
	f := newFixture(guard.Guard{Enabled: true})
	out := f.exec.Execute(context.Background(), acct, action.Ping{})
	assert.Equal(t, model.OutcomeSkipped, out.Kind)

	f.balances[self] = model.BalanceReading{Identity: self, Amount: wei(1 << 40), Err: "timeout"}
	out = f.exec.Execute(context.Background(), acct, action.Ping{})
	assert.Equal(t, model.OutcomeSkipped, out.Kind)
	assert.Empty(t, f.primary.SentOps())
}

func TestExecuteDisabledGuardAllowsEverything(t *testing.T) {
	f := newFixture(guard.Guard{Enabled: false})
	out := f.exec.Execute(context.Background(), acct, action.Ping{})
	assert.Equal(t, model.OutcomeConfirmed, out.Kind)
	assert.Len(t, f.primary.SentOps(), 1)
}

func TestExecuteSendFailure(t *testing.T) {
	f := newFixture(guard.Guard{})
	f.primary.SendErr = errors.New("nonce too low")

	out := f.exec.Execute(context.Background(), acct, action.Deploy{})
	assert.Equal(t, model.Failed(errors.New("nonce too low")), out)
	assert.Equal(t, []model.OutcomeKind{model.OutcomeFailed}, kinds(f.journal.Recent(0)))
}

func TestExecuteRevertAfterSent(t *testing.T) {
	f := newFixture(guard.Guard{})
	f.primary.ConfirmErr = chain.ErrReverted

	out := f.exec.Execute(context.Background(), acct, action.Ping{})
	assert.Equal(t, model.OutcomeFailed, out.Kind)
	assert.NotEmpty(t, out.Hash)
	assert.Equal(t, chain.ErrReverted.Error(), out.Err)
	assert.Equal(t, []model.OutcomeKind{model.OutcomeFailed, model.OutcomeSent}, kinds(f.journal.Recent(0)))
}

func TestExecutePrepareErrorIsFailed(t *testing.T) {
	f := newFixture(guard.Guard{})
	f.primary.PriceErr = chain.ErrFake

	out := f.exec.Execute(context.Background(), acct, action.Mint{})
	assert.Equal(t, model.OutcomeFailed, out.Kind)
	assert.Equal(t, chain.ErrFake.Error(), out.Err)
}

func TestExecuteBridgeUsesSecondaryAndBypassesGuard(t *testing.T) {
	f := newFixture(guard.Guard{Enabled: true})
	f.secondary.SetBalance(self, wei(1_000_000_000_000_000_000))

	out := f.exec.Execute(context.Background(), acct, action.Bridge{})
	assert.Equal(t, model.OutcomeConfirmed, out.Kind)
	assert.Empty(t, f.primary.SentOps())
	sent := f.secondary.SentOps()
	require.Len(t, sent, 1)
	assert.Equal(t, action.DefaultBridgeContract, sent[0].Op.To)
	assert.Equal(t, "10.00%", f.journal.Recent(1)[0].Target)
}

func TestExecuteBridgeSkip(t *testing.T) {
	f := newFixture(guard.Guard{Enabled: true})
	out := f.exec.Execute(context.Background(), acct, action.Bridge{})
	assert.Equal(t, model.Skipped("amount<=0"), out)
}

type panicky struct{}

func (panicky) Name() string { return "boom" }
func (panicky) Prepare(context.Context, model.Account, *action.Env) (action.Plan, error) {
	panic("kaboom")
}

func TestExecuteRecoversPanics(t *testing.T) {
	f := newFixture(guard.Guard{})
	out := f.exec.Execute(context.Background(), acct, panicky{})
	assert.Equal(t, model.OutcomeFailed, out.Kind)
	assert.Contains(t, out.Err, "kaboom")
	assert.Equal(t, 1, f.journal.Len())
}

func TestExecuteConfirmHonorsContext(t *testing.T) {
	f := newFixture(guard.Guard{})
	f.primary.Confirm = make(chan struct{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out := f.exec.Execute(ctx, acct, action.Ping{})
	assert.Equal(t, model.OutcomeFailed, out.Kind)
	assert.Equal(t, context.DeadlineExceeded.Error(), out.Err)
}
