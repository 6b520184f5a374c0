package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"OdysseyFarmer/internal/action"
	"OdysseyFarmer/internal/chain"
	"OdysseyFarmer/internal/guard"
	"OdysseyFarmer/internal/journal"
	"OdysseyFarmer/internal/model"
)

// ReasonInsufficientFunds is the skip reason when the guard rejects an op.
const ReasonInsufficientFunds = "insufficient funds"

// Balances is the read side of the balance oracle.
type Balances interface {
	Latest(identity string) (model.BalanceReading, bool)
}

// Executor runs one action for one account and journals every outcome.
// It is created per run and used only from the loop goroutine.
type Executor struct {
	env      *action.Env
	balances Balances
	guard    guard.Guard
	journal  *journal.Journal
	runID    string
	log      zerolog.Logger
}

func New(env *action.Env, balances Balances, g guard.Guard, j *journal.Journal, runID string, log zerolog.Logger) *Executor {
	return &Executor{
		env:      env,
		balances: balances,
		guard:    g,
		journal:  j,
		runID:    runID,
		log:      log.With().Str("component", "executor").Str("run", runID).Logger(),
	}
}

// Execute prepares, guards, submits and confirms a. The returned outcome is
// the last one journaled. A successful submission journals Sent and then
// Confirmed as two entries.
func (e *Executor) Execute(ctx context.Context, acct model.Account, a action.Action) (out model.Outcome) {
	target := ""
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Str("account", acct.Identity).Str("action", a.Name()).Interface("panic", r).Msg("action panicked")
			out = e.record(acct, a.Name(), target, model.Failed(fmt.Errorf("panic: %v", r)))
		}
	}()

	plan, err := a.Prepare(ctx, acct, e.env)
	target = plan.Target
	if err != nil {
		return e.record(acct, a.Name(), target, model.Failed(err))
	}
	if plan.Skip != "" {
		return e.record(acct, a.Name(), target, model.Skipped(plan.Skip))
	}
	if plan.Op == nil {
		return e.record(acct, a.Name(), target, model.Failed(errors.New("empty plan")))
	}
	op := *plan.Op

	if plan.Guarded && op.Network == chain.Primary {
		var reading *model.BalanceReading
		if r, ok := e.balances.Latest(acct.Identity); ok {
			reading = &r
		}
		if !e.guard.Allow(reading, op.GasLimit, op.GasPrice, op.Value) {
			return e.record(acct, a.Name(), target, model.Skipped(ReasonInsufficientFunds))
		}
	}

	client := e.client(op.Network)
	if client == nil {
		return e.record(acct, a.Name(), target, model.Failed(fmt.Errorf("%s network not configured", op.Network)))
	}

	hash, err := client.Send(ctx, acct, op)
	if err != nil {
		return e.record(acct, a.Name(), target, model.Failed(err))
	}
	e.record(acct, a.Name(), target, model.Sent(hash))

	if err := client.WaitConfirmed(ctx, hash); err != nil {
		return e.record(acct, a.Name(), target, model.Outcome{Kind: model.OutcomeFailed, Hash: hash, Err: err.Error()})
	}
	return e.record(acct, a.Name(), target, model.Confirmed(hash))
}

func (e *Executor) client(n chain.Network) chain.Client {
	if n == chain.Secondary {
		return e.env.Secondary
	}
	return e.env.Primary
}

func (e *Executor) record(acct model.Account, name, target string, out model.Outcome) model.Outcome {
	e.journal.Append(model.LogEntry{
		RunID:   e.runID,
		Account: acct.Identity,
		Action:  name,
		Target:  target,
		Outcome: out,
	})
	return out
}
