package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"OdysseyFarmer/internal/action"
	"OdysseyFarmer/internal/balance"
	"OdysseyFarmer/internal/chain"
	"OdysseyFarmer/internal/config"
	"OdysseyFarmer/internal/executor"
	"OdysseyFarmer/internal/guard"
	"OdysseyFarmer/internal/journal"
	"OdysseyFarmer/internal/keystore"
	"OdysseyFarmer/internal/model"
	"OdysseyFarmer/internal/pacing"
)

var (
	ErrNoKeys         = errors.New("no keys")
	ErrAlreadyRunning = errors.New("already running")
	ErrNoActions      = errors.New("no actions enabled")
)

const (
	DefaultIdleWait     = 300 * time.Millisecond
	DefaultProbeTimeout = 12 * time.Second
)

// KeySource supplies the raw secret lines, one per account.
type KeySource interface {
	Lines() ([]string, error)
}

// Options tune the controller. Zero values fall back to defaults.
type Options struct {
	IdleWait        time.Duration
	ProbeTimeout    time.Duration
	ExpectedChainID uint64
	// Defaults is the run config used by chat commands; nil uses config.DefaultRun.
	Defaults *config.Run
}

// Controller owns the Idle/Running lifecycle of the worker loop.
type Controller struct {
	primary   chain.Client
	secondary chain.Client
	keys      KeySource
	oracle    *balance.Oracle
	registry  *action.Registry
	journal   *journal.Journal
	opts      Options
	log       zerolog.Logger

	startMu sync.Mutex // serializes Start

	mu       sync.Mutex
	cur      *run // nil before the first start
	accounts []model.Account
	probe    model.Probe
}

// run is the state owned by one Running session.
type run struct {
	id       string
	cfg      config.Run
	resolved config.Resolved
	accounts []model.Account
	planner  *pacing.Planner
	exec     *executor.Executor
	rng      *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func (r *run) active() bool {
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

// New creates an idle Controller. secondary may be nil when no bridge source
// network is configured.
func New(primary, secondary chain.Client, keys KeySource, oracle *balance.Oracle, registry *action.Registry, j *journal.Journal, opts Options, log zerolog.Logger) *Controller {
	if opts.IdleWait <= 0 {
		opts.IdleWait = DefaultIdleWait
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.Defaults == nil {
		d := config.DefaultRun()
		opts.Defaults = &d
	}
	return &Controller{
		primary:   primary,
		secondary: secondary,
		keys:      keys,
		oracle:    oracle,
		registry:  registry,
		journal:   j,
		opts:      opts,
		log:       log.With().Str("component", "scheduler").Logger(),
		probe:     model.Probe{ExpectedChainID: opts.ExpectedChainID},
	}
}

// Start loads the accounts, applies cfg and launches the loop. It returns
// ErrAlreadyRunning while a previous loop has not exited yet, and ErrNoKeys
// when no usable account was loaded. Every refusal is journaled.
func (c *Controller) Start(ctx context.Context, cfg config.Run) error {
	c.startMu.Lock()
	defer c.startMu.Unlock()

	if c.Running() {
		c.note("", "start", model.Failed(ErrAlreadyRunning))
		return ErrAlreadyRunning
	}

	resolved, err := cfg.Resolve()
	if err != nil {
		c.note("", "start", model.Failed(err))
		return fmt.Errorf("invalid run config: %w", err)
	}

	lines, err := c.keys.Lines()
	if err != nil {
		c.note("", "import", model.Failed(err))
		return fmt.Errorf("read keys: %w", err)
	}
	loaded := keystore.Load(lines)
	for _, le := range loaded.Errors {
		c.note("", "import", model.Failed(le))
	}
	c.mu.Lock()
	c.accounts = loaded.Accounts
	c.mu.Unlock()
	if len(loaded.Accounts) == 0 {
		c.note("", "start", model.Failed(ErrNoKeys))
		return ErrNoKeys
	}

	if err := c.registry.Enable(resolved.Actions); err != nil {
		c.note("", "start", model.Failed(err))
		return fmt.Errorf("invalid run config: %w", err)
	}
	if len(c.registry.EnabledNames()) == 0 {
		c.note("", "start", model.Failed(ErrNoActions))
		return ErrNoActions
	}

	c.Probe(ctx)

	c.oracle.Reset()
	c.oracle.Refresh(ctx, loaded.Accounts)
	c.oracle.Start(loaded.Accounts)

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	id := uuid.NewString()
	env := &action.Env{
		Primary:   c.primary,
		Secondary: c.secondary,
		Rand:      rng,
		Params:    resolved.Params,
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &run{
		id:       id,
		cfg:      cfg,
		resolved: resolved,
		accounts: loaded.Accounts,
		planner:  pacing.New(resolved.Mode, resolved.Bounds, rng),
		exec:     executor.New(env, c.oracle, resolved.Guard, c.journal, id, c.log),
		rng:      rng,
		ctx:      loopCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	c.mu.Lock()
	c.cur = r
	c.mu.Unlock()

	c.note(id, "start", model.Info("start mode="+string(resolved.Mode)))
	c.log.Info().Str("run", id).Str("mode", string(resolved.Mode)).
		Int("accounts", len(r.accounts)).Strs("actions", c.registry.EnabledNames()).
		Uint64("seed", seed).Msg("worker started")

	go c.loop(r)
	return nil
}

// Stop requests the loop to end at its next check point. It does not wait
// for an in-flight action; use Wait for that. Stop is idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	r := c.cur
	c.mu.Unlock()
	if r == nil || !r.active() {
		return
	}
	if r.ctx.Err() == nil {
		c.log.Info().Str("run", r.id).Msg("stop requested")
	}
	r.cancel()
}

// Wait blocks until the current loop has exited or ctx ends.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	r := c.cur
	c.mu.Unlock()
	if r == nil {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether a loop goroutine is alive. A stopped loop still
// finishing its in-flight action counts as running.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur != nil && c.cur.active()
}

// SetActionEnabled toggles one action while running. Disabling every action
// makes the loop idle until one is enabled again.
func (c *Controller) SetActionEnabled(name string, enabled bool) error {
	return c.registry.SetEnabled(name, enabled)
}

func (c *Controller) loop(r *run) {
	defer func() {
		c.oracle.Stop()
		c.note(r.id, "stop", model.Info("stopped"))
		c.log.Info().Str("run", r.id).Msg("worker stopped")
		r.cancel()
		close(r.done)
	}()

	// Actions run detached from the stop signal so a stop never aborts a
	// submission or a confirmation wait.
	actCtx := context.WithoutCancel(r.ctx)
	cursor := 0
	for {
		if r.ctx.Err() != nil {
			return
		}
		a, ok := c.registry.Pick(r.rng)
		if !ok {
			if !sleep(r.ctx, c.opts.IdleWait) {
				return
			}
			continue
		}

		acct := r.accounts[cursor]
		r.exec.Execute(actCtx, acct, a)
		if r.ctx.Err() != nil {
			return
		}

		delay := r.planner.Next(acct.Identity)
		c.log.Debug().Str("account", acct.Identity).Str("action", a.Name()).Dur("delay", delay).Msg("step done")
		if !sleep(r.ctx, delay) {
			return
		}
		cursor = (cursor + 1) % len(r.accounts)
	}
}

// sleep waits d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Probe queries the primary network identity and records the diagnosis. A
// failure leaves a degraded diagnosis and never blocks the caller.
func (c *Controller) Probe(ctx context.Context) model.Probe {
	ctx, cancel := context.WithTimeout(ctx, c.opts.ProbeTimeout)
	defer cancel()

	p := model.Probe{ExpectedChainID: c.opts.ExpectedChainID}
	id, err := c.primary.ChainID(ctx)
	if err == nil {
		var block uint64
		block, err = c.primary.BlockNumber(ctx)
		if err == nil {
			p.ChainID, p.Block = id, block
			p.Diag = fmt.Sprintf("eth_chainId=%d block=%d", id, block)
		}
	}
	if err != nil {
		p.Diag = "probe error: " + err.Error()
		c.log.Warn().Err(err).Msg("rpc probe failed")
	} else if p.ExpectedChainID != 0 && !p.Matches() {
		c.log.Warn().Uint64("expected", p.ExpectedChainID).Uint64("detected", p.ChainID).Msg("chain id mismatch")
	}

	c.mu.Lock()
	c.probe = p
	c.mu.Unlock()
	return p
}

// Status returns a snapshot for hosts. It probes the network first if no
// chain id has been detected yet.
func (c *Controller) Status(ctx context.Context) model.Status {
	c.mu.Lock()
	needProbe := c.probe.ChainID == 0
	c.mu.Unlock()
	if needProbe {
		c.Probe(ctx)
	}

	c.mu.Lock()
	r := c.cur
	accounts := c.accounts
	probe := c.probe
	c.mu.Unlock()

	st := model.Status{
		RPC:     probe,
		Actions: c.registry.EnabledNames(),
		Logs:    c.journal.Recent(0),
	}
	var g guard.Guard
	var targets map[string]int
	if r != nil {
		st.Running = r.active()
		st.RunID = r.id
		st.Mode = r.resolved.Mode
		cfg := r.cfg
		st.Config = &cfg
		g = r.resolved.Guard
		if r.resolved.Mode == model.ModeCron {
			targets = r.planner.Targets()
		}
	}
	for _, reading := range c.oracle.Snapshot(accounts) {
		as := model.AccountStatus{
			Identity:    reading.Identity,
			BalanceWei:  "0",
			BalanceEth:  "0",
			Err:         reading.Err,
			Low:         g.Low(&reading),
			DailyTarget: targets[reading.Identity],
		}
		if reading.Amount != nil {
			as.BalanceWei = reading.Amount.Dec()
			as.BalanceEth = config.WeiToEther(reading.Amount).String()
		}
		st.Accounts = append(st.Accounts, as)
	}
	return st
}

func (c *Controller) note(runID, name string, out model.Outcome) {
	c.journal.Append(model.LogEntry{RunID: runID, Action: name, Outcome: out})
}
