package balance

import (
	"context"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"OdysseyFarmer/internal/chain"
	"OdysseyFarmer/internal/logging"
	"OdysseyFarmer/internal/model"
)

const (
	DefaultPeriod  = 10 * time.Second
	DefaultTimeout = 12 * time.Second
)

// SnapshotFunc receives the readings after each completed refresh batch.
type SnapshotFunc func(readings []model.BalanceReading)

// Oracle caches the latest balance of every account. Readings are replaced
// whole, one account at a time, so readers always see a consistent value.
type Oracle struct {
	client  chain.Client
	log     zerolog.Logger
	period  time.Duration
	timeout time.Duration
	now     func() time.Time

	mu       sync.RWMutex
	readings map[string]model.BalanceReading

	cmu        sync.Mutex
	cron       *cron.Cron
	onSnapshot SnapshotFunc
}

// NewOracle creates an Oracle. Zero period/timeout fall back to defaults.
func NewOracle(client chain.Client, period, timeout time.Duration, log zerolog.Logger) *Oracle {
	if period <= 0 {
		period = DefaultPeriod
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Oracle{
		client:   client,
		log:      log.With().Str("component", "balance").Logger(),
		period:   period,
		timeout:  timeout,
		now:      time.Now,
		readings: map[string]model.BalanceReading{},
	}
}

// OnSnapshot registers a hook called after every refresh batch.
func (o *Oracle) OnSnapshot(fn SnapshotFunc) {
	o.cmu.Lock()
	o.onSnapshot = fn
	o.cmu.Unlock()
}

// Refresh queries every account in parallel and waits for all of them.
// A failed query keeps the previous amount and records the error.
func (o *Oracle) Refresh(ctx context.Context, accounts []model.Account) {
	g, gctx := errgroup.WithContext(ctx)
	for _, a := range accounts {
		id := a.Identity
		g.Go(func() error {
			qctx, cancel := context.WithTimeout(gctx, o.timeout)
			amount, err := o.client.BalanceOf(qctx, id)
			cancel()
			o.store(id, amount, err)
			return nil
		})
	}
	_ = g.Wait()

	o.cmu.Lock()
	hook := o.onSnapshot
	o.cmu.Unlock()
	if hook != nil {
		hook(o.Snapshot(accounts))
	}
}

func (o *Oracle) store(id string, amount *uint256.Int, err error) {
	now := o.now()
	o.mu.Lock()
	defer o.mu.Unlock()
	r := o.readings[id]
	r.Identity = id
	r.CheckedAt = now
	if err != nil {
		r.Err = err.Error()
		o.readings[id] = r
		o.log.Warn().Err(err).Str("account", id).Msg("balance query failed")
		return
	}
	r.Amount = amount
	r.Err = ""
	r.AsOf = now
	o.readings[id] = r
}

// Latest returns a copy of the cached reading.
func (o *Oracle) Latest(identity string) (model.BalanceReading, bool) {
	o.mu.RLock()
	r, ok := o.readings[identity]
	o.mu.RUnlock()
	if !ok {
		return model.BalanceReading{Identity: identity}, false
	}
	return r.Clone(), true
}

// Snapshot returns copies of the readings for accounts, in order. Accounts
// never queried get an empty reading.
func (o *Oracle) Snapshot(accounts []model.Account) []model.BalanceReading {
	out := make([]model.BalanceReading, 0, len(accounts))
	for _, a := range accounts {
		r, _ := o.Latest(a.Identity)
		out = append(out, r)
	}
	return out
}

// Reset drops every cached reading.
func (o *Oracle) Reset() {
	o.mu.Lock()
	o.readings = map[string]model.BalanceReading{}
	o.mu.Unlock()
}

// Start refreshes accounts every period until Stop. A refresh still running
// when the next tick fires is not stacked.
func (o *Oracle) Start(accounts []model.Account) {
	o.cmu.Lock()
	defer o.cmu.Unlock()
	if o.cron != nil {
		return
	}
	accts := append([]model.Account(nil), accounts...)
	cl := logging.CronLogger{Log: o.log}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	c.Schedule(cron.Every(o.period), cron.FuncJob(func() {
		o.Refresh(context.Background(), accts)
	}))
	c.Start()
	o.cron = c
	o.log.Info().Dur("every", o.period).Int("accounts", len(accts)).Msg("balance refresh started")
}

// Stop halts periodic refresh and waits for a running batch to finish.
func (o *Oracle) Stop() {
	o.cmu.Lock()
	c := o.cron
	o.cron = nil
	o.cmu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	o.log.Info().Msg("balance refresh stopped")
}
