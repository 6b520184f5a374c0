package pacing

import (
	"math/rand/v2"
	"sync"
	"time"

	"OdysseyFarmer/internal/model"
)

const secondsPerDay = 86400

// MaxDelaySec is the longest pause the Planner will produce.
const MaxDelaySec = 30 * secondsPerDay

// Bounds are the raw timing settings; Planner normalizes them.
type Bounds struct {
	MinDelaySec    float64
	MaxDelaySec    float64
	DailyTargetMin int
	DailyTargetMax int
}

// Planner computes the pause after each step. It memoizes one daily target
// per account under Cron mode for the life of the Planner.
type Planner struct {
	mu      sync.Mutex
	mode    model.Mode
	bounds  Bounds
	rng     *rand.Rand
	targets map[string]int
}

// New creates a Planner drawing from rng.
func New(mode model.Mode, b Bounds, rng *rand.Rand) *Planner {
	return &Planner{mode: mode, bounds: b, rng: rng, targets: map[string]int{}}
}

// Next returns the delay to apply after a step for identity.
func (p *Planner) Next(identity string) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode == model.ModeCron {
		return p.cronDelay(identity)
	}
	return p.infinityDelay()
}

// InfinityRange returns the normalized [min,max] delay in seconds: both
// clamped to [1, MaxDelaySec] and swapped if inverted.
func InfinityRange(minSec, maxSec float64) (float64, float64) {
	a, b := clampDelay(minSec), clampDelay(maxSec)
	if a > b {
		a, b = b, a
	}
	return a, b
}

// TargetRange returns the normalized [min,max] daily target.
func TargetRange(minT, maxT int) (int, int) {
	a, b := max(1, minT), max(1, maxT)
	if a > b {
		a, b = b, a
	}
	return a, b
}

func (p *Planner) infinityDelay() time.Duration {
	a, b := InfinityRange(p.bounds.MinDelaySec, p.bounds.MaxDelaySec)
	return seconds(p.uniform(a, b))
}

// Target returns the memoized daily target for identity, drawing it on first use.
func (p *Planner) Target(identity string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.targetLocked(identity)
}

func (p *Planner) targetLocked(identity string) int {
	if t, ok := p.targets[identity]; ok {
		return t
	}
	a, b := TargetRange(p.bounds.DailyTargetMin, p.bounds.DailyTargetMax)
	t := a + p.rng.IntN(b-a+1)
	p.targets[identity] = t
	return t
}

// Targets returns a copy of every target drawn so far.
func (p *Planner) Targets() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int, len(p.targets))
	for k, v := range p.targets {
		out[k] = v
	}
	return out
}

// Base is the mean spacing in seconds for a daily target.
func Base(target int) float64 { return float64(secondsPerDay) / float64(target) }

func (p *Planner) cronDelay(identity string) time.Duration {
	base := Base(p.targetLocked(identity))
	return seconds(p.uniform(0.5*base, 1.5*base))
}

func (p *Planner) uniform(a, b float64) float64 {
	if b <= a {
		return a
	}
	return a + p.rng.Float64()*(b-a)
}

func clampDelay(s float64) float64 { return min(max(1, s), MaxDelaySec) }

// seconds converts s to a Duration, saturating at MaxDelaySec so large
// inputs never wrap negative.
func seconds(s float64) time.Duration {
	return time.Duration(min(s, MaxDelaySec) * float64(time.Second))
}
