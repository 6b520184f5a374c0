package action

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// Descriptor is one registry record.
type Descriptor struct {
	Name    string
	Enabled bool
	Impl    Action
}

// Registry is an ordered set of actions, each independently enabled.
type Registry struct {
	mu    sync.RWMutex
	descs []Descriptor
}

// NewRegistry registers actions in order, all disabled.
func NewRegistry(actions ...Action) *Registry {
	r := &Registry{}
	for _, a := range actions {
		r.descs = append(r.descs, Descriptor{Name: a.Name(), Impl: a})
	}
	return r
}

// Default registers the five built-in actions.
func Default() *Registry {
	return NewRegistry(Ping{}, Approve{}, Mint{}, Deploy{}, Bridge{})
}

// SetEnabled toggles one action.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.descs {
		if r.descs[i].Name == name {
			r.descs[i].Enabled = enabled
			return nil
		}
	}
	return fmt.Errorf("unknown action %q", name)
}

// Enable enables exactly names and disables the rest. Unknown names are
// rejected before anything changes.
func (r *Registry) Enable(names []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if !r.hasLocked(n) {
			return fmt.Errorf("unknown action %q", n)
		}
		want[n] = true
	}
	for i := range r.descs {
		r.descs[i].Enabled = want[r.descs[i].Name]
	}
	return nil
}

func (r *Registry) hasLocked(name string) bool {
	for _, d := range r.descs {
		if d.Name == name {
			return true
		}
	}
	return false
}

// Descriptors returns a copy of the records.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Descriptor(nil), r.descs...)
}

// EnabledNames lists enabled actions in registration order.
func (r *Registry) EnabledNames() []string {
	return enabledNames(r.Descriptors())
}

// Pick returns a uniformly random enabled action, or false when none is enabled.
func (r *Registry) Pick(rng *rand.Rand) (Action, bool) {
	return pick(r.Descriptors(), rng)
}

func enabledNames(descs []Descriptor) []string {
	var out []string
	for _, d := range descs {
		if d.Enabled {
			out = append(out, d.Name)
		}
	}
	return out
}

func pick(descs []Descriptor, rng *rand.Rand) (Action, bool) {
	var pool []Action
	for _, d := range descs {
		if d.Enabled {
			pool = append(pool, d.Impl)
		}
	}
	if len(pool) == 0 {
		return nil, false
	}
	return pool[rng.IntN(len(pool))], true
}
