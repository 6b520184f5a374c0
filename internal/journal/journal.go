package journal

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"OdysseyFarmer/internal/model"
	"OdysseyFarmer/internal/recorder"
)

// DefaultCapacity is the number of entries kept in memory.
const DefaultCapacity = 200

// Hook observes every appended entry.
type Hook func(model.LogEntry)

// Journal is a bounded, newest-first audit log. Appends beyond capacity
// silently evict the oldest entry. Every entry is also forwarded to the
// recorder and hooks; their failures never reach the caller.
type Journal struct {
	mu    sync.RWMutex
	buf   []model.LogEntry // ring, oldest at head
	head  int
	size  int
	rec   recorder.Recorder
	hooks []Hook
	log   zerolog.Logger
	now   func() time.Time
}

// New creates a Journal. capacity <= 0 uses DefaultCapacity; a nil recorder
// becomes a no-op.
func New(capacity int, rec recorder.Recorder, log zerolog.Logger) *Journal {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Journal{
		buf: make([]model.LogEntry, capacity),
		rec: rec,
		log: log.With().Str("component", "journal").Logger(),
		now: time.Now,
	}
}

// OnAppend registers a hook. Hooks run synchronously after the entry is stored.
func (j *Journal) OnAppend(h Hook) {
	j.mu.Lock()
	j.hooks = append(j.hooks, h)
	j.mu.Unlock()
}

// Append stores e, stamping Time when zero.
func (j *Journal) Append(e model.LogEntry) {
	if e.Time.IsZero() {
		e.Time = j.now()
	}
	j.mu.Lock()
	capacity := len(j.buf)
	if j.size < capacity {
		j.buf[(j.head+j.size)%capacity] = e
		j.size++
	} else {
		j.buf[j.head] = e
		j.head = (j.head + 1) % capacity
	}
	hooks := append([]Hook(nil), j.hooks...)
	j.mu.Unlock()

	ev := j.log.Info()
	if e.Outcome.Kind == model.OutcomeFailed {
		ev = j.log.Warn()
	}
	ev.Str("account", e.Account).Str("action", e.Action).Str("target", e.Target).
		Str("outcome", string(e.Outcome.Kind)).Str("hash", e.Outcome.Hash).
		Str("reason", e.Outcome.Reason).Str("error", e.Outcome.Err).Msg("journal")

	if err := j.rec.RecordOutcome(&e); err != nil {
		j.log.Error().Err(err).Msg("record outcome")
	}
	for _, h := range hooks {
		h(e)
	}
}

// Recent returns up to n entries, newest first. n <= 0 returns all.
func (j *Journal) Recent(n int) []model.LogEntry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if n <= 0 || n > j.size {
		n = j.size
	}
	out := make([]model.LogEntry, 0, n)
	capacity := len(j.buf)
	for i := 0; i < n; i++ {
		idx := (j.head + j.size - 1 - i) % capacity
		out = append(out, j.buf[idx])
	}
	return out
}

// Len is the number of stored entries.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.size
}
