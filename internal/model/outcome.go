package model

import (
	"fmt"
	"time"
)

// OutcomeKind tags the result of attempting an action.
type OutcomeKind string

const (
	OutcomeSent      OutcomeKind = "sent"
	OutcomeConfirmed OutcomeKind = "confirmed"
	OutcomeSkipped   OutcomeKind = "skipped"
	OutcomeFailed    OutcomeKind = "failed"
	// OutcomeInfo marks lifecycle notes (run start/stop), not action results.
	OutcomeInfo OutcomeKind = "info"
)

// Outcome is a tagged variant: Hash is set for sent/confirmed, Reason for
// skipped, Err for failed.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Hash   string      `json:"hash,omitempty"`
	Reason string      `json:"reason,omitempty"`
	Err    string      `json:"error,omitempty"`
}

func Sent(hash string) Outcome      { return Outcome{Kind: OutcomeSent, Hash: hash} }
func Confirmed(hash string) Outcome { return Outcome{Kind: OutcomeConfirmed, Hash: hash} }
func Skipped(reason string) Outcome { return Outcome{Kind: OutcomeSkipped, Reason: reason} }

// Failed records err's message. A nil err yields "unknown error".
func Failed(err error) Outcome {
	if err == nil {
		return Outcome{Kind: OutcomeFailed, Err: "unknown error"}
	}
	return Outcome{Kind: OutcomeFailed, Err: err.Error()}
}

// Info is a non-failure lifecycle note (start/stop entries).
func Info(status string) Outcome { return Outcome{Kind: OutcomeInfo, Reason: status} }

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeSent, OutcomeConfirmed:
		return fmt.Sprintf("%s %s", o.Kind, o.Hash)
	case OutcomeSkipped:
		return fmt.Sprintf("skipped: %s", o.Reason)
	case OutcomeFailed:
		return fmt.Sprintf("failed: %s", o.Err)
	case OutcomeInfo:
		return o.Reason
	default:
		return string(o.Kind)
	}
}

// LogEntry is one audit record. Target holds per-call detail such as the
// token address or the bridge percentage.
type LogEntry struct {
	Time    time.Time `json:"time"`
	RunID   string    `json:"run_id,omitempty"`
	Account string    `json:"account"`
	Action  string    `json:"action"`
	Target  string    `json:"target,omitempty"`
	Outcome Outcome   `json:"outcome"`
}
