package model

import (
	"fmt"
	"strings"
)

// Mode selects the timing model.
type Mode string

const (
	ModeInfinity Mode = "infinity"
	ModeCron     Mode = "cron"
)

// ParseMode accepts the mode names case-insensitively. "loop" is an alias
// for infinity.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "infinity", "loop":
		return ModeInfinity, nil
	case "cron":
		return ModeCron, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}
