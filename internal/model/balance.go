package model

import (
	"time"

	"github.com/holiman/uint256"
)

// BalanceReading is the cached balance of one account.
// Amount is nil until the first successful query; a failed query keeps the
// previous Amount and sets Err.
type BalanceReading struct {
	Identity  string
	Amount    *uint256.Int
	Err       string
	AsOf      time.Time // last successful query
	CheckedAt time.Time // last attempt
}

// Valid reports whether the reading carries a usable amount.
func (r *BalanceReading) Valid() bool {
	return r != nil && r.Amount != nil && r.Err == ""
}

// Clone returns a deep copy so callers never share the cached amount.
func (r BalanceReading) Clone() BalanceReading {
	if r.Amount != nil {
		r.Amount = new(uint256.Int).Set(r.Amount)
	}
	return r
}
