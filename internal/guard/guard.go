package guard

import (
	"github.com/holiman/uint256"

	"OdysseyFarmer/internal/model"
)

// CanAfford reports whether reading covers gasLimit*gasPrice + value.
// An absent or erroring reading, or a cost that overflows 256 bits, cannot
// afford anything.
func CanAfford(reading *model.BalanceReading, gasLimit uint64, gasPrice, value *uint256.Int) bool {
	if !reading.Valid() {
		return false
	}
	cost, ok := Cost(gasLimit, gasPrice, value)
	if !ok {
		return false
	}
	return !reading.Amount.Lt(cost)
}

// Cost is gasLimit*gasPrice + value. ok is false on overflow.
func Cost(gasLimit uint64, gasPrice, value *uint256.Int) (*uint256.Int, bool) {
	price := gasPrice
	if price == nil {
		price = new(uint256.Int)
	}
	cost, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(gasLimit), price)
	if overflow {
		return nil, false
	}
	if value != nil {
		if _, overflow = cost.AddOverflow(cost, value); overflow {
			return nil, false
		}
	}
	return cost, true
}

// Guard binds CanAfford to the run configuration.
type Guard struct {
	Enabled   bool
	Threshold *uint256.Int
}

// Allow gates an operation. A disabled guard allows everything, including
// operations the account cannot pay for.
func (g Guard) Allow(reading *model.BalanceReading, gasLimit uint64, gasPrice, value *uint256.Int) bool {
	if !g.Enabled {
		return true
	}
	return CanAfford(reading, gasLimit, gasPrice, value)
}

// Low flags a valid reading below the configured threshold. It is a display
// hint only and never gates execution.
func (g Guard) Low(reading *model.BalanceReading) bool {
	if !g.Enabled || g.Threshold == nil || !reading.Valid() {
		return false
	}
	return reading.Amount.Lt(g.Threshold)
}
