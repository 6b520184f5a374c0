package guard

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"

	"OdysseyFarmer/internal/model"
)

func reading(amount uint64) *model.BalanceReading {
	return &model.BalanceReading{Identity: "0xa", Amount: uint256.NewInt(amount)}
}

func TestCanAfford(t *testing.T) {
	tests := []struct {
		name     string
		reading  *model.BalanceReading
		gas      uint64
		price    uint64
		value    uint64
		expected bool
	}{
		{"exact", reading(30_000), 30_000, 1, 0, true},
		{"one short", reading(29_999), 30_000, 1, 0, false},
		{"value counts", reading(30_000), 30_000, 1, 1, false},
		{"surplus", reading(1_000_000), 21_000, 2, 5, true},
		{"zero cost", reading(0), 0, 0, 0, true},
		{"absent", nil, 1, 1, 0, false},
		{"no amount", &model.BalanceReading{Identity: "0xa"}, 1, 1, 0, false},
		{"erroring", &model.BalanceReading{Identity: "0xa", Amount: uint256.NewInt(1 << 40), Err: "timeout"}, 1, 1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanAfford(tt.reading, tt.gas, uint256.NewInt(tt.price), uint256.NewInt(tt.value))
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCanAffordMatchesFormula(t *testing.T) {
	for amount := uint64(0); amount < 50; amount += 3 {
		for gas := uint64(0); gas < 6; gas++ {
			for price := uint64(0); price < 6; price++ {
				for value := uint64(0); value < 6; value++ {
					want := amount >= gas*price+value
					got := CanAfford(reading(amount), gas, uint256.NewInt(price), uint256.NewInt(value))
					assert.Equal(t, want, got, "amount=%d gas=%d price=%d value=%d", amount, gas, price, value)
				}
			}
		}
	}
}

func TestCostOverflowCannotAfford(t *testing.T) {
	maxU := new(uint256.Int).SetAllOne()
	r := &model.BalanceReading{Identity: "0xa", Amount: maxU}
	assert.False(t, CanAfford(r, 2, maxU, nil))
	assert.False(t, CanAfford(r, 1, maxU, uint256.NewInt(1)))
	assert.True(t, CanAfford(r, 1, maxU, nil))
}

func TestGuardDisabledAllowsEverything(t *testing.T) {
	g := Guard{Enabled: false}
	assert.True(t, g.Allow(nil, 1_000_000, uint256.NewInt(1_000_000), nil))
	assert.True(t, g.Allow(reading(0), 30_000, uint256.NewInt(1), nil))

	g.Enabled = true
	assert.False(t, g.Allow(reading(0), 30_000, uint256.NewInt(1), nil))
}

func TestGuardLow(t *testing.T) {
	g := Guard{Enabled: true, Threshold: uint256.NewInt(100)}
	assert.True(t, g.Low(reading(99)))
	assert.False(t, g.Low(reading(100)))
	assert.False(t, g.Low(nil))

	g.Enabled = false
	assert.False(t, g.Low(reading(1)))
}
