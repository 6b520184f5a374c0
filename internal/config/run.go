package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"OdysseyFarmer/internal/action"
	"OdysseyFarmer/internal/guard"
	"OdysseyFarmer/internal/model"
	"OdysseyFarmer/internal/pacing"
)

// DefaultTokens is the approve target list used when none is configured.
var DefaultTokens = []string{
	"0x706Aa5C8e5cC2c67Da21ee220718f6f6B154E75c",
	"0x390dD40042a844F92b499069CFe983236d9fe204",
	"0x238c8CD93ee9F8c7Edf395548eF60c0d2e46665E",
	"0x92Bd72eEC6a84b46051faB0F2400765665659cb4",
	"0xaa52Be611a9b620aFF67FbC79326e267cc3F2c69",
	"0x7E06a337929B1Cb92363e15414e37959a36E5338",
}

// Bridge holds the bridge action parameters.
type Bridge struct {
	Contract   string          `yaml:"contract" json:"contract"`
	Percent    float64         `yaml:"percent" json:"percent"`
	ReserveEth decimal.Decimal `yaml:"reserve_eth" json:"reserveEth"`
	L2Gas      int64           `yaml:"l2_gas" json:"l2Gas"`
	// Data is the opaque payload, either 0x-prefixed hex or plain text.
	Data string `yaml:"data" json:"data"`
}

// Run is the scheduler configuration for one run. It is immutable once a
// run has started.
type Run struct {
	Mode            string          `yaml:"mode" json:"mode"`
	MinDelaySec     float64         `yaml:"min_delay_sec" json:"minDelaySec"`
	MaxDelaySec     float64         `yaml:"max_delay_sec" json:"maxDelaySec"`
	DailyTargetMin  int             `yaml:"daily_target_min" json:"dailyTargetMin"`
	DailyTargetMax  int             `yaml:"daily_target_max" json:"dailyTargetMax"`
	GuardEnabled    bool            `yaml:"guard_enabled" json:"guardEnabled"`
	GuardThreshold  decimal.Decimal `yaml:"guard_threshold_eth" json:"guardThresholdEth"`
	Actions         []string        `yaml:"actions" json:"actions"`
	Tokens          []string        `yaml:"tokens" json:"tokens"`
	GasPriceCapGwei decimal.Decimal `yaml:"gas_price_cap_gwei" json:"gasPriceCapGwei"`
	Bridge          Bridge          `yaml:"bridge" json:"bridge"`
	// Seed fixes the run's random source; 0 draws a fresh seed.
	Seed uint64 `yaml:"seed" json:"seed,omitempty"`
}

// DefaultRun mirrors the stock control panel settings.
func DefaultRun() Run {
	return Run{
		Mode:            string(model.ModeCron),
		MinDelaySec:     20,
		MaxDelaySec:     120,
		DailyTargetMin:  40,
		DailyTargetMax:  60,
		GuardEnabled:    true,
		GuardThreshold:  decimal.RequireFromString("0.0003"),
		Actions:         []string{action.NamePing, action.NameApprove, action.NameMint},
		Tokens:          append([]string(nil), DefaultTokens...),
		GasPriceCapGwei: decimal.NewFromInt(1),
		Bridge: Bridge{
			Contract:   action.DefaultBridgeContract,
			Percent:    10,
			ReserveEth: decimal.RequireFromString("0.0002"),
			L2Gas:      action.DefaultBridgeL2Gas,
			Data:       string(action.DefaultBridgeData),
		},
	}
}

// Resolved is a Run converted to the types the components consume.
type Resolved struct {
	Mode    model.Mode
	Bounds  pacing.Bounds
	Guard   guard.Guard
	Actions []string
	Params  action.Params
}

// Resolve validates r and converts amounts to wei.
func (r Run) Resolve() (Resolved, error) {
	mode, err := model.ParseMode(r.Mode)
	if err != nil {
		return Resolved{}, err
	}
	for _, v := range []float64{r.MinDelaySec, r.MaxDelaySec, r.Bridge.Percent} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Resolved{}, errors.New("numeric settings must be finite")
		}
	}
	if r.MinDelaySec > pacing.MaxDelaySec || r.MaxDelaySec > pacing.MaxDelaySec {
		return Resolved{}, fmt.Errorf("delays must not exceed %d seconds", pacing.MaxDelaySec)
	}
	threshold, err := EtherToWei(r.GuardThreshold)
	if err != nil {
		return Resolved{}, fmt.Errorf("guard threshold: %w", err)
	}
	reserve, err := EtherToWei(r.Bridge.ReserveEth)
	if err != nil {
		return Resolved{}, fmt.Errorf("bridge reserve: %w", err)
	}
	gasCap, err := GweiToWei(r.GasPriceCapGwei)
	if err != nil {
		return Resolved{}, fmt.Errorf("gas price cap: %w", err)
	}
	data, err := ParsePayload(r.Bridge.Data)
	if err != nil {
		return Resolved{}, fmt.Errorf("bridge data: %w", err)
	}
	var tokens []string
	for _, t := range r.Tokens {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}

	return Resolved{
		Mode: mode,
		Bounds: pacing.Bounds{
			MinDelaySec:    r.MinDelaySec,
			MaxDelaySec:    r.MaxDelaySec,
			DailyTargetMin: r.DailyTargetMin,
			DailyTargetMax: r.DailyTargetMax,
		},
		Guard:   guard.Guard{Enabled: r.GuardEnabled, Threshold: threshold},
		Actions: append([]string(nil), r.Actions...),
		Params: action.Params{
			Tokens:          tokens,
			GasPriceCapWei:  gasCap,
			BridgeContract:  r.Bridge.Contract,
			BridgePercent:   action.ClampPercent(r.Bridge.Percent),
			BridgeReserve:   reserve,
			BridgeL2Gas:     r.Bridge.L2Gas,
			BridgeExtraData: data,
		},
	}, nil
}

// EtherToWei converts a non-negative ether amount to wei, truncating below 1 wei.
func EtherToWei(eth decimal.Decimal) (*uint256.Int, error) {
	return shiftToInt(eth, 18)
}

// GweiToWei converts a gas price in gwei to wei. Non-positive caps disable
// the cap and return nil; a positive cap below 1 wei yields zero.
func GweiToWei(gwei decimal.Decimal) (*uint256.Int, error) {
	if !gwei.IsPositive() {
		return nil, nil
	}
	return shiftToInt(gwei, 9)
}

// WeiToEther formats wei as a decimal ether amount.
func WeiToEther(wei *uint256.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei.ToBig(), -18)
}

func shiftToInt(d decimal.Decimal, places int32) (*uint256.Int, error) {
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %s", d)
	}
	v, overflow := uint256.FromBig(d.Shift(places).Floor().BigInt())
	if overflow {
		return nil, fmt.Errorf("amount %s out of range", d)
	}
	return v, nil
}

// ParsePayload decodes 0x-prefixed hex, otherwise returns the raw bytes of s.
// An empty string yields nil, which selects the default payload.
func ParsePayload(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return hex.DecodeString(s[2:])
	}
	return []byte(s), nil
}
