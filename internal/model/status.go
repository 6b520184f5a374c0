package model

// Probe is the result of the primary network identity check.
type Probe struct {
	ExpectedChainID uint64 `json:"chainIdExpected"`
	ChainID         uint64 `json:"chainIdDetected"`
	Block           uint64 `json:"block,omitempty"`
	Diag            string `json:"rpcDiag"`
}

// Matches reports whether the detected chain id equals the expected one.
func (p Probe) Matches() bool {
	return p.ChainID != 0 && p.ChainID == p.ExpectedChainID
}

// AccountStatus is one account row of a status snapshot.
type AccountStatus struct {
	Identity    string `json:"address"`
	BalanceWei  string `json:"balanceWei"`
	BalanceEth  string `json:"balanceEth"`
	Err         string `json:"balanceErr,omitempty"`
	Low         bool   `json:"low"`
	DailyTarget int    `json:"dailyTarget,omitempty"`
}

// Status is the snapshot returned to hosts.
type Status struct {
	Running  bool            `json:"running"`
	RunID    string          `json:"runId,omitempty"`
	Mode     Mode            `json:"mode,omitempty"`
	Config   any             `json:"config,omitempty"`
	Actions  []string        `json:"enabledActions"`
	RPC      Probe           `json:"rpc"`
	Accounts []AccountStatus `json:"accounts"`
	Logs     []LogEntry      `json:"logs"`
}
