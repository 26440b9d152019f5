package model

// PoolSnapshot is the persisted form of a pool record. Amounts are base-10 strings.
type PoolSnapshot struct {
	Address          string    `json:"address"`
	ShareToken       string    `json:"share_token"`
	PairType         string    `json:"pair_type"`
	Assets           [2]string `json:"assets"`
	Decimals         [2]uint8  `json:"decimals"`
	Balances         [2]string `json:"balances"`
	ShareSupply      string    `json:"share_supply"`
	MinimumLiquidity string    `json:"minimum_liquidity"`
	InitialAmp       uint64    `json:"initial_amp"`
	InitialAmpTime   uint64    `json:"initial_amp_time"`
	NextAmp          uint64    `json:"next_amp"`
	NextAmpTime      uint64    `json:"next_amp_time"`
	Price0Cumulative string    `json:"price0_cumulative_last"`
	Price1Cumulative string    `json:"price1_cumulative_last"`
	LastUpdate       uint64    `json:"block_time_last"`
	Height           uint64    `json:"height"`
	Timestamp        uint64    `json:"timestamp"`
}

// RunnerState is the clock a scenario run ended at.
type RunnerState struct {
	Height    uint64 `json:"height"`
	Timestamp uint64 `json:"timestamp"`
	Ops       uint64 `json:"ops"`
	UpdatedAt string `json:"updated_at,omitempty"`
}
