package model

// TokenMeta captures ERC20 metadata used to configure contract-backed pool assets.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	ChainID  uint64 `json:"chain_id,omitempty"`
}
