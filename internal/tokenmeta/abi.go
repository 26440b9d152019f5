package tokenmeta

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const erc20JSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

// Some older tokens return symbol and name as bytes32.
const erc20Bytes32JSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

type erc20ABIs struct {
	standard abi.ABI
	bytes32  abi.ABI
}

var loadABIs = sync.OnceValues(func() (erc20ABIs, error) {
	standard, err := abi.JSON(strings.NewReader(erc20JSON))
	if err != nil {
		return erc20ABIs{}, err
	}
	bytes32, err := abi.JSON(strings.NewReader(erc20Bytes32JSON))
	if err != nil {
		return erc20ABIs{}, err
	}
	return erc20ABIs{standard: standard, bytes32: bytes32}, nil
})
