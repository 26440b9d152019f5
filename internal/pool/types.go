package pool

import (
	"github.com/holiman/uint256"

	"stablePool/internal/asset"
)

// Env is the block context of a call.
type Env struct {
	Height uint64 `json:"height"`
	Time   uint64 `json:"time"`
}

// MessageInfo identifies the caller and the native funds attached to the call.
type MessageInfo struct {
	Sender string       `json:"sender"`
	Funds  []asset.Coin `json:"funds,omitempty"`
}

// Registry is the factory view a pool needs.
type Registry interface {
	FeeBpsFor(pairType string) (total, maker uint64, err error)
	IsPairDisabled(pairType string) bool
	FeeAddress() string
	Owner() string
}

// ShareBalances reads share token balances.
type ShareBalances interface {
	BalanceOf(account string) *uint256.Int
}

type MsgKind string

const (
	MsgTransfer     MsgKind = "transfer"
	MsgTransferFrom MsgKind = "transfer_from"
	MsgMint         MsgKind = "mint"
	MsgBurn         MsgKind = "burn"
	MsgBankSend     MsgKind = "bank_send"
)

// Message is an outbound effect for the token or bank collaborator.
// Sender is the account on whose authority it executes.
type Message struct {
	Kind     MsgKind      `json:"kind"`
	Sender   string       `json:"sender"`
	Contract string       `json:"contract,omitempty"`
	Denom    string       `json:"denom,omitempty"`
	From     string       `json:"from,omitempty"`
	To       string       `json:"to,omitempty"`
	Amount   *uint256.Int `json:"amount"`
	Tax      *uint256.Int `json:"tax,omitempty"`
}

type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Response carries the messages and attributes of a successful call.
type Response struct {
	Messages   []Message   `json:"messages,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty"`
}

func (r *Response) addAttribute(key, value string) {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
}

// Attribute returns the first value stored under key.
func (r Response) Attribute(key string) (string, bool) {
	for _, a := range r.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}
