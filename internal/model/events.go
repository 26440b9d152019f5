package model

// PoolEvent records one executed transaction against the host.
type PoolEvent struct {
	Seq        uint64            `json:"seq"`
	Height     uint64            `json:"height"`
	Timestamp  uint64            `json:"timestamp"`
	Pool       string            `json:"pool,omitempty"`
	Action     string            `json:"action"`
	Sender     string            `json:"sender,omitempty"`
	Success    bool              `json:"success"`
	ErrorKind  string            `json:"error_kind,omitempty"`
	Error      string            `json:"error,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Messages   []MessageRecord   `json:"messages,omitempty"`
}

// MessageRecord is a dispatched token or bank message.
type MessageRecord struct {
	Kind     string `json:"kind"`
	Contract string `json:"contract,omitempty"`
	Denom    string `json:"denom,omitempty"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Amount   string `json:"amount"`
	Tax      string `json:"tax,omitempty"`
}
