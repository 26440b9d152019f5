package model

// ScriptError records a scenario line that could not be parsed or applied.
type ScriptError struct {
	Line  int    `json:"line"`
	Op    string `json:"op,omitempty"`
	Error string `json:"error"`
}
