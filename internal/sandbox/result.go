package sandbox

// ResultMeta is the metadata sub-object attached to some results.
type ResultMeta struct {
	ComputeUnitsConsumed *uint64  `json:"computeUnitsConsumed,omitempty"`
	LogMessages          []string `json:"logMessages,omitempty"`
	Fee                  uint64   `json:"fee"`
}

// Result is the value returned by Submit when the transaction reached the
// ledger. A nil Err means on-chain success; a non-nil Err is a failed
// transaction, distinguishable from a submission error.
//
// The shape is not uniform across code paths: the success path populates
// Meta (logs and compute units under the metadata sub-object), while the
// failure path reports logs top-level and may omit structured compute
// units entirely. UnitsConsumed is a top-level shortcut populated by
// simulation-style paths. Consumers must probe all three locations.
type Result struct {
	Err           *TxError    `json:"err,omitempty"`
	Logs          []string    `json:"logs,omitempty"`
	UnitsConsumed *uint64     `json:"unitsConsumed,omitempty"`
	Meta          *ResultMeta `json:"meta,omitempty"`
}
