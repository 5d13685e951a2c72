package events

// Topics the workbench publishes to. A deployment may prefix them.
const (
	TopicTxStaged   = "tx.staged"
	TopicTxSigned   = "tx.signed"
	TopicTxRemoved  = "tx.removed"
	TopicTxVerified = "tx.verified"
)

type TxStaged struct {
	TxHash  string `json:"tx_hash"`
	Deps    int    `json:"deps"`
	Inputs  int    `json:"inputs"`
	Outputs int    `json:"outputs"`
	Signed  bool   `json:"signed"`
}

type TxSigned struct {
	TxHash string `json:"tx_hash"`
	Inputs int    `json:"inputs"`
	Signed int    `json:"signed"` // inputs that received a witness
}

type TxRemoved struct {
	TxHash string `json:"tx_hash"`
}

type TxVerified struct {
	TxHash    string `json:"tx_hash"`
	Valid     bool   `json:"valid"`
	Cycles    uint64 `json:"cycles"`
	MaxCycles uint64 `json:"max_cycles,omitempty"`
	Error     string `json:"error,omitempty"`
}
