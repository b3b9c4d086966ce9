package types

// AccountMeta names one account an instruction touches and whether the
// submitter presented authorization for it. The runtime verifies signatures
// before an instruction reaches the program, so a set Signer flag means the
// authorization was checked, not merely claimed.
type AccountMeta struct {
	Address Address `json:"address"`
	Signer  bool    `json:"signer"`
}

// Transaction is one caller-submitted unit of work: a target program, the
// positional account list its instruction operates on, and the opaque
// instruction bytes. Either every effect of the instruction commits or none
// do.
type Transaction struct {
	Program  Address       `json:"program"`
	Accounts []AccountMeta `json:"accounts"`
	Data     []byte        `json:"data"`
}
