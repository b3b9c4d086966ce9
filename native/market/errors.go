package market

import "errors"

// Failure taxonomy. Every validation failure wraps one of these sentinels,
// so callers can tell a malformed payload from a wrong owner from a missing
// authorization with errors.Is.
var (
	// ErrInvalidInstructionData flags an unrecognized opcode or a payload
	// whose length does not match its fixed layout.
	ErrInvalidInstructionData = errors.New("market: invalid instruction data")
	// ErrInvalidArgument flags a missing signer, a derived-address mismatch
	// or balance arithmetic that would overflow.
	ErrInvalidArgument = errors.New("market: invalid argument")
	// ErrMissingSignature flags a record not owned by this program where
	// program ownership was required.
	ErrMissingSignature = errors.New("market: missing required signature")
	// ErrInvalidAccountData flags record bytes that cannot be viewed as the
	// expected fixed layout.
	ErrInvalidAccountData = errors.New("market: invalid account data")
)
