// Package attest defines the recursive-attestation seam. A batch transition
// can start from a state that some earlier program execution already vouched
// for; the attestation carries that execution's claim, and the verifier
// implementation decides how much cryptography backs it.
package attest

import (
	"errors"
	"fmt"

	"github.com/zoroproject/zoro/foundation/zcash"
)

// Claim mismatch failures.
var (
	ErrStateMismatch       = errors.New("attested chain state does not match starting state")
	ErrAccumulatorMismatch = errors.New("attested accumulator does not match starting accumulator")
)

// Claim is what a prior execution asserted: the digests of the chain state
// and accumulator it ended on, plus the identities of every program involved
// in producing it, its own and those it recursively verified.
type Claim struct {
	ChainStateDigest  zcash.Digest
	AccumulatorDigest zcash.Digest
	UpstreamPrograms  []zcash.Digest
}

// Verifier checks an opaque attestation blob and extracts the claim it
// carries. Implementations range from a proof-system verifier down to the
// trusting pass-through used in tests and local tooling.
type Verifier interface {
	Verify(attestation []byte) (Claim, error)
}

// CheckPrecondition asserts that a verified claim describes exactly the
// state and accumulator a batch is about to extend.
func CheckPrecondition(claim Claim, stateDigest zcash.Digest, accumulatorDigest zcash.Digest) error {
	if claim.ChainStateDigest != stateDigest {
		return fmt.Errorf("claimed %s, have %s: %w", claim.ChainStateDigest, stateDigest, ErrStateMismatch)
	}
	if claim.AccumulatorDigest != accumulatorDigest {
		return fmt.Errorf("claimed %s, have %s: %w", claim.AccumulatorDigest, accumulatorDigest, ErrAccumulatorMismatch)
	}
	return nil
}
