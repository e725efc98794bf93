// Package zcash provides the shared types and network parameters used by the
// header-chain verification packages.
package zcash

// Consensus constants shared by every Zcash network. These govern the shape
// of the rolling chain-state histories and the difficulty algorithm and are
// not tunable per network.
const (
	// PowAveragingWindow is the number of recent proof-of-work targets that
	// are averaged when computing the next target.
	PowAveragingWindow = 17

	// MedianTimeWindow is the number of recent timestamps the median-time-past
	// calculation looks at.
	MedianTimeWindow = 11

	// MaxTimestampHistory caps the timestamp history carried by a chain
	// state. It covers one full averaging window plus one median window so
	// the median can be taken at both window boundaries.
	MaxTimestampHistory = PowAveragingWindow + MedianTimeWindow

	// EpochLength is the legacy retargeting epoch carried over from Bitcoin.
	// Only the epoch start time bookkeeping remains.
	EpochLength = 2016

	// PreBlossomTargetSpacing is the expected seconds between blocks before
	// the Blossom network upgrade.
	PreBlossomTargetSpacing = 150

	// PostBlossomTargetSpacing is the expected seconds between blocks from
	// the Blossom network upgrade onward.
	PostBlossomTargetSpacing = 75
)

// Params describes the consensus parameters that differ between networks.
// The verification code never reaches for globals; a Params value is threaded
// through so tests can run a small network with cheap proof-of-work.
type Params struct {
	Name                    string
	EquihashN               uint32
	EquihashK               uint32
	PowLimitBits            uint32
	BlossomActivationHeight uint32
	GenesisTime             uint32
}

// Mainnet returns the consensus parameters for the Zcash main network.
func Mainnet() Params {
	return Params{
		Name:                    "mainnet",
		EquihashN:               200,
		EquihashK:               9,
		PowLimitBits:            0x1f07ffff,
		BlossomActivationHeight: 653600,
		GenesisTime:             1477641360,
	}
}

// Regnet returns parameters for a regression-test network with tiny Equihash
// parameters and a permissive proof-of-work limit, so full blocks can be
// mined inside tests and tooling.
func Regnet() Params {
	return Params{
		Name:                    "regnet",
		EquihashN:               32,
		EquihashK:               3,
		PowLimitBits:            0x207fffff,
		BlossomActivationHeight: 0,
		GenesisTime:             1477641360,
	}
}

// TargetSpacing returns the expected block spacing in seconds at the
// specified height. Blossom halved the spacing from 150s to 75s.
func (p Params) TargetSpacing(height uint32) uint32 {
	if height >= p.BlossomActivationHeight {
		return PostBlossomTargetSpacing
	}
	return PreBlossomTargetSpacing
}
