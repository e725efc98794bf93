// Package pow implements the proof-of-work target arithmetic: the compact
// "bits" target encoding, the Zcash difficulty adjustment algorithm, and the
// conversion of targets into cumulative work.
package pow

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/zoroproject/zoro/foundation/zcash"
)

// Compact encoding failures. The encoding is a floating-point style
// representation: one exponent byte holding the byte length of the target and
// three mantissa bytes holding its most significant digits.
var (
	ErrMostSignificantBitSet = errors.New("most significant bit set")
	ErrSizeExceeds32Bytes    = errors.New("size exceeds 32 bytes")
	ErrTargetAboveLimit      = errors.New("target exceeds proof-of-work limit")
	ErrBitsMismatch          = errors.New("bits do not match computed target")
)

// PowLimit expands the network's compact proof-of-work limit into a full
// 256-bit target. The limit is the easiest target any block may carry.
func PowLimit(p zcash.Params) *uint256.Int {
	return expand(p.PowLimitBits)
}

// Diff1Target is the difficulty-1 target used as the floor while the target
// history is still warming up. On Zcash networks this coincides with the
// proof-of-work limit.
func Diff1Target(p zcash.Params) *uint256.Int {
	return expand(p.PowLimitBits)
}

// CompactToTarget expands a compact bits value into a 256-bit target and
// validates it against the network proof-of-work limit.
func CompactToTarget(bits uint32, powLimit *uint256.Int) (*uint256.Int, error) {
	exponent := bits >> 24
	mantissa := bits & 0x00ffffff

	if mantissa&0x00800000 != 0 && exponent != 0 {
		return nil, fmt.Errorf("compact 0x%08x: %w", bits, ErrMostSignificantBitSet)
	}
	if exponent > 32 {
		return nil, fmt.Errorf("compact 0x%08x: %w", bits, ErrSizeExceeds32Bytes)
	}

	target := expandParts(exponent, mantissa)

	if target.Gt(powLimit) {
		return nil, fmt.Errorf("compact 0x%08x: %w", bits, ErrTargetAboveLimit)
	}

	return target, nil
}

// TargetToCompact reduces a 256-bit target to its canonical compact form:
// three significant bytes of mantissa plus a byte-length exponent. The
// mantissa is shifted down one byte when its top bit would be set so the
// encoding never carries a sign bit.
func TargetToCompact(target *uint256.Int) uint32 {
	size := uint32((target.BitLen() + 7) / 8)

	var mantissa uint32
	if size <= 3 {
		mantissa = uint32(target.Uint64()) << (8 * (3 - size))
	} else {
		shifted := new(uint256.Int).Rsh(target, uint(8*(size-3)))
		mantissa = uint32(shifted.Uint64())
	}

	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		size++
	}

	return size<<24 | mantissa
}

// ReduceTargetPrecision rounds a target down to the nearest value the compact
// encoding can represent exactly. The difficulty adjuster must emit targets
// in this reduced form, because the bits field of a real header cannot carry
// more than three significant bytes.
func ReduceTargetPrecision(target *uint256.Int) *uint256.Int {
	bits := TargetToCompact(target)
	return expand(bits)
}

// ValidateBits checks that a header's claimed bits field is exactly the
// compact encoding of the independently computed target.
func ValidateBits(target *uint256.Int, bits uint32) error {
	if computed := TargetToCompact(target); computed != bits {
		return fmt.Errorf("computed 0x%08x, header 0x%08x: %w", computed, bits, ErrBitsMismatch)
	}
	return nil
}

// expand decodes a compact value without range validation. Used for trusted
// constants and for precision reduction where the input was already bounded.
func expand(bits uint32) *uint256.Int {
	return expandParts(bits>>24, bits&0x00ffffff)
}

func expandParts(exponent uint32, mantissa uint32) *uint256.Int {
	target := uint256.NewInt(uint64(mantissa))

	switch {
	case exponent == 0:
		return target
	case exponent <= 3:
		return target.Rsh(target, uint(8*(3-exponent)))
	default:
		return target.Lsh(target, uint(8*(exponent-3)))
	}
}
