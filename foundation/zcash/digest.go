package zcash

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// DigestSize is the byte length of every digest in the system.
const DigestSize = 32

// Digest represents a 256-bit hash in internal byte order, the order in
// which it is serialized inside a block header. Explorers and RPC endpoints
// show block hashes byte-reversed; use String and ParseDigest for that
// display order.
type Digest [DigestSize]byte

// ZeroDigest is a digest of all zeros.
var ZeroDigest = Digest{}

// NewDigest constructs a Digest from a byte slice in internal order.
func NewDigest(b []byte) (Digest, error) {
	var d Digest
	if len(b) != DigestSize {
		return d, fmt.Errorf("digest must be %d bytes, got %d", DigestSize, len(b))
	}
	copy(d[:], b)
	return d, nil
}

// ParseDigest decodes a display-order hex string, with or without a 0x
// prefix, into a Digest in internal order.
func ParseDigest(s string) (Digest, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}

	b, err := hexutil.Decode("0x" + s)
	if err != nil {
		return Digest{}, fmt.Errorf("decoding digest: %w", err)
	}

	d, err := NewDigest(b)
	if err != nil {
		return Digest{}, err
	}

	return d.Reversed(), nil
}

// Reversed returns the digest with its byte order flipped. It converts
// between internal and display order.
func (d Digest) Reversed() Digest {
	var r Digest
	for i := 0; i < DigestSize; i++ {
		r[i] = d[DigestSize-1-i]
	}
	return r
}

// String renders the digest in display order with a 0x prefix.
func (d Digest) String() string {
	return hexutil.Encode(d.Reversed().Bytes())
}

// Bytes returns the digest as a byte slice in internal order.
func (d Digest) Bytes() []byte {
	return d[:]
}

// IsZero reports whether every byte of the digest is zero.
func (d Digest) IsZero() bool {
	return d == ZeroDigest
}

// ToUint256 interprets the digest as a little-endian 256-bit integer. This
// is the interpretation used when comparing a block hash against the
// proof-of-work target.
func (d Digest) ToUint256() *uint256.Int {
	r := d.Reversed()
	return new(uint256.Int).SetBytes(r[:])
}

// MarshalText implements encoding.TextMarshaler using display order.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler accepting display order.
func (d *Digest) UnmarshalText(text []byte) error {
	v, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
