package chain

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/zoroproject/zoro/foundation/zcash"
	"github.com/zoroproject/zoro/foundation/zcash/equihash"
)

// equihashInputLen is the length of the serialized header up to and
// including the nonce. Those bytes are the input to the Equihash hash; the
// solution itself follows them on the wire.
const equihashInputLen = 140

// Solution decoding failures.
var (
	ErrShortHeader      = errors.New("header bytes too short")
	ErrBadSolutionSize  = errors.New("unexpected solution byte length")
	ErrBadCompactLength = errors.New("malformed compact length prefix")
)

// Header holds the consensus fields of a Zcash block header. The Equihash
// solution is carried as decoded indices; EncodeHeader packs them into the
// wire bit layout.
type Header struct {
	Version          uint32       `json:"version"`
	Time             uint32       `json:"time"`
	Bits             uint32       `json:"bits"`
	Nonce            zcash.Digest `json:"nonce"`
	FinalSaplingRoot zcash.Digest `json:"final_sapling_root"`
	Solution         []uint32     `json:"solution"`
}

// Block pairs a header with the transaction commitment it seals. The
// previous-block hash is not stored here; it comes from the chain state the
// block is validated against.
type Block struct {
	Header     Header       `json:"header"`
	MerkleRoot zcash.Digest `json:"merkle_root"`
}

// EncodeHeader serializes a block into the exact byte layout Zcash hashes:
// version, previous hash, merkle root, sapling root, time, bits and nonce,
// followed by the length-prefixed packed Equihash solution.
func EncodeHeader(p zcash.Params, prevHash zcash.Digest, block Block) []byte {
	eq := equihash.Params{N: p.EquihashN, K: p.EquihashK}
	packed := PackSolution(block.Header.Solution, eq.IndexBits())

	buf := make([]byte, 0, equihashInputLen+5+len(packed))

	buf = binary.LittleEndian.AppendUint32(buf, block.Header.Version)
	buf = append(buf, prevHash.Bytes()...)
	buf = append(buf, block.MerkleRoot.Bytes()...)
	buf = append(buf, block.Header.FinalSaplingRoot.Bytes()...)
	buf = binary.LittleEndian.AppendUint32(buf, block.Header.Time)
	buf = binary.LittleEndian.AppendUint32(buf, block.Header.Bits)
	buf = append(buf, block.Header.Nonce.Bytes()...)
	buf = appendCompactLength(buf, uint64(len(packed)))
	buf = append(buf, packed...)

	return buf
}

// HeaderDigest computes the block hash: a double SHA-256 over the serialized
// header, returned in internal byte order.
func HeaderDigest(headerBytes []byte) zcash.Digest {
	first := sha256.Sum256(headerBytes)
	return sha256.Sum256(first[:])
}

// EquihashInput returns the prefix of the serialized header that the
// Equihash leaf hashes commit to.
func EquihashInput(headerBytes []byte) ([]byte, error) {
	if len(headerBytes) < equihashInputLen {
		return nil, fmt.Errorf("got %d bytes, want at least %d: %w", len(headerBytes), equihashInputLen, ErrShortHeader)
	}
	return headerBytes[:equihashInputLen], nil
}

// PackSolution serializes solution indices into the wire form: each index as
// a fixed-width big-endian bit field, concatenated most significant bit
// first. Mainnet packs 512 21-bit indices into 1344 bytes.
func PackSolution(indices []uint32, indexBits uint32) []byte {
	out := make([]byte, (uint32(len(indices))*indexBits+7)/8)

	bit := uint32(0)
	for _, idx := range indices {
		for b := uint32(0); b < indexBits; b++ {
			if idx>>(indexBits-1-b)&1 == 1 {
				out[bit/8] |= 1 << (7 - bit%8)
			}
			bit++
		}
	}

	return out
}

// UnpackSolution decodes a packed solution back into indices.
func UnpackSolution(data []byte, eq equihash.Params) ([]uint32, error) {
	indexBits := eq.IndexBits()
	count := uint32(eq.SolutionWidth())

	if want := (count*indexBits + 7) / 8; uint32(len(data)) != want {
		return nil, fmt.Errorf("got %d bytes, want %d: %w", len(data), want, ErrBadSolutionSize)
	}

	indices := make([]uint32, count)
	bit := uint32(0)
	for i := range indices {
		var v uint32
		for b := uint32(0); b < indexBits; b++ {
			if data[bit/8]>>(7-bit%8)&1 == 1 {
				v |= 1 << (indexBits - 1 - b)
			}
			bit++
		}
		indices[i] = v
	}

	return indices, nil
}

// DecodeHeader parses serialized header bytes produced by EncodeHeader back
// into a Block plus the previous-block hash it commits to.
func DecodeHeader(p zcash.Params, headerBytes []byte) (Block, zcash.Digest, error) {
	if len(headerBytes) < equihashInputLen+1 {
		return Block{}, zcash.Digest{}, fmt.Errorf("got %d bytes: %w", len(headerBytes), ErrShortHeader)
	}

	var block Block
	var prevHash zcash.Digest

	block.Header.Version = binary.LittleEndian.Uint32(headerBytes[0:4])
	copy(prevHash[:], headerBytes[4:36])
	copy(block.MerkleRoot[:], headerBytes[36:68])
	copy(block.Header.FinalSaplingRoot[:], headerBytes[68:100])
	block.Header.Time = binary.LittleEndian.Uint32(headerBytes[100:104])
	block.Header.Bits = binary.LittleEndian.Uint32(headerBytes[104:108])
	copy(block.Header.Nonce[:], headerBytes[108:140])

	solutionLen, rest, err := readCompactLength(headerBytes[equihashInputLen:])
	if err != nil {
		return Block{}, zcash.Digest{}, err
	}
	if uint64(len(rest)) != solutionLen {
		return Block{}, zcash.Digest{}, fmt.Errorf("solution declares %d bytes, %d remain: %w", solutionLen, len(rest), ErrBadSolutionSize)
	}

	indices, err := UnpackSolution(rest, equihash.Params{N: p.EquihashN, K: p.EquihashK})
	if err != nil {
		return Block{}, zcash.Digest{}, err
	}
	block.Header.Solution = indices

	return block, prevHash, nil
}

// appendCompactLength writes a Bitcoin-style variable length integer.
func appendCompactLength(buf []byte, n uint64) []byte {
	switch {
	case n < 0xfd:
		return append(buf, byte(n))
	case n <= 0xffff:
		buf = append(buf, 0xfd)
		return binary.LittleEndian.AppendUint16(buf, uint16(n))
	case n <= 0xffffffff:
		buf = append(buf, 0xfe)
		return binary.LittleEndian.AppendUint32(buf, uint32(n))
	default:
		buf = append(buf, 0xff)
		return binary.LittleEndian.AppendUint64(buf, n)
	}
}

func readCompactLength(data []byte) (uint64, []byte, error) {
	if len(data) == 0 {
		return 0, nil, ErrBadCompactLength
	}

	switch tag := data[0]; {
	case tag < 0xfd:
		return uint64(tag), data[1:], nil
	case tag == 0xfd:
		if len(data) < 3 {
			return 0, nil, ErrBadCompactLength
		}
		return uint64(binary.LittleEndian.Uint16(data[1:3])), data[3:], nil
	case tag == 0xfe:
		if len(data) < 5 {
			return 0, nil, ErrBadCompactLength
		}
		return uint64(binary.LittleEndian.Uint32(data[1:5])), data[5:], nil
	default:
		if len(data) < 9 {
			return 0, nil, ErrBadCompactLength
		}
		return binary.LittleEndian.Uint64(data[1:9]), data[9:], nil
	}
}
