package chain_test

import (
	"testing"

	"github.com/zoroproject/zoro/foundation/zcash"
	"github.com/zoroproject/zoro/foundation/zcash/chain"
	"github.com/zoroproject/zoro/foundation/zcash/equihash"
)

func Test_HeaderEncoding(t *testing.T) {
	t.Log("Given the need to serialize headers into the canonical byte layout.")
	{
		t.Log("\tTest 0:\tWhen encoding a mainnet sized header.")
		{
			p := zcash.Mainnet()

			indices := make([]uint32, 512)
			for i := range indices {
				indices[i] = uint32(i)
			}

			block := chain.Block{
				Header: chain.Header{
					Version:  4,
					Time:     1477641360,
					Bits:     0x1f07ffff,
					Solution: indices,
				},
			}

			headerBytes := chain.EncodeHeader(p, zcash.ZeroDigest, block)

			// 140 bytes through the nonce, a 3 byte compact length and
			// 512 indices at 21 bits each.
			if len(headerBytes) != 1487 {
				t.Fatalf("\t%s\tTest 0:\tShould encode to 1487 bytes, got %d.", failed, len(headerBytes))
			}
			t.Logf("\t%s\tTest 0:\tShould encode to 1487 bytes.", success)
		}

		t.Log("\tTest 1:\tWhen round-tripping through decode.")
		{
			p := zcash.Regnet()

			prevHash, err := zcash.NewDigest(bytesOf(0x11))
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould build the previous hash: %v.", failed, err)
			}
			merkle, err := zcash.NewDigest(bytesOf(0x22))
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould build the merkle root: %v.", failed, err)
			}

			block := chain.Block{
				Header: chain.Header{
					Version:  4,
					Time:     1600000000,
					Bits:     0x207fffff,
					Solution: []uint32{3, 1, 4, 1, 5, 9, 2, 6},
				},
				MerkleRoot: merkle,
			}

			headerBytes := chain.EncodeHeader(p, prevHash, block)

			decoded, decodedPrev, err := chain.DecodeHeader(p, headerBytes)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould decode the header: %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould decode the header.", success)

			if decodedPrev != prevHash {
				t.Errorf("\t%s\tTest 1:\tShould recover the previous hash.", failed)
			}
			if decoded.MerkleRoot != merkle {
				t.Errorf("\t%s\tTest 1:\tShould recover the merkle root.", failed)
			}
			if decoded.Header.Version != block.Header.Version || decoded.Header.Time != block.Header.Time || decoded.Header.Bits != block.Header.Bits {
				t.Errorf("\t%s\tTest 1:\tShould recover the scalar fields.", failed)
			}
			for i, idx := range block.Header.Solution {
				if decoded.Header.Solution[i] != idx {
					t.Fatalf("\t%s\tTest 1:\tShould recover solution index %d.", failed, i)
				}
			}
			t.Logf("\t%s\tTest 1:\tShould recover every field.", success)
		}

		t.Log("\tTest 2:\tWhen the header bytes are tampered with.")
		{
			p := zcash.Regnet()

			block := chain.Block{
				Header: chain.Header{
					Version:  4,
					Time:     1600000000,
					Bits:     0x207fffff,
					Solution: []uint32{3, 1, 4, 1, 5, 9, 2, 6},
				},
			}

			headerBytes := chain.EncodeHeader(p, zcash.ZeroDigest, block)
			digest := chain.HeaderDigest(headerBytes)

			headerBytes[100] ^= 0x01
			if chain.HeaderDigest(headerBytes) == digest {
				t.Fatalf("\t%s\tTest 2:\tShould change the digest when a byte flips.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould change the digest when a byte flips.", success)
		}
	}
}

func Test_SolutionPacking(t *testing.T) {
	t.Log("Given the need to pack solution indices into the wire bit layout.")
	{
		t.Log("\tTest 0:\tWhen packing and unpacking a regnet solution.")
		{
			eq := equihash.Params{N: 32, K: 3}

			indices := []uint32{0, 511, 256, 1, 2, 3, 4, 5}
			packed := chain.PackSolution(indices, eq.IndexBits())

			if len(packed) != 9 {
				t.Fatalf("\t%s\tTest 0:\tShould pack 8 nine-bit indices into 9 bytes, got %d.", failed, len(packed))
			}
			t.Logf("\t%s\tTest 0:\tShould pack into 9 bytes.", success)

			unpacked, err := chain.UnpackSolution(packed, eq)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould unpack: %v.", failed, err)
			}
			for i := range indices {
				if unpacked[i] != indices[i] {
					t.Fatalf("\t%s\tTest 0:\tShould recover index %d, got %d want %d.", failed, i, unpacked[i], indices[i])
				}
			}
			t.Logf("\t%s\tTest 0:\tShould recover every index.", success)
		}

		t.Log("\tTest 1:\tWhen the packed bytes have the wrong length.")
		{
			eq := equihash.Params{N: 32, K: 3}

			if _, err := chain.UnpackSolution(make([]byte, 8), eq); err == nil {
				t.Fatalf("\t%s\tTest 1:\tShould reject a short solution.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reject a short solution.", success)
		}

		t.Log("\tTest 2:\tWhen checking the known bit pattern.")
		{
			// Two 9-bit indices 1 and 256: 000000001 100000000 packed
			// MSB first is 0x00 0xC0 0x00 with the tail zero padded.
			packed := chain.PackSolution([]uint32{1, 256}, 9)
			want := []byte{0x00, 0xc0, 0x00}

			for i := range want {
				if packed[i] != want[i] {
					t.Fatalf("\t%s\tTest 2:\tShould get %x, got %x.", failed, want, packed)
				}
			}
			t.Logf("\t%s\tTest 2:\tShould match the hand packed bytes.", success)
		}
	}
}

// bytesOf fills a digest-sized slice with one byte value.
func bytesOf(b byte) []byte {
	out := make([]byte, zcash.DigestSize)
	for i := range out {
		out[i] = b
	}
	return out
}
