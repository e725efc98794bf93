package mmr_test

import (
	"testing"

	"github.com/zoroproject/zoro/foundation/zcash"
	"github.com/zoroproject/zoro/foundation/zcash/mmr"
)

func Test_ProofRoundTrip(t *testing.T) {
	t.Log("Given the need to prove leaf inclusion against the peaks.")
	{
		t.Log("\tTest 0:\tWhen proving every leaf of ranges from 1 to 12 leaves.")
		{
			for count := 1; count <= 12; count++ {
				leaves := make([]zcash.Digest, count)
				acc := mmr.New()
				for i := range leaves {
					leaves[i] = leafOf(byte(i + 1))
					acc = acc.Add(leaves[i])
				}

				for idx := 0; idx < count; idx++ {
					proof, err := mmr.BuildProof(mmr.NodeHash, leaves, uint64(idx))
					if err != nil {
						t.Fatalf("\t%s\tTest 0:\tShould build proof %d/%d: %v.", failed, idx, count, err)
					}

					if !mmr.VerifyProof(mmr.NodeHash, leaves[idx], proof) {
						t.Fatalf("\t%s\tTest 0:\tShould verify proof %d/%d.", failed, idx, count)
					}

					if !acc.MatchesPeaks(proof.PeaksHashes) {
						t.Fatalf("\t%s\tTest 0:\tShould match the accumulator peaks for %d/%d.", failed, idx, count)
					}
				}
			}
			t.Logf("\t%s\tTest 0:\tShould prove and verify every leaf of every range.", success)
		}

		t.Log("\tTest 1:\tWhen the proof is used for the wrong leaf.")
		{
			leaves := []zcash.Digest{leafOf(1), leafOf(2), leafOf(3), leafOf(4), leafOf(5)}

			proof, err := mmr.BuildProof(mmr.NodeHash, leaves, 2)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould build the proof: %v.", failed, err)
			}

			if mmr.VerifyProof(mmr.NodeHash, leaves[3], proof) {
				t.Fatalf("\t%s\tTest 1:\tShould reject a different leaf.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reject a different leaf.", success)
		}

		t.Log("\tTest 2:\tWhen the proof is tampered with.")
		{
			leaves := []zcash.Digest{leafOf(1), leafOf(2), leafOf(3), leafOf(4), leafOf(5), leafOf(6), leafOf(7)}

			proof, err := mmr.BuildProof(mmr.NodeHash, leaves, 4)
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould build the proof: %v.", failed, err)
			}

			tampered := proof
			tampered.SiblingsHashes = append([]zcash.Digest(nil), proof.SiblingsHashes...)
			tampered.SiblingsHashes[0][0] ^= 0x01
			if mmr.VerifyProof(mmr.NodeHash, leaves[4], tampered) {
				t.Fatalf("\t%s\tTest 2:\tShould reject a corrupted sibling.", failed)
			}

			// A corrupted peak may not break the climb itself, but it can
			// never match the peaks of the real accumulator.
			acc := mmr.New()
			for _, leaf := range leaves {
				acc = acc.Add(leaf)
			}

			tampered = proof
			tampered.PeaksHashes = append([]zcash.Digest(nil), proof.PeaksHashes...)
			tampered.PeaksHashes[0][0] ^= 0x01
			if acc.MatchesPeaks(tampered.PeaksHashes) {
				t.Fatalf("\t%s\tTest 2:\tShould reject corrupted peaks.", failed)
			}

			tampered = proof
			tampered.SiblingsHashes = append(append([]zcash.Digest(nil), proof.SiblingsHashes...), leafOf(9))
			if mmr.VerifyProof(mmr.NodeHash, leaves[4], tampered) {
				t.Fatalf("\t%s\tTest 2:\tShould reject extra siblings.", failed)
			}

			tampered = proof
			tampered.LeafIndex = 5
			if mmr.VerifyProof(mmr.NodeHash, leaves[4], tampered) {
				t.Fatalf("\t%s\tTest 2:\tShould reject a shifted leaf index.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould reject every tampered proof.", success)
		}

		t.Log("\tTest 3:\tWhen the requested leaf does not exist.")
		{
			leaves := []zcash.Digest{leafOf(1)}

			if _, err := mmr.BuildProof(mmr.NodeHash, leaves, 1); err == nil {
				t.Fatalf("\t%s\tTest 3:\tShould reject an out of range index.", failed)
			}
			if _, err := mmr.BuildProof(mmr.NodeHash, nil, 0); err == nil {
				t.Fatalf("\t%s\tTest 3:\tShould reject an empty range.", failed)
			}
			t.Logf("\t%s\tTest 3:\tShould reject impossible proof requests.", success)
		}
	}
}

func Test_ProofShape(t *testing.T) {
	t.Log("Given the need to pin the proof layout for interchange.")
	{
		t.Log("\tTest 1:\tWhen proving inside a seven leaf range.")
		{
			// Seven leaves make three mountains: four, two and one leaf.
			leaves := make([]zcash.Digest, 7)
			for i := range leaves {
				leaves[i] = leafOf(byte(i + 1))
			}

			proof, err := mmr.BuildProof(mmr.NodeHash, leaves, 1)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould build the proof: %v.", failed, err)
			}

			if proof.LeafCount != 7 || proof.LeafIndex != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould record the leaf coordinates.", failed)
			}
			if len(proof.PeaksHashes) != 3 {
				t.Fatalf("\t%s\tTest 1:\tShould carry three peaks, got %d.", failed, len(proof.PeaksHashes))
			}
			if len(proof.SiblingsHashes) != 2 {
				t.Fatalf("\t%s\tTest 1:\tShould climb two levels to the peak, got %d siblings.", failed, len(proof.SiblingsHashes))
			}
			t.Logf("\t%s\tTest 1:\tShould carry three peaks and two siblings.", success)

			// The last leaf is itself a peak: no siblings at all.
			proof, err = mmr.BuildProof(mmr.NodeHash, leaves, 6)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould build the peak leaf proof: %v.", failed, err)
			}
			if len(proof.SiblingsHashes) != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould need no siblings for a peak leaf, got %d.", failed, len(proof.SiblingsHashes))
			}
			if !mmr.VerifyProof(mmr.NodeHash, leaves[6], proof) {
				t.Fatalf("\t%s\tTest 1:\tShould verify the peak leaf proof.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould prove a peak leaf with no siblings.", success)
		}
	}
}
