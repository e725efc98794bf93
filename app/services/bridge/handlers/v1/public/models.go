package public

import (
	"github.com/zoroproject/zoro/foundation/zcash/chain"
)

// head is the API shape of the chain tip summary.
type head struct {
	Height        uint32 `json:"height"`
	BlockHash     string `json:"block_hash"`
	TotalWork     string `json:"total_work"`
	CurrentTarget string `json:"current_target"`
	StateDigest   string `json:"state_digest"`
	MMRDigest     string `json:"mmr_digest"`
}

// toHead constructs the API head from a chain state and accumulator digest.
func toHead(state chain.ChainState, mmrDigest string) head {
	return head{
		Height:        state.BlockHeight,
		BlockHash:     state.BestBlockHash.String(),
		TotalWork:     state.TotalWork.Hex(),
		CurrentTarget: state.CurrentTarget.Hex(),
		StateDigest:   state.Digest().String(),
		MMRDigest:     mmrDigest,
	}
}

// header is the API shape of one accepted block.
type header struct {
	Height uint32      `json:"height"`
	Block  chain.Block `json:"block"`
}
