// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/zoroproject/zoro/business/bridge"
	"github.com/zoroproject/zoro/business/web/errs"
	"github.com/zoroproject/zoro/foundation/web"
	"github.com/zoroproject/zoro/foundation/zcash/chain"
)

// Handlers manages the set of private bridge endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	Bridge *bridge.Bridge
}

// submitHeaders is the ingestion payload: the blocks to append, optional
// per-block sorted index hints, and an optional attestation covering the
// starting state.
type submitHeaders struct {
	Blocks      []chain.Block `json:"blocks" validate:"required,min=1"`
	SortedHints [][]uint32    `json:"sorted_hints,omitempty"`
	Attestation hexutil.Bytes `json:"attestation,omitempty"`
}

// Status returns the head summary for peer coordination.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	state := h.Bridge.Head()
	acc := h.Bridge.Accumulator()

	status := struct {
		Height      uint32 `json:"height"`
		BlockHash   string `json:"block_hash"`
		StateDigest string `json:"state_digest"`
		MMRDigest   string `json:"mmr_digest"`
	}{
		Height:      state.BlockHeight,
		BlockHash:   state.BestBlockHash.String(),
		StateDigest: state.Digest().String(),
		MMRDigest:   acc.Digest().String(),
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// SubmitHeaders validates and appends a batch of blocks to the chain.
func (h Handlers) SubmitHeaders(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var payload submitHeaders
	if err := web.Decode(r, &payload); err != nil {
		return err
	}

	h.Log.Infow("submit headers", "traceid", v.TraceID, "blocks", len(payload.Blocks), "attested", len(payload.Attestation) > 0)

	state, err := h.Bridge.SubmitBlocks(payload.Blocks, payload.SortedHints, payload.Attestation)
	if err != nil {
		return errs.NewTrusted(err, http.StatusUnprocessableEntity)
	}

	resp := struct {
		Height    uint32 `json:"height"`
		BlockHash string `json:"block_hash"`
	}{
		Height:    state.BlockHeight,
		BlockHash: state.BestBlockHash.String(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
