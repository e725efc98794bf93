// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zoroproject/zoro/business/bridge"
	"github.com/zoroproject/zoro/business/bridge/store"
	"github.com/zoroproject/zoro/business/web/errs"
	"github.com/zoroproject/zoro/foundation/events"
	"github.com/zoroproject/zoro/foundation/web"
)

// Handlers manages the set of public bridge endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	Bridge *bridge.Bridge
	WS     websocket.Upgrader
	Evts   *events.Events
}

// Events handles a web socket to provide chain tip events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteJSON(ev); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Head returns the current chain tip summary.
func (h Handlers) Head(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	state := h.Bridge.Head()
	acc := h.Bridge.Accumulator()

	return web.Respond(ctx, w, toHead(state, acc.Digest().String()), http.StatusOK)
}

// StateByHeight returns the chain state reached after the block at the
// requested height.
func (h Handlers) StateByHeight(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	height, err := heightParam(r, "height")
	if err != nil {
		return err
	}

	state, err := h.Bridge.StateAt(height)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return err
	}

	return web.Respond(ctx, w, state, http.StatusOK)
}

// HeadersByRange returns up to :size accepted blocks starting at height
// :from.
func (h Handlers) HeadersByRange(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, err := heightParam(r, "from")
	if err != nil {
		return err
	}

	size, err := strconv.Atoi(web.Param(r, "size"))
	if err != nil || size < 1 {
		return errs.NewTrusted(errors.New("size must be a positive integer"), http.StatusBadRequest)
	}

	const maxRange = 500
	if size > maxRange {
		size = maxRange
	}

	blocks, err := h.Bridge.BlocksRange(from, size)
	if err != nil {
		return err
	}

	headers := make([]header, len(blocks))
	for i, block := range blocks {
		headers[i] = header{
			Height: from + uint32(i),
			Block:  block,
		}
	}

	return web.Respond(ctx, w, headers, http.StatusOK)
}

// InclusionProof returns the accumulator inclusion proof for the block at
// the requested height.
func (h Handlers) InclusionProof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	height, err := heightParam(r, "height")
	if err != nil {
		return err
	}

	proof, err := h.Bridge.InclusionProof(height)
	if err != nil {
		if errors.Is(err, bridge.ErrNoProofForTip) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return err
	}

	return web.Respond(ctx, w, proof, http.StatusOK)
}

// heightParam parses a height path parameter.
func heightParam(r *http.Request, name string) (uint32, error) {
	v, err := strconv.ParseUint(web.Param(r, name), 10, 32)
	if err != nil {
		return 0, errs.NewTrusted(errors.New(name+" must be a block height"), http.StatusBadRequest)
	}
	return uint32(v), nil
}
