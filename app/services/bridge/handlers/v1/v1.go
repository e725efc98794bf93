// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/zoroproject/zoro/app/services/bridge/handlers/v1/private"
	"github.com/zoroproject/zoro/app/services/bridge/handlers/v1/public"
	"github.com/zoroproject/zoro/business/bridge"
	"github.com/zoroproject/zoro/foundation/events"
	"github.com/zoroproject/zoro/foundation/web"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log    *zap.SugaredLogger
	Bridge *bridge.Bridge
	Evts   *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:    cfg.Log,
		Bridge: cfg.Bridge,
		Evts:   cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/head", pbl.Head)
	app.Handle(http.MethodGet, version, "/state/:height", pbl.StateByHeight)
	app.Handle(http.MethodGet, version, "/headers/list/:from/:size", pbl.HeadersByRange)
	app.Handle(http.MethodGet, version, "/proof/:height", pbl.InclusionProof)
}

// PrivateRoutes binds all the version 1 private routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:    cfg.Log,
		Bridge: cfg.Bridge,
	}

	app.Handle(http.MethodGet, version, "/node/status", prv.Status)
	app.Handle(http.MethodPost, version, "/node/headers", prv.SubmitHeaders)
}
