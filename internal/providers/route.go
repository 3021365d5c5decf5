package providers

import (
	"context"

	"github.com/ncecere/model_router/internal/models"
)

// Route is a built provider ready to serve requests.
type Route struct {
	Provider    string
	DisplayName string
	Handler     Handler
	Health      func(ctx context.Context) error
}

// Model reports the route's effective model without touching the network.
func (r Route) Model() models.ResolvedModel {
	if r.Handler == nil {
		return models.ResolvedModel{}
	}
	return r.Handler.GetModel()
}
