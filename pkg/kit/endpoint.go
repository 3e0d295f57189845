// Package kit binds normalization actions to transports. An action is
// written once as an Endpoint and exposed over HTTP and MCP.
package kit

import "context"

// Endpoint handles one decoded request and returns the response value
// the transport encodes.
type Endpoint func(ctx context.Context, request any) (response any, err error)

// Middleware decorates an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes mws so the first one runs first.
func Chain(mws ...Middleware) Middleware {
	return func(ep Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			ep = mws[i](ep)
		}
		return ep
	}
}
