package rpcserver

import (
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/rpc"
)

// NewHandler builds the JSON-RPC HTTP handler exposing the "relayer" and
// "health" namespaces, with corsOrigins fed straight into go-ethereum's
// own HTTP handler stack (the same CORS/vhost machinery eth_* nodes use).
// A "*" entry disables the origin allow-list check entirely.
func NewHandler(relayerSvc *RelayerService, healthSvc *HealthService, corsOrigins []string) (http.Handler, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName("relayer", relayerSvc); err != nil {
		return nil, fmt.Errorf("register relayer namespace: %w", err)
	}
	if err := srv.RegisterName("health", healthSvc); err != nil {
		return nil, fmt.Errorf("register health namespace: %w", err)
	}

	return rpc.NewHTTPHandlerStack(srv, corsOrigins, nil, nil), nil
}
