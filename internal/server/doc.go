// Package server wires configuration, storage and the file system manager
// into an HTTP server.
//
// Startup order:
//  1. Build the zap logger from configuration
//  2. Create the private prometheus registry
//  3. Open the overlay base store (badger or memory upper layer over an
//     optional host directory or HTTP tree)
//  4. Build the vfs.Manager and start its lifecycle coordinator
//  5. Install middleware (request id, logging, recovery, metrics, CORS,
//     rate limiting) and register the /fs, /stream and /metrics routes
//
// Example Usage:
//
//	cfg, err := config.Load()
//	srv, err := server.NewServer(ctx, cfg)
//	go srv.Run()
//	defer srv.Shutdown(ctx)
package server
