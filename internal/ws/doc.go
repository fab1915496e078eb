// Package ws streams folder change notifications over WebSocket.
//
// Each connection owns one buffered listener. Subscribing a folder
// registers that listener with the watcher registry; closing the
// connection unregisters every folder it subscribed.
//
// Message Types (Client → Server):
//   - subscribe: start watching "folder"
//   - unsubscribe: stop watching "folder"
//   - ping: keep-alive ping
//
// Message Types (Server → Client):
//   - system: connection accepted, carries connection_id
//   - subscribed / unsubscribed: acknowledgements with subscription_id
//   - change: folder, added, removed and refresh
//   - pong: keep-alive reply
//   - error: malformed or unknown message
//
// Example Usage:
//
//	handler := ws.NewHandler(manager, metrics, logger)
//	router.GET("/stream", handler.HandleConnection)
package ws
