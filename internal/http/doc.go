// Package http exposes the file system manager over a JSON REST API.
//
// Endpoints:
//   - Health: /health
//   - Tree: /fs/stat, /fs/list, /fs/read
//   - Changes: /fs/create, /fs/move, /fs/mkdir, /fs/drop, /fs/reset
//   - Mounts: /fs/mount (POST, DELETE), /fs/mounts
//   - Clipboard: /fs/paste (GET, POST)
//
// Paths are passed as the "path" query parameter or in the JSON body and
// are always interpreted from the root of the tree. Storage errors map to
// HTTP status codes in statusFor.
//
// Example Usage:
//
//	handlers := http.NewHandlers(manager, metrics, logger)
//	handlers.Register(router)
package http
