// Package main is the entry point for the deskfs server.
//
// deskfsd serves the desktop file system over HTTP: directory listings,
// collision-free creates and moves, archive mounts, drops and a
// websocket stream of folder changes.
//
// Configuration:
//   - Optional YAML file named by DESKFS_CONFIG or -config
//   - Environment variables (12-factor)
//   - CLI flags (override both)
//
// Usage:
//
//	# In-memory tree over a host directory
//	DESKFS_LOWER=dir DESKFS_LOWER_SOURCE=./public ./deskfsd
//
//	# Persistent tree, development logging
//	DESKFS_DATA_DIR=/var/lib/deskfs ./deskfsd -dev -port 9000
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
