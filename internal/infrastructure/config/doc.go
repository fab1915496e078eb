// Package config provides 12-factor configuration for the deskfs daemon.
//
// Values start from Default, are overlaid by an optional YAML file named in
// DESKFS_CONFIG and finally by environment variables. The merged result is
// validated before it is returned.
//
// Configuration Sections:
//   - Server: HTTP listen address
//   - Logging: level and output format
//   - Storage: writable upper layer and optional read-only lower layer
//   - VFS: temp directory, collision cap, pinned mount globs
//   - RateLimit: per-IP rate limiting
//   - CORS: allowed origins
//
// Example Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("deskfs listening on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - LOG_LEVEL, LOG_DEV
//   - DESKFS_DATA_DIR, DESKFS_LOWER, DESKFS_LOWER_SOURCE, DESKFS_INDEX_PATH,
//     DESKFS_HTTP_TIMEOUT, DESKFS_HTTP_RETRIES, DESKFS_BREAKER_THRESHOLD,
//     DESKFS_BREAKER_COOLDOWN
//   - DESKFS_TEMP_PATH, DESKFS_MAX_COLLISIONS, DESKFS_PINNED_MOUNTS
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - CORS_ORIGINS
package config
