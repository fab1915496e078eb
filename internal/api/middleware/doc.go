// Package middleware provides the gin middleware stack of the deskfs API.
//
// Middleware stack includes:
//   - RequestID: propagates or assigns an X-Request-ID
//   - Logger: structured request logging through zap
//   - CORS: cross-origin resource sharing with configurable origins
//   - RateLimit: per-IP token bucket rate limiting with idle eviction
//
// Example Usage:
//
//	router.Use(middleware.RequestID(), middleware.Logger(logger))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
