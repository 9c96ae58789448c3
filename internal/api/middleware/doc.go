// Package middleware provides HTTP middleware for the tracing demo service.
//
// Middleware stack includes:
//   - CORS: Cross-origin resource sharing that admits B3 headers
//   - RateLimit: Per-IP token bucket rate limiting with idle eviction
//   - RequestLogger: One zap line per request, tagged with trace ids
//
// Example Usage:
//
//	router.Use(middleware.RequestLogger(logger))
//	router.Use(tracing.HTTPMiddleware(tracer))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
