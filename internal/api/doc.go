// Package api exposes the voice agent over HTTP.
//
// Middleware stack (outermost first):
//
//	Recovery → RequestID → Logging → CORS → RateLimit → Routes
//
// RequestID runs before Logging so request_id is available in log
// attributes. CORS runs before RateLimit so preflight OPTIONS gets proper
// CORS headers. Health probes are routed around the stack.
package api
