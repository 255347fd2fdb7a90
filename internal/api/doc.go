// Package api exposes the chatbot over HTTP as a JSON API.
//
// Routes live under /api/v1. User identity arrives via the X-User-ID
// and X-User-Tier headers, set by an upstream gateway that owns
// authentication. The chat route enforces the tier's monthly message
// quota and answers 429 when it is exhausted.
//
// Middleware stack (outermost first):
//
//	Recovery → RequestID → Logging → CORS → RateLimit → Identity → Routes
//
// Health probes (/healthz, /readyz) bypass the stack.
package api
