// Package sharpflow is the reliable job-notification pipeline at the core of
// the SharpFlow lead-generation platform.
//
// # What lives here
//
// Two cooperating subsystems:
//
// Real-time fan-out hub (notify/):
//   - Connection Authenticator: verifies the handshake credential before a
//     socket is ever registered
//   - Connection Registry: identity -> set of live WebSocket connections
//   - Liveness Monitor: ping/pong heartbeat with one-interval eviction
//   - Message Router: typed inbound control frames, per-message isolation
//   - Broadcast Dispatcher: unicast to one identity or broadcast to all
//
// Rate-limited retrying executor (pkg/ratelimit, pkg/retry):
//   - fixed-window admission across second/minute/day quotas
//   - exponential backoff with failure classification; authentication,
//     permission and validation failures are never retried
//
// Background agents (lead discovery, profile research, email monitoring) call
// quota-constrained external services through the executor and report job
// progress to the owning user's live sessions through the hub. Delivery is
// best-effort and at-most-once per open connection; durable job state lives
// outside this process and is the reconciliation fallback for clients that
// were offline.
//
// # What does NOT live here
//
//   - the upstream protocols themselves (mail, people-search, LLM, chat-bot
//     APIs) — modeled only as operations that fail with a classified error
//   - persistence and payment flows
//   - multi-process fan-out; this is a single-process design
package sharpflow
