// Package notify implements the real-time job-notification hub: the per-user
// WebSocket fan-out that pushes background-agent progress to live client
// sessions.
//
// The hub is an explicit service instance constructed once at process start
// and passed by reference to everything that broadcasts; there are no hidden
// globals. It composes four pieces:
//
//   - Registry: identity -> set of live connections (multiple tabs/devices)
//   - liveness monitor: ping/pong heartbeat on a fixed tick; a connection
//     that misses one full interval is evicted
//   - Router: typed inbound control frames (ping, subscribe_to_jobs,
//     get_agent_status) with per-message failure isolation
//   - dispatcher: UnicastToUser / BroadcastAll over registry snapshots
//
// Delivery is best-effort and at-most-once per currently open connection.
// Unicasting to an identity with no connections is a silent no-op: durable
// job state lives in the application database and is what a reconnecting
// client reconciles against. Writes to one connection preserve call order;
// no ordering is promised across connections.
//
// Handshake authentication happens before a socket ever reaches the
// Registry: the credential arrives as a query parameter and failures close
// the socket with policy-violation code 1008, distinct from normal closure.
package notify
