// Package ratelimit provides fixed-window admission control across multiple
// time granularities (per-second, per-minute, per-day).
//
// One Limiter guards one external credential scope: every call attempt made
// with that credential must pass Wait before hitting the upstream API. Each
// window keeps (count, resetAt); counters reset to zero exactly at the window
// boundary and resetAt only moves forward. When any window is full, Wait
// parks the caller until that window rolls over and then re-checks all
// windows, so a blocked caller is always eventually admitted.
//
// This is deliberately a fixed-window limiter, matching upstream quota
// accounting: bursts of up to roughly twice a window's max are possible
// across a window boundary. Callers that need smoother pacing should lower
// the per-second max rather than assume sliding-window behavior.
package ratelimit
