// Package agent holds the contract between the notification pipeline and the
// collaborating agents that do the actual lead-generation work. Agents run
// their external calls through a Caller, which binds one credential scope to
// a rate limiter and retry executor, and report progress through a Tracker,
// which remembers the latest per-agent status for each user and pushes
// updates to that user's live connections.
//
// The agents' own protocols (scraping, enrichment, inbox polling) do not
// live here; this package only names them and carries their status.
package agent
