/*
Package observability turns model lifecycle events into Prometheus metrics and
structured log entries.

Both are delivered as domain.Hooks, so they can be attached with
hmm.WithHooks and merged with Combine.
*/
package observability
