// Package llm provides a minimal client for OpenRouter-compatible chat
// completion APIs. Requests always demand JSON output; transient failures
// (rate limits, server errors, timeouts, empty completions) are retried with
// exponential backoff, honoring Retry-After when the server provides one.
package llm
