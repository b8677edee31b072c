// Package remote wraps the authoritative recommendation service's REST API.
//
// Every call returns either data or a classified *Error: connectivity-class
// failures (timeouts, DNS, unreachable hosts, gateway errors) tell the sync
// engine to keep optimistic state and queue a replay; rejection-class
// failures (any other non-2xx response) tell it to roll back. The client
// itself is stateless and never retries.
package remote
