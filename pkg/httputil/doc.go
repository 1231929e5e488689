// Package httputil provides the HTTP plumbing used by polling feeds.
//
// # Overview
//
//   - [Client]: GET with default headers, a bounded body, and retries
//   - [Retry]: Automatic retry with exponential backoff
//
// # Retry
//
// [Retry] re-runs an operation only when it fails with a [RetryableError]:
//
//   - Network errors
//   - 5xx server errors
//   - 429 rate limit responses
//
// The delay doubles after each attempt, capped by [Policy.MaxDelay]:
//
//	err := httputil.Retry(ctx, httputil.DefaultPolicy, func() error {
//	    return poll()
//	})
//
// Errors carry codes from the errors package: NETWORK_ERROR for transport
// and status failures, NOT_FOUND for 404, TIMEOUT when the context ends
// first.
package httputil
