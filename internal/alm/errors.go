package alm

import "errors"

// Error taxonomy for the ALM REST client. Callers classify failures with
// errors.Is; every error returned by the client wraps exactly one of these.
var (
	// ErrAuth indicates rejected credentials or an expired session (401/403).
	ErrAuth = errors.New("alm: authentication rejected")

	// ErrNotFound indicates a referenced entity does not exist (404).
	ErrNotFound = errors.New("alm: entity not found")

	// ErrTransient indicates a network failure or a server-side error (5xx).
	// The client does not retry; the failure is surfaced to the caller.
	ErrTransient = errors.New("alm: transient server error")
)
