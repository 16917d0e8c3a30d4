package controlplane

import "errors"

var (
	// ErrProviderUnavailable indicates the provider could not be reached or used.
	ErrProviderUnavailable = errors.New("promiseretry: config provider unavailable")
	// ErrPolicyNotFound indicates the provider has no config for the requested key.
	ErrPolicyNotFound = errors.New("promiseretry: retry config not found")
	// ErrPolicyFetchFailed indicates a provider failure other than unavailability.
	ErrPolicyFetchFailed = errors.New("promiseretry: retry config fetch failed")
)
