// Package errors provides structured error types for failed host ABI calls.
//
// Two recoverable error shapes exist, mirroring the two ways an outbound
// capability call can fail:
//
//   - HostCallError: the host returned a non-success status code.
//   - HostResponseError: the call succeeded but its payload failed to decode.
//
// Both carry the ABI function name so callers can log precisely which
// capability failed. Contract violations (duplicate context ids, unknown
// callout tokens, and similar host/plugin desynchronization) are not
// errors in this sense: the dispatch package reports those as fatal panics
// because no local recovery is meaningful.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
