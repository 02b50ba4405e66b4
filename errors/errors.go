package errors

import (
	"fmt"

	"github.com/wasmgate/proxyguest/types"
)

// hostModule is the wasm module name all proxy ABI imports live under.
const hostModule = "env"

// HostCallError reports a host ABI call that returned a non-success status.
type HostCallError struct {
	Func   string
	Status types.Status
}

// Call returns nil for StatusOK and a *HostCallError otherwise. It is the
// standard way the host layer converts a raw status into an error value.
func Call(fn string, status types.Status) error {
	if status == types.StatusOK {
		return nil
	}
	return &HostCallError{Func: fn, Status: status}
}

func (e *HostCallError) Error() string {
	return fmt.Sprintf("call to host ABI function %q failed: %s (status %d)",
		hostModule+"."+e.Func, e.Status, uint32(e.Status))
}

// Is matches any *HostCallError, or a specific one when target names a
// function or status. A zero field on target acts as a wildcard.
func (e *HostCallError) Is(target error) bool {
	t, ok := target.(*HostCallError)
	if !ok {
		return false
	}
	if t.Func != "" && t.Func != e.Func {
		return false
	}
	if t.Status != types.StatusOK && t.Status != e.Status {
		return false
	}
	return true
}

// HostResponseError reports a host ABI call whose response payload could
// not be decoded.
type HostResponseError struct {
	Func  string
	Cause error
}

// Response wraps a decode failure for the given ABI function.
func Response(fn string, cause error) *HostResponseError {
	return &HostResponseError{Func: fn, Cause: cause}
}

func (e *HostResponseError) Error() string {
	return fmt.Sprintf("failed to parse response from host ABI function %q: %v",
		hostModule+"."+e.Func, e.Cause)
}

func (e *HostResponseError) Unwrap() error {
	return e.Cause
}

// Is matches any *HostResponseError, or one for a specific function.
func (e *HostResponseError) Is(target error) bool {
	t, ok := target.(*HostResponseError)
	if !ok {
		return false
	}
	return t.Func == "" || t.Func == e.Func
}
