package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/wasmgate/proxyguest/types"
)

func TestCall_OKIsNil(t *testing.T) {
	if err := Call("proxy_log", types.StatusOK); err != nil {
		t.Fatalf("expected nil for StatusOK, got %v", err)
	}
}

func TestHostCallError_Message(t *testing.T) {
	err := Call("proxy_http_call", types.StatusInternalFailure)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, `"env.proxy_http_call"`) {
		t.Fatalf("message missing function name: %s", msg)
	}
	if !strings.Contains(msg, "internal_failure") || !strings.Contains(msg, "status 10") {
		t.Fatalf("message missing status: %s", msg)
	}
}

func TestHostCallError_Is(t *testing.T) {
	err := Call("proxy_get_property", types.StatusBadArgument)

	if !stderrors.Is(err, &HostCallError{}) {
		t.Fatal("wildcard match failed")
	}
	if !stderrors.Is(err, &HostCallError{Func: "proxy_get_property"}) {
		t.Fatal("function match failed")
	}
	if !stderrors.Is(err, &HostCallError{Status: types.StatusBadArgument}) {
		t.Fatal("status match failed")
	}
	if stderrors.Is(err, &HostCallError{Func: "proxy_log"}) {
		t.Fatal("mismatched function should not match")
	}
	if stderrors.Is(err, &HostCallError{Status: types.StatusEmpty}) {
		t.Fatal("mismatched status should not match")
	}
}

func TestHostResponseError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("truncated map header")
	err := Response("proxy_get_header_map_pairs", cause)

	if !stderrors.Is(err, cause) {
		t.Fatal("Unwrap chain broken")
	}
	if !stderrors.Is(err, &HostResponseError{}) {
		t.Fatal("wildcard match failed")
	}
	if !strings.Contains(err.Error(), "truncated map header") {
		t.Fatalf("message missing cause: %s", err.Error())
	}

	var hre *HostResponseError
	if !stderrors.As(err, &hre) || hre.Func != "proxy_get_header_map_pairs" {
		t.Fatal("errors.As failed")
	}
}
