package host

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/wasmgate/proxyguest/bytestring"
	"github.com/wasmgate/proxyguest/errors"
	"github.com/wasmgate/proxyguest/types"
)

// fakeABI overrides individual ABI methods via function fields; everything
// else reports unimplemented.
type fakeABI struct {
	Unbound
	log         func(level types.LogLevel, message []byte) types.Status
	getBuffer   func(bt types.BufferType, start, maxSize uint32) ([]byte, types.Status)
	getPairs    func(mt types.MapType) ([]byte, types.Status)
	getShared   func(key []byte) ([]byte, uint32, types.Status)
	httpCall    func(upstream, headers, body, trailers []byte, timeout uint32) (uint32, types.Status)
	dequeue     func(queueID uint32) ([]byte, types.Status)
	currentTime func() (uint64, types.Status)
}

func (f *fakeABI) ProxyLog(level types.LogLevel, message []byte) types.Status {
	if f.log != nil {
		return f.log(level, message)
	}
	return types.StatusOK
}

func (f *fakeABI) ProxyGetBufferBytes(bt types.BufferType, start, maxSize uint32) ([]byte, types.Status) {
	if f.getBuffer != nil {
		return f.getBuffer(bt, start, maxSize)
	}
	return nil, types.StatusUnimplemented
}

func (f *fakeABI) ProxyGetHeaderMapPairs(mt types.MapType) ([]byte, types.Status) {
	if f.getPairs != nil {
		return f.getPairs(mt)
	}
	return nil, types.StatusUnimplemented
}

func (f *fakeABI) ProxyGetSharedData(key []byte) ([]byte, uint32, types.Status) {
	if f.getShared != nil {
		return f.getShared(key)
	}
	return nil, 0, types.StatusUnimplemented
}

func (f *fakeABI) ProxyHTTPCall(upstream, headers, body, trailers []byte, timeout uint32) (uint32, types.Status) {
	if f.httpCall != nil {
		return f.httpCall(upstream, headers, body, trailers, timeout)
	}
	return 0, types.StatusUnimplemented
}

func (f *fakeABI) ProxyDequeueSharedQueue(queueID uint32) ([]byte, types.Status) {
	if f.dequeue != nil {
		return f.dequeue(queueID)
	}
	return nil, types.StatusUnimplemented
}

func (f *fakeABI) ProxyGetCurrentTimeNanoseconds() (uint64, types.Status) {
	if f.currentTime != nil {
		return f.currentTime()
	}
	return 0, types.StatusUnimplemented
}

func TestCalls_LogLevelGate(t *testing.T) {
	var logged []types.LogLevel
	calls := NewCalls(&fakeABI{
		log: func(level types.LogLevel, _ []byte) types.Status {
			logged = append(logged, level)
			return types.StatusOK
		},
	})

	calls.SetLogLevel(types.LogLevelWarn)
	if err := calls.Log(types.LogLevelDebug, "dropped"); err != nil {
		t.Fatalf("gated log returned error: %v", err)
	}
	if err := calls.Log(types.LogLevelError, "kept"); err != nil {
		t.Fatalf("Log: %v", err)
	}

	if len(logged) != 1 || logged[0] != types.LogLevelError {
		t.Fatalf("host saw %v, want only the error-level message", logged)
	}
}

func TestCalls_GetBufferSentinels(t *testing.T) {
	calls := NewCalls(&fakeABI{
		getBuffer: func(bt types.BufferType, _, _ uint32) ([]byte, types.Status) {
			switch bt {
			case types.BufferTypeHTTPRequestBody:
				return []byte("hello"), types.StatusOK
			case types.BufferTypeVMConfiguration:
				return nil, types.StatusNotFound
			default:
				return nil, types.StatusBadArgument
			}
		},
	})

	body, err := calls.GetBuffer(types.BufferTypeHTTPRequestBody, 0, 1024)
	if err != nil || !body.EqualString("hello") {
		t.Fatalf("GetBuffer: body=%#v err=%v", body, err)
	}

	// NotFound is a sentinel, not an error.
	missing, err := calls.GetBuffer(types.BufferTypeVMConfiguration, 0, 1024)
	if err != nil || missing != nil {
		t.Fatalf("NotFound path: data=%v err=%v", missing, err)
	}

	_, err = calls.GetBuffer(types.BufferTypeUpstreamData, 0, 1024)
	var hce *errors.HostCallError
	if !stderrors.As(err, &hce) || hce.Status != types.StatusBadArgument {
		t.Fatalf("expected HostCallError with bad_argument, got %v", err)
	}
	if hce.Func != FnProxyGetBufferBytes {
		t.Fatalf("error names %q", hce.Func)
	}
}

func TestCalls_GetMapDecodeFailure(t *testing.T) {
	calls := NewCalls(&fakeABI{
		getPairs: func(types.MapType) ([]byte, types.Status) {
			return []byte{9, 0, 0, 0, 1}, types.StatusOK // size table truncated
		},
	})

	_, err := calls.GetMap(types.MapTypeHTTPRequestHeaders)
	var hre *errors.HostResponseError
	if !stderrors.As(err, &hre) || hre.Func != FnProxyGetHeaderMapPairs {
		t.Fatalf("expected HostResponseError, got %v", err)
	}
}

func TestCalls_GetMap(t *testing.T) {
	encoded := EncodeMap([]bytestring.Pair{
		{Key: bytestring.FromString("server"), Value: bytestring.FromString("envoy")},
	})
	calls := NewCalls(&fakeABI{
		getPairs: func(types.MapType) ([]byte, types.Status) { return encoded, types.StatusOK },
	})

	pairs, err := calls.GetMap(types.MapTypeHTTPResponseHeaders)
	if err != nil || len(pairs) != 1 || !pairs[0].Value.EqualString("envoy") {
		t.Fatalf("GetMap: pairs=%v err=%v", pairs, err)
	}
}

func TestCalls_GetSharedData(t *testing.T) {
	calls := NewCalls(&fakeABI{
		getShared: func(key []byte) ([]byte, uint32, types.Status) {
			if string(key) == "present" {
				return []byte("v"), 7, types.StatusOK
			}
			return nil, 0, types.StatusNotFound
		},
	})

	value, cas, err := calls.GetSharedData("present")
	if err != nil || !value.EqualString("v") || cas != 7 {
		t.Fatalf("GetSharedData: value=%#v cas=%d err=%v", value, cas, err)
	}

	value, cas, err = calls.GetSharedData("absent")
	if err != nil || value != nil || cas != 0 {
		t.Fatalf("absent key: value=%v cas=%d err=%v", value, cas, err)
	}
}

func TestCalls_DispatchHTTPCallHook(t *testing.T) {
	abi := &fakeABI{
		httpCall: func(upstream, _, _, _ []byte, timeout uint32) (uint32, types.Status) {
			if string(upstream) != "auth_cluster" || timeout != 5000 {
				return 0, types.StatusBadArgument
			}
			return 42, types.StatusOK
		},
	}
	calls := NewCalls(abi)

	var hooked []uint32
	calls.SetCalloutHook(func(token uint32) { hooked = append(hooked, token) })

	token, err := calls.DispatchHTTPCall("auth_cluster", nil, nil, nil, 5*time.Second)
	if err != nil || token != 42 {
		t.Fatalf("DispatchHTTPCall: token=%d err=%v", token, err)
	}
	if len(hooked) != 1 || hooked[0] != 42 {
		t.Fatalf("callout hook saw %v", hooked)
	}

	// A failed dispatch must not invoke the hook.
	abi.httpCall = func(_, _, _, _ []byte, _ uint32) (uint32, types.Status) {
		return 0, types.StatusInternalFailure
	}
	if _, err := calls.DispatchHTTPCall("down", nil, nil, nil, time.Second); err == nil {
		t.Fatal("expected error")
	}
	if len(hooked) != 1 {
		t.Fatalf("hook ran on failure: %v", hooked)
	}
}

func TestCalls_DequeueEmptySentinel(t *testing.T) {
	calls := NewCalls(&fakeABI{
		dequeue: func(uint32) ([]byte, types.Status) { return nil, types.StatusEmpty },
	})
	data, err := calls.DequeueSharedQueue(3)
	if err != nil || data != nil {
		t.Fatalf("empty queue: data=%v err=%v", data, err)
	}
}

func TestCalls_GetCurrentTime(t *testing.T) {
	want := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	calls := NewCalls(&fakeABI{
		currentTime: func() (uint64, types.Status) { return uint64(want.UnixNano()), types.StatusOK },
	})
	got, err := calls.GetCurrentTime()
	if err != nil || !got.Equal(want) {
		t.Fatalf("GetCurrentTime: got=%v err=%v", got, err)
	}
}

func TestAllocateMemory_Claim(t *testing.T) {
	buf := AllocateMemory(8)
	if len(buf) != 8 {
		t.Fatalf("AllocateMemory returned %d bytes", len(buf))
	}
	copy(buf, "abcdefgh")

	got := claimMemory(ptrOfBytes(buf), 8)
	if string(got) != "abcdefgh" {
		t.Fatalf("claimMemory returned %q", got)
	}

	// Second claim no longer finds the pin and copies instead.
	got = claimMemory(ptrOfBytes(buf), 4)
	if string(got) != "abcd" {
		t.Fatalf("unpinned claim returned %q", got)
	}
}
