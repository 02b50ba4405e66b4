package dispatch

import (
	"fmt"
	"testing"

	"github.com/wasmgate/proxyguest/host"
	"github.com/wasmgate/proxyguest/types"
)

// effectiveABI records set-effective-context pushes; everything else is
// unimplemented.
type effectiveABI struct {
	host.Unbound
	effective     []uint32
	failEffective bool
}

func (a *effectiveABI) ProxySetEffectiveContext(contextID uint32) types.Status {
	if a.failEffective {
		return types.StatusBadArgument
	}
	a.effective = append(a.effective, contextID)
	return types.StatusOK
}

func newTestDispatcher() (*Dispatcher, *effectiveABI) {
	abi := &effectiveABI{}
	return New(host.NewCalls(abi)), abi
}

// Recording handlers.

type testRoot struct {
	BaseRootHandler
	events      []string
	httpChild   HTTPHandler
	streamChild StreamHandler
	contextType *types.ContextType
}

func (r *testRoot) OnVMStart(size int) bool {
	r.events = append(r.events, fmt.Sprintf("vm_start:%d", size))
	return true
}

func (r *testRoot) OnTick() { r.events = append(r.events, "tick") }

func (r *testRoot) OnQueueReady(queueID uint32) {
	r.events = append(r.events, fmt.Sprintf("queue_ready:%d", queueID))
}

func (r *testRoot) OnHTTPCallResponse(token uint32, _, _, _ int) {
	r.events = append(r.events, fmt.Sprintf("call_response:%d", token))
}

func (r *testRoot) NewHTTPHandler(uint32) HTTPHandler     { return r.httpChild }
func (r *testRoot) NewStreamHandler(uint32) StreamHandler { return r.streamChild }

func (r *testRoot) HandlerType() (types.ContextType, bool) {
	if r.contextType == nil {
		return 0, false
	}
	return *r.contextType, true
}

type testHTTP struct {
	BaseHTTPHandler
	events []string
	action types.Action
}

func (h *testHTTP) OnRequestHeaders(numHeaders int, endOfStream bool) types.Action {
	h.events = append(h.events, fmt.Sprintf("request_headers:%d:%t", numHeaders, endOfStream))
	return h.action
}

func (h *testHTTP) OnDone() bool {
	h.events = append(h.events, "done")
	return false
}

func (h *testHTTP) OnHTTPCallResponse(token uint32, _, _, _ int) {
	h.events = append(h.events, fmt.Sprintf("call_response:%d", token))
}

type testStream struct {
	BaseStreamHandler
	events []string
}

func (s *testStream) OnDownstreamData(dataSize int, endOfStream bool) types.Action {
	s.events = append(s.events, fmt.Sprintf("downstream_data:%d:%t", dataSize, endOfStream))
	return types.ActionPause
}

// expectViolation runs fn and fails unless it panics with a
// *ContractViolation naming the given invariant.
func expectViolation(t *testing.T, invariant string, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected contract violation %q, no panic", invariant)
		}
		cv, ok := r.(*ContractViolation)
		if !ok {
			t.Fatalf("panic value %v (%T), want *ContractViolation", r, r)
		}
		if cv.Invariant != invariant {
			t.Fatalf("violated %q, want %q", cv.Invariant, invariant)
		}
	}()
	fn()
}

func TestOnContextCreate_RootFactory(t *testing.T) {
	d, _ := newTestDispatcher()
	root := &testRoot{}
	d.SetRootFactory(func(contextID uint32) RootHandler {
		if contextID != 1 {
			t.Fatalf("factory got context id %d", contextID)
		}
		return root
	})

	d.OnContextCreate(1, 0)
	if !d.OnVMStart(1, 128) {
		t.Fatal("OnVMStart not forwarded")
	}
	if len(root.events) != 1 || root.events[0] != "vm_start:128" {
		t.Fatalf("root saw %v", root.events)
	}
	if d.ActiveContextID() != 1 {
		t.Fatalf("active id = %d", d.ActiveContextID())
	}
}

func TestOnContextCreate_NopRootFallback(t *testing.T) {
	d, _ := newTestDispatcher()

	// No factory configured: a silent root accepts everything.
	d.OnContextCreate(1, 0)
	if !d.OnVMStart(1, 0) || !d.OnConfigure(1, 0) {
		t.Fatal("no-op root rejected lifecycle events")
	}
	d.OnTick(1)
	if !d.OnDone(1) {
		t.Fatal("no-op root deferred done")
	}
}

func TestOnContextCreate_DuplicateIDFatal(t *testing.T) {
	d, _ := newTestDispatcher()
	d.OnContextCreate(1, 0)
	expectViolation(t, invariantDuplicateContext, func() {
		d.OnContextCreate(1, 0)
	})

	// The same id in a different role is just as fatal (one handler per
	// id across all tables).
	d.SetHTTPFactory(func(_, _ uint32) HTTPHandler { return &testHTTP{} })
	expectViolation(t, invariantDuplicateContext, func() {
		d.OnContextCreate(1, 1)
	})
}

func TestOnContextCreate_ChildRequiresLiveRoot(t *testing.T) {
	d, _ := newTestDispatcher()
	d.SetHTTPFactory(func(_, _ uint32) HTTPHandler { return &testHTTP{} })
	expectViolation(t, invariantInvalidRoot, func() {
		d.OnContextCreate(2, 99)
	})
}

func TestConstruction_GlobalHTTPFactoryPrecedence(t *testing.T) {
	d, _ := newTestDispatcher()

	// Root offers ad-hoc stream synthesis that always succeeds, but a
	// global HTTP factory is configured: the global factory must win.
	root := &testRoot{streamChild: &testStream{}}
	d.SetRootFactory(func(uint32) RootHandler { return root })
	httpHandler := &testHTTP{}
	d.SetHTTPFactory(func(contextID, rootContextID uint32) HTTPHandler {
		if contextID != 2 || rootContextID != 1 {
			t.Fatalf("http factory got (%d, %d)", contextID, rootContextID)
		}
		return httpHandler
	})

	d.OnContextCreate(1, 0)
	d.OnContextCreate(2, 1)

	if got := d.OnRequestHeaders(2, 3, false); got != types.ActionContinue {
		t.Fatalf("OnRequestHeaders = %v", got)
	}
	if len(httpHandler.events) != 1 {
		t.Fatalf("http handler saw %v", httpHandler.events)
	}
}

func TestConstruction_GlobalStreamFactory(t *testing.T) {
	d, _ := newTestDispatcher()
	d.OnContextCreate(1, 0)

	stream := &testStream{}
	d.SetStreamFactory(func(_, _ uint32) StreamHandler { return stream })
	d.OnContextCreate(2, 1)

	if got := d.OnDownstreamData(2, 10, true); got != types.ActionPause {
		t.Fatalf("OnDownstreamData = %v", got)
	}
	if len(stream.events) != 1 || stream.events[0] != "downstream_data:10:true" {
		t.Fatalf("stream saw %v", stream.events)
	}
}

func TestConstruction_AdHocPrefersHTTP(t *testing.T) {
	d, _ := newTestDispatcher()

	// No global factories; the root offers both child kinds. HTTP wins.
	httpChild := &testHTTP{}
	root := &testRoot{httpChild: httpChild, streamChild: &testStream{}}
	d.SetRootFactory(func(uint32) RootHandler { return root })

	d.OnContextCreate(1, 0)
	d.OnContextCreate(2, 1)

	d.OnRequestHeaders(2, 1, true)
	if len(httpChild.events) != 1 {
		t.Fatalf("expected http child to receive the event, saw %v", httpChild.events)
	}
}

func TestConstruction_MissingContextTypeFatal(t *testing.T) {
	d, _ := newTestDispatcher()
	d.SetRootFactory(func(uint32) RootHandler { return &testRoot{} })
	d.OnContextCreate(1, 0)

	expectViolation(t, invariantMissingType, func() {
		d.OnContextCreate(2, 1)
	})
}

func TestConstruction_TypedFactoryNilFatal(t *testing.T) {
	d, _ := newTestDispatcher()
	streamType := types.ContextTypeStream
	d.SetRootFactory(func(uint32) RootHandler { return &testRoot{contextType: &streamType} })
	d.OnContextCreate(1, 0)

	expectViolation(t, invariantNilChild, func() {
		d.OnContextCreate(2, 1)
	})
}

func TestRouting_LifecycleScenario(t *testing.T) {
	d, _ := newTestDispatcher()
	d.SetRootFactory(func(uint32) RootHandler { return &testRoot{} })
	httpHandler := &testHTTP{}
	d.SetHTTPFactory(func(_, _ uint32) HTTPHandler { return httpHandler })

	d.OnContextCreate(1, 0)
	d.OnContextCreate(2, 1)

	d.OnRequestHeaders(2, 5, false)
	if d.ActiveContextID() != 2 {
		t.Fatalf("active id = %d after routing to 2", d.ActiveContextID())
	}

	// Handler return values pass through verbatim.
	if d.OnDone(2) {
		t.Fatal("OnDone passthrough lost the handler's false")
	}

	d.OnContextDelete(2)
	expectViolation(t, invariantUnknownContext, func() {
		d.OnRequestHeaders(2, 1, false)
	})
}

func TestRouting_RoleMismatchFatal(t *testing.T) {
	d, _ := newTestDispatcher()
	stream := &testStream{}
	d.SetStreamFactory(func(_, _ uint32) StreamHandler { return stream })
	d.OnContextCreate(1, 0)
	d.OnContextCreate(2, 1)

	// A stream id is not in the root or HTTP tables.
	expectViolation(t, invariantUnknownContext, func() { d.OnTick(2) })
	expectViolation(t, invariantUnknownContext, func() { d.OnRequestBody(2, 1, true) })
}

func TestOnContextDelete_SecondDeleteFatal(t *testing.T) {
	d, _ := newTestDispatcher()
	d.OnContextCreate(1, 0)
	d.OnContextDelete(1)
	expectViolation(t, invariantUnknownContext, func() {
		d.OnContextDelete(1)
	})
}

func TestCallout_ResolveOnce(t *testing.T) {
	d, abi := newTestDispatcher()
	root := &testRoot{}
	d.SetRootFactory(func(uint32) RootHandler { return root })
	d.OnContextCreate(5, 0)

	// Make context 5 active, then register a callout the way the host
	// call layer does after a successful dispatch.
	d.OnTick(5)
	d.RegisterCallout(42)

	d.OnHTTPCallResponse(42, 1, 0, 0)
	if len(root.events) != 2 || root.events[1] != "call_response:42" {
		t.Fatalf("root saw %v", root.events)
	}
	// The host was told which context the response is scoped to, before
	// the handler ran.
	if len(abi.effective) != 1 || abi.effective[0] != 5 {
		t.Fatalf("effective context pushes: %v", abi.effective)
	}

	// The token was consumed; a second response for it is a protocol
	// violation.
	expectViolation(t, invariantUnknownToken, func() {
		d.OnHTTPCallResponse(42, 0, 0, 0)
	})
}

func TestCallout_DuplicateTokenFatal(t *testing.T) {
	d, _ := newTestDispatcher()
	d.OnContextCreate(1, 0)
	d.OnTick(1)
	d.RegisterCallout(7)
	expectViolation(t, invariantDuplicateToken, func() {
		d.RegisterCallout(7)
	})
}

func TestCallout_StaleContextDroppedSilently(t *testing.T) {
	d, abi := newTestDispatcher()
	root := &testRoot{}
	d.SetRootFactory(func(uint32) RootHandler { return root })
	d.OnContextCreate(5, 0)
	d.OnTick(5)
	d.RegisterCallout(42)

	// The issuing context dies while the call is outstanding.
	d.OnContextDelete(5)

	d.OnHTTPCallResponse(42, 0, 0, 0) // no panic, no handler call
	for _, ev := range root.events {
		if ev == "call_response:42" {
			t.Fatal("stale callback reached the handler")
		}
	}
	if len(abi.effective) != 0 {
		t.Fatalf("effective context pushed for dropped callback: %v", abi.effective)
	}

	// Dropping still consumed the token.
	expectViolation(t, invariantUnknownToken, func() {
		d.OnHTTPCallResponse(42, 0, 0, 0)
	})
}

func TestCallout_TracksIssuingContext(t *testing.T) {
	d, _ := newTestDispatcher()
	first := &testRoot{}
	second := &testRoot{}
	roots := map[uint32]RootHandler{10: first, 20: second}
	d.SetRootFactory(func(contextID uint32) RootHandler { return roots[contextID] })
	d.OnContextCreate(10, 0)
	d.OnContextCreate(20, 0)

	d.OnTick(10)
	d.RegisterCallout(1)
	d.OnTick(20)
	d.RegisterCallout(2)

	d.OnHTTPCallResponse(1, 0, 0, 0)
	d.OnHTTPCallResponse(2, 0, 0, 0)

	if first.events[len(first.events)-1] != "call_response:1" {
		t.Fatalf("first root saw %v", first.events)
	}
	if second.events[len(second.events)-1] != "call_response:2" {
		t.Fatalf("second root saw %v", second.events)
	}
}

func TestCallout_ProbesHTTPTableFirst(t *testing.T) {
	d, _ := newTestDispatcher()
	httpHandler := &testHTTP{}
	d.SetRootFactory(func(uint32) RootHandler { return &testRoot{} })
	d.SetHTTPFactory(func(_, _ uint32) HTTPHandler { return httpHandler })
	d.OnContextCreate(1, 0)
	d.OnContextCreate(2, 1)

	d.OnRequestHeaders(2, 1, false)
	d.RegisterCallout(9)
	d.OnHTTPCallResponse(9, 0, 0, 0)

	if httpHandler.events[len(httpHandler.events)-1] != "call_response:9" {
		t.Fatalf("http handler saw %v", httpHandler.events)
	}
}

func TestQueueReady_RoutedToRoot(t *testing.T) {
	d, _ := newTestDispatcher()
	root := &testRoot{}
	d.SetRootFactory(func(uint32) RootHandler { return root })
	d.OnContextCreate(1, 0)

	d.OnQueueReady(1, 77)
	if root.events[len(root.events)-1] != "queue_ready:77" {
		t.Fatalf("root saw %v", root.events)
	}
}
