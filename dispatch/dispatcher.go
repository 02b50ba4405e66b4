package dispatch

import (
	"github.com/wasmgate/proxyguest/host"
	"github.com/wasmgate/proxyguest/types"
)

// nopRoot accepts and ignores every event. Installed for root contexts
// created before (or without) a root factory being registered.
type nopRoot struct{ BaseRootHandler }

// Dispatcher maps host-assigned context ids to handler instances and
// routes every inbound event to the owner. One instance exists per
// execution unit; it owns its tables exclusively and must only be driven
// from the single event thread.
type Dispatcher struct {
	calls *host.Calls

	newRoot   RootFactory
	newStream StreamFactory
	newHTTP   HTTPFactory

	roots       map[uint32]RootHandler
	streams     map[uint32]StreamHandler
	httpStreams map[uint32]HTTPHandler

	// callouts maps outstanding async call tokens to the context id that
	// issued them. Consumed exactly once per token.
	callouts map[uint32]uint32

	activeID uint32
}

// New creates a dispatcher bound to calls. The dispatcher registers
// itself as the callout hook so tokens returned by DispatchHTTPCall are
// correlated with the context active at dispatch time.
func New(calls *host.Calls) *Dispatcher {
	d := &Dispatcher{
		calls:       calls,
		roots:       make(map[uint32]RootHandler),
		streams:     make(map[uint32]StreamHandler),
		httpStreams: make(map[uint32]HTTPHandler),
		callouts:    make(map[uint32]uint32),
	}
	if calls != nil {
		calls.SetCalloutHook(d.RegisterCallout)
	}
	return d
}

// SetRootFactory configures the callback producing root handlers. Without
// one, root contexts get a no-op handler.
func (d *Dispatcher) SetRootFactory(f RootFactory) { d.newRoot = f }

// SetStreamFactory configures the global stream-context factory.
func (d *Dispatcher) SetStreamFactory(f StreamFactory) { d.newStream = f }

// SetHTTPFactory configures the global HTTP-context factory. It takes
// precedence over the stream factory and over per-root child synthesis.
func (d *Dispatcher) SetHTTPFactory(f HTTPFactory) { d.newHTTP = f }

// ActiveContextID returns the id of the context the currently executing
// event is scoped to. Meaningful only during event dispatch.
func (d *Dispatcher) ActiveContextID() uint32 { return d.activeID }

// RegisterCallout records that the active context issued an asynchronous
// call identified by token. Tokens are host-guaranteed unique while
// outstanding; a duplicate is fatal.
func (d *Dispatcher) RegisterCallout(token uint32) {
	if _, dup := d.callouts[token]; dup {
		violateToken(invariantDuplicateToken, token)
	}
	d.callouts[token] = d.activeID
}

// insert helpers enforce id uniqueness across all three tables combined:
// one live handler per context id, whatever its role.

func (d *Dispatcher) assertNewID(contextID uint32) {
	if _, ok := d.httpStreams[contextID]; ok {
		violateContext(invariantDuplicateContext, contextID)
	}
	if _, ok := d.streams[contextID]; ok {
		violateContext(invariantDuplicateContext, contextID)
	}
	if _, ok := d.roots[contextID]; ok {
		violateContext(invariantDuplicateContext, contextID)
	}
}

func (d *Dispatcher) insertRoot(contextID uint32, h RootHandler) {
	d.assertNewID(contextID)
	d.roots[contextID] = h
}

func (d *Dispatcher) insertStream(contextID uint32, h StreamHandler) {
	d.assertNewID(contextID)
	d.streams[contextID] = h
}

func (d *Dispatcher) insertHTTP(contextID uint32, h HTTPHandler) {
	d.assertNewID(contextID)
	d.httpStreams[contextID] = h
}

// OnContextCreate resolves which handler role to instantiate for a new
// context and registers it. rootContextID zero means the new context is
// itself a root. Resolution order for children: global HTTP factory,
// global stream factory, parent-synthesized HTTP child, parent-synthesized
// stream child, then the parent's reported ContextType. Every unresolved
// branch is fatal; malformed construction requests are boot-level bugs.
func (d *Dispatcher) OnContextCreate(contextID, rootContextID uint32) {
	if rootContextID == 0 {
		var h RootHandler
		if d.newRoot != nil {
			h = d.newRoot(contextID)
		} else {
			h = nopRoot{}
		}
		d.insertRoot(contextID, h)
		return
	}

	root, ok := d.roots[rootContextID]
	if !ok {
		violateContext(invariantInvalidRoot, rootContextID)
	}

	if d.newHTTP != nil {
		d.insertHTTP(contextID, d.newHTTP(contextID, rootContextID))
		return
	}
	if d.newStream != nil {
		d.insertStream(contextID, d.newStream(contextID, rootContextID))
		return
	}
	// Ad-hoc synthesis by the parent root. HTTP is offered first; this
	// ordering is load-bearing for plugins whose roots implement both.
	if h := root.NewHTTPHandler(contextID); h != nil {
		d.insertHTTP(contextID, h)
		return
	}
	if h := root.NewStreamHandler(contextID); h != nil {
		d.insertStream(contextID, h)
		return
	}

	contextType, ok := root.HandlerType()
	if !ok {
		violateContext(invariantMissingType, rootContextID)
	}
	switch contextType {
	case types.ContextTypeHTTP:
		h := root.NewHTTPHandler(contextID)
		if h == nil {
			violateContext(invariantNilChild, contextID)
		}
		d.insertHTTP(contextID, h)
	case types.ContextTypeStream:
		h := root.NewStreamHandler(contextID)
		if h == nil {
			violateContext(invariantNilChild, contextID)
		}
		d.insertStream(contextID, h)
	default:
		violateContext(invariantMissingType, rootContextID)
	}
}

// OnContextDelete removes the context from whichever table holds it.
// Deleting an unknown id is fatal: deletion pairs 1:1 with a live id.
func (d *Dispatcher) OnContextDelete(contextID uint32) {
	if _, ok := d.httpStreams[contextID]; ok {
		delete(d.httpStreams, contextID)
		return
	}
	if _, ok := d.streams[contextID]; ok {
		delete(d.streams, contextID)
		return
	}
	if _, ok := d.roots[contextID]; ok {
		delete(d.roots, contextID)
		return
	}
	violateContext(invariantUnknownContext, contextID)
}

// Lookup helpers. Each resolves the owning handler, marks the id active,
// and is valid only for the single synchronous call being dispatched.
// The ordered probe in anyContext assumes an id lives in exactly one
// table; it is a lookup strategy, not a precedence rule.

func (d *Dispatcher) rootContext(contextID uint32) RootHandler {
	h, ok := d.roots[contextID]
	if !ok {
		violateContext(invariantUnknownContext, contextID)
	}
	d.activeID = contextID
	return h
}

func (d *Dispatcher) streamContext(contextID uint32) StreamHandler {
	h, ok := d.streams[contextID]
	if !ok {
		violateContext(invariantUnknownContext, contextID)
	}
	d.activeID = contextID
	return h
}

func (d *Dispatcher) httpContext(contextID uint32) HTTPHandler {
	h, ok := d.httpStreams[contextID]
	if !ok {
		violateContext(invariantUnknownContext, contextID)
	}
	d.activeID = contextID
	return h
}

func (d *Dispatcher) anyContext(contextID uint32) Handler {
	if h, ok := d.httpStreams[contextID]; ok {
		d.activeID = contextID
		return h
	}
	if h, ok := d.streams[contextID]; ok {
		d.activeID = contextID
		return h
	}
	if h, ok := d.roots[contextID]; ok {
		d.activeID = contextID
		return h
	}
	violateContext(invariantUnknownContext, contextID)
	return nil
}

// Root lifecycle events.

func (d *Dispatcher) OnVMStart(contextID uint32, vmConfigurationSize int) bool {
	return d.rootContext(contextID).OnVMStart(vmConfigurationSize)
}

func (d *Dispatcher) OnConfigure(contextID uint32, pluginConfigurationSize int) bool {
	return d.rootContext(contextID).OnConfigure(pluginConfigurationSize)
}

func (d *Dispatcher) OnTick(contextID uint32) {
	d.rootContext(contextID).OnTick()
}

func (d *Dispatcher) OnQueueReady(contextID, queueID uint32) {
	d.rootContext(contextID).OnQueueReady(queueID)
}

// Common lifecycle events, valid for any role.

func (d *Dispatcher) OnDone(contextID uint32) bool {
	return d.anyContext(contextID).OnDone()
}

func (d *Dispatcher) OnLog(contextID uint32) {
	d.anyContext(contextID).OnLog()
}

// Network stream events.

func (d *Dispatcher) OnNewConnection(contextID uint32) types.Action {
	return d.streamContext(contextID).OnNewConnection()
}

func (d *Dispatcher) OnDownstreamData(contextID uint32, dataSize int, endOfStream bool) types.Action {
	return d.streamContext(contextID).OnDownstreamData(dataSize, endOfStream)
}

func (d *Dispatcher) OnDownstreamClose(contextID uint32, peer types.PeerType) {
	d.streamContext(contextID).OnDownstreamClose(peer)
}

func (d *Dispatcher) OnUpstreamData(contextID uint32, dataSize int, endOfStream bool) types.Action {
	return d.streamContext(contextID).OnUpstreamData(dataSize, endOfStream)
}

func (d *Dispatcher) OnUpstreamClose(contextID uint32, peer types.PeerType) {
	d.streamContext(contextID).OnUpstreamClose(peer)
}

// HTTP stream events.

func (d *Dispatcher) OnRequestHeaders(contextID uint32, numHeaders int, endOfStream bool) types.Action {
	return d.httpContext(contextID).OnRequestHeaders(numHeaders, endOfStream)
}

func (d *Dispatcher) OnRequestBody(contextID uint32, bodySize int, endOfStream bool) types.Action {
	return d.httpContext(contextID).OnRequestBody(bodySize, endOfStream)
}

func (d *Dispatcher) OnRequestTrailers(contextID uint32, numTrailers int) types.Action {
	return d.httpContext(contextID).OnRequestTrailers(numTrailers)
}

func (d *Dispatcher) OnResponseHeaders(contextID uint32, numHeaders int, endOfStream bool) types.Action {
	return d.httpContext(contextID).OnResponseHeaders(numHeaders, endOfStream)
}

func (d *Dispatcher) OnResponseBody(contextID uint32, bodySize int, endOfStream bool) types.Action {
	return d.httpContext(contextID).OnResponseBody(bodySize, endOfStream)
}

func (d *Dispatcher) OnResponseTrailers(contextID uint32, numTrailers int) types.Action {
	return d.httpContext(contextID).OnResponseTrailers(numTrailers)
}

// OnHTTPCallResponse resolves the context that issued the callout behind
// token and forwards the response event. The token mapping is consumed
// either way. If the issuing context was deleted while the call was
// outstanding the event is dropped silently: that race is expected, and
// the only router path where a missing id is not fatal.
//
// Unlike synchronous events, the host does not consider the resolved id
// current, so it is pushed explicitly before the handler runs; outbound
// calls made while handling the response are then attributed correctly.
func (d *Dispatcher) OnHTTPCallResponse(token uint32, numHeaders, bodySize, numTrailers int) {
	contextID, ok := d.callouts[token]
	if !ok {
		violateToken(invariantUnknownToken, token)
	}
	delete(d.callouts, token)

	var h Handler
	if hh, live := d.httpStreams[contextID]; live {
		h = hh
	} else if sh, live := d.streams[contextID]; live {
		h = sh
	} else if rh, live := d.roots[contextID]; live {
		h = rh
	} else {
		return
	}

	d.activeID = contextID
	if err := d.calls.SetEffectiveContext(contextID); err != nil {
		// The host refused the context switch; outbound calls from the
		// handler would be attributed to the wrong context.
		panic(err)
	}
	h.OnHTTPCallResponse(token, numHeaders, bodySize, numTrailers)
}
