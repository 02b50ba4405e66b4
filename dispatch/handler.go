package dispatch

import "github.com/wasmgate/proxyguest/types"

// Handler is the capability set common to every context role.
type Handler interface {
	// OnDone is delivered when the host is about to finalize the context.
	// Returning false defers deletion until the plugin later signals
	// completion through the done host call.
	OnDone() bool

	// OnLog is delivered when the host collects access logs for the
	// context, after processing has finished.
	OnLog()

	// OnHTTPCallResponse is delivered when a response (or timeout) for an
	// asynchronous HTTP callout issued by this context arrives. Headers,
	// body, and trailers are readable through the host call layer while
	// this event is executing.
	OnHTTPCallResponse(token uint32, numHeaders, bodySize, numTrailers int)
}

// RootHandler handles plugin-level configuration and lifecycle, and can
// parent stream or HTTP child contexts.
type RootHandler interface {
	Handler

	OnVMStart(vmConfigurationSize int) bool
	OnConfigure(pluginConfigurationSize int) bool
	OnTick()
	OnQueueReady(queueID uint32)

	// NewHTTPHandler and NewStreamHandler let a root synthesize child
	// handlers when no global factory is configured. Returning nil
	// declines.
	NewHTTPHandler(contextID uint32) HTTPHandler
	NewStreamHandler(contextID uint32) StreamHandler

	// HandlerType reports which kind of child this root expects to
	// parent. Roots that do not care report ok=false.
	HandlerType() (types.ContextType, bool)
}

// StreamHandler handles events for one L4 network stream.
type StreamHandler interface {
	Handler

	OnNewConnection() types.Action
	OnDownstreamData(dataSize int, endOfStream bool) types.Action
	OnDownstreamClose(peer types.PeerType)
	OnUpstreamData(dataSize int, endOfStream bool) types.Action
	OnUpstreamClose(peer types.PeerType)
}

// HTTPHandler handles events for one HTTP stream.
type HTTPHandler interface {
	Handler

	OnRequestHeaders(numHeaders int, endOfStream bool) types.Action
	OnRequestBody(bodySize int, endOfStream bool) types.Action
	OnRequestTrailers(numTrailers int) types.Action
	OnResponseHeaders(numHeaders int, endOfStream bool) types.Action
	OnResponseBody(bodySize int, endOfStream bool) types.Action
	OnResponseTrailers(numTrailers int) types.Action
}

// Factory callbacks resolve handlers for newly created contexts.
type (
	RootFactory   func(contextID uint32) RootHandler
	StreamFactory func(contextID, rootContextID uint32) StreamHandler
	HTTPFactory   func(contextID, rootContextID uint32) HTTPHandler
)

// BaseHandler provides no-op defaults for the common capability set.
// Embed it (or one of the role bases) and override only what you need.
type BaseHandler struct{}

func (BaseHandler) OnDone() bool                       { return true }
func (BaseHandler) OnLog()                             {}
func (BaseHandler) OnHTTPCallResponse(uint32, int, int, int) {}

// BaseRootHandler is a RootHandler that accepts every lifecycle event and
// declines to synthesize children.
type BaseRootHandler struct{ BaseHandler }

var _ RootHandler = BaseRootHandler{}

func (BaseRootHandler) OnVMStart(int) bool                      { return true }
func (BaseRootHandler) OnConfigure(int) bool                    { return true }
func (BaseRootHandler) OnTick()                                 {}
func (BaseRootHandler) OnQueueReady(uint32)                     {}
func (BaseRootHandler) NewHTTPHandler(uint32) HTTPHandler       { return nil }
func (BaseRootHandler) NewStreamHandler(uint32) StreamHandler   { return nil }
func (BaseRootHandler) HandlerType() (types.ContextType, bool)  { return 0, false }

// BaseStreamHandler is a StreamHandler that continues on every event.
type BaseStreamHandler struct{ BaseHandler }

var _ StreamHandler = BaseStreamHandler{}

func (BaseStreamHandler) OnNewConnection() types.Action        { return types.ActionContinue }
func (BaseStreamHandler) OnDownstreamData(int, bool) types.Action { return types.ActionContinue }
func (BaseStreamHandler) OnDownstreamClose(types.PeerType)     {}
func (BaseStreamHandler) OnUpstreamData(int, bool) types.Action { return types.ActionContinue }
func (BaseStreamHandler) OnUpstreamClose(types.PeerType)       {}

// BaseHTTPHandler is an HTTPHandler that continues on every event.
type BaseHTTPHandler struct{ BaseHandler }

var _ HTTPHandler = BaseHTTPHandler{}

func (BaseHTTPHandler) OnRequestHeaders(int, bool) types.Action  { return types.ActionContinue }
func (BaseHTTPHandler) OnRequestBody(int, bool) types.Action     { return types.ActionContinue }
func (BaseHTTPHandler) OnRequestTrailers(int) types.Action       { return types.ActionContinue }
func (BaseHTTPHandler) OnResponseHeaders(int, bool) types.Action { return types.ActionContinue }
func (BaseHTTPHandler) OnResponseBody(int, bool) types.Action    { return types.ActionContinue }
func (BaseHTTPHandler) OnResponseTrailers(int) types.Action      { return types.ActionContinue }
