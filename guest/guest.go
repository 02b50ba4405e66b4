package guest

import (
	"github.com/wasmgate/proxyguest/dispatch"
	"github.com/wasmgate/proxyguest/host"
	"github.com/wasmgate/proxyguest/types"
)

var (
	calls      *host.Calls
	dispatcher *dispatch.Dispatcher

	// Registered configuration, reapplied when Bind rebuilds the runtime.
	rootFactory   dispatch.RootFactory
	streamFactory dispatch.StreamFactory
	httpFactory   dispatch.HTTPFactory
	logLevel      = types.LogLevelTrace
)

func init() {
	rebind(host.DefaultABI())
}

func rebind(abi host.ABI) {
	calls = host.NewCalls(abi)
	calls.SetLogLevel(logLevel)
	dispatcher = dispatch.New(calls)
	dispatcher.SetRootFactory(rootFactory)
	dispatcher.SetStreamFactory(streamFactory)
	dispatcher.SetHTTPFactory(httpFactory)
}

// Bind replaces the runtime's ABI, discarding all live context state.
// Registered factories and the log level carry over. Intended for tests
// and embedders that drive the exports against an in-process host.
func Bind(abi host.ABI) {
	rebind(abi)
}

// SetRootContext registers the factory for root (plugin-level) contexts.
// Call it from main before the host delivers the first event.
func SetRootContext(f dispatch.RootFactory) {
	rootFactory = f
	dispatcher.SetRootFactory(f)
}

// SetStreamContext registers the global factory for network stream
// contexts.
func SetStreamContext(f dispatch.StreamFactory) {
	streamFactory = f
	dispatcher.SetStreamFactory(f)
}

// SetHTTPContext registers the global factory for HTTP stream contexts.
func SetHTTPContext(f dispatch.HTTPFactory) {
	httpFactory = f
	dispatcher.SetHTTPFactory(f)
}

// SetLogLevel filters outbound log calls below level guest-side.
func SetLogLevel(level types.LogLevel) {
	logLevel = level
	calls.SetLogLevel(level)
}

// Host returns the outbound capability surface, scoped to whichever
// context is currently executing an event.
func Host() *host.Calls {
	return calls
}

// Dispatcher exposes the event router, mainly so embedders can deliver
// events without going through the wasm exports.
func Dispatcher() *dispatch.Dispatcher {
	return dispatcher
}
