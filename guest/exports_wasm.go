//go:build wasip1 && wasm

package guest

import (
	"unsafe"

	"github.com/wasmgate/proxyguest/host"
	"github.com/wasmgate/proxyguest/types"
)

// Inbound ABI surface. Each export is a thin shim: widen/narrow the raw
// integer arguments and hand off to the dispatcher. No logic lives here.

//go:wasmexport proxy_abi_version_0_2_0
func proxyABIVersion020() {}

//go:wasmexport proxy_on_memory_allocate
func proxyOnMemoryAllocate(size uint32) unsafe.Pointer {
	buf := host.AllocateMemory(size)
	if len(buf) == 0 {
		return nil
	}
	return unsafe.Pointer(&buf[0])
}

//go:wasmexport proxy_on_context_create
func proxyOnContextCreate(contextID, rootContextID uint32) {
	dispatcher.OnContextCreate(contextID, rootContextID)
}

//go:wasmexport proxy_on_done
func proxyOnDone(contextID uint32) uint32 {
	return boolToU32(dispatcher.OnDone(contextID))
}

//go:wasmexport proxy_on_log
func proxyOnLog(contextID uint32) {
	dispatcher.OnLog(contextID)
}

//go:wasmexport proxy_on_delete
func proxyOnDelete(contextID uint32) {
	dispatcher.OnContextDelete(contextID)
}

//go:wasmexport proxy_on_vm_start
func proxyOnVMStart(contextID, vmConfigurationSize uint32) uint32 {
	return boolToU32(dispatcher.OnVMStart(contextID, int(vmConfigurationSize)))
}

//go:wasmexport proxy_on_configure
func proxyOnConfigure(contextID, pluginConfigurationSize uint32) uint32 {
	return boolToU32(dispatcher.OnConfigure(contextID, int(pluginConfigurationSize)))
}

//go:wasmexport proxy_on_tick
func proxyOnTick(contextID uint32) {
	dispatcher.OnTick(contextID)
}

//go:wasmexport proxy_on_queue_ready
func proxyOnQueueReady(contextID, queueID uint32) {
	dispatcher.OnQueueReady(contextID, queueID)
}

//go:wasmexport proxy_on_new_connection
func proxyOnNewConnection(contextID uint32) uint32 {
	return uint32(dispatcher.OnNewConnection(contextID))
}

//go:wasmexport proxy_on_downstream_data
func proxyOnDownstreamData(contextID, dataSize, endOfStream uint32) uint32 {
	return uint32(dispatcher.OnDownstreamData(contextID, int(dataSize), endOfStream != 0))
}

//go:wasmexport proxy_on_downstream_connection_close
func proxyOnDownstreamConnectionClose(contextID, peerType uint32) {
	dispatcher.OnDownstreamClose(contextID, types.PeerType(peerType))
}

//go:wasmexport proxy_on_upstream_data
func proxyOnUpstreamData(contextID, dataSize, endOfStream uint32) uint32 {
	return uint32(dispatcher.OnUpstreamData(contextID, int(dataSize), endOfStream != 0))
}

//go:wasmexport proxy_on_upstream_connection_close
func proxyOnUpstreamConnectionClose(contextID, peerType uint32) {
	dispatcher.OnUpstreamClose(contextID, types.PeerType(peerType))
}

//go:wasmexport proxy_on_request_headers
func proxyOnRequestHeaders(contextID, numHeaders, endOfStream uint32) uint32 {
	return uint32(dispatcher.OnRequestHeaders(contextID, int(numHeaders), endOfStream != 0))
}

//go:wasmexport proxy_on_request_body
func proxyOnRequestBody(contextID, bodySize, endOfStream uint32) uint32 {
	return uint32(dispatcher.OnRequestBody(contextID, int(bodySize), endOfStream != 0))
}

//go:wasmexport proxy_on_request_trailers
func proxyOnRequestTrailers(contextID, numTrailers uint32) uint32 {
	return uint32(dispatcher.OnRequestTrailers(contextID, int(numTrailers)))
}

//go:wasmexport proxy_on_response_headers
func proxyOnResponseHeaders(contextID, numHeaders, endOfStream uint32) uint32 {
	return uint32(dispatcher.OnResponseHeaders(contextID, int(numHeaders), endOfStream != 0))
}

//go:wasmexport proxy_on_response_body
func proxyOnResponseBody(contextID, bodySize, endOfStream uint32) uint32 {
	return uint32(dispatcher.OnResponseBody(contextID, int(bodySize), endOfStream != 0))
}

//go:wasmexport proxy_on_response_trailers
func proxyOnResponseTrailers(contextID, numTrailers uint32) uint32 {
	return uint32(dispatcher.OnResponseTrailers(contextID, int(numTrailers)))
}

//go:wasmexport proxy_on_http_call_response
func proxyOnHTTPCallResponse(_, token, numHeaders, bodySize, numTrailers uint32) {
	// The first argument is the root context id the host believes issued
	// the call; correlation goes through the token instead.
	dispatcher.OnHTTPCallResponse(token, int(numHeaders), int(bodySize), int(numTrailers))
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
