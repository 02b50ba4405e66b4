package host

import "github.com/wasmgate/proxyguest/types"

// Names of the imported ABI functions, used in error reporting and by the
// vmhost bridge when registering the host side of the same surface.
const (
	FnProxyLog                        = "proxy_log"
	FnProxyGetCurrentTimeNanoseconds  = "proxy_get_current_time_nanoseconds"
	FnProxySetTickPeriodMilliseconds  = "proxy_set_tick_period_milliseconds"
	FnProxyGetBufferBytes             = "proxy_get_buffer_bytes"
	FnProxySetBufferBytes             = "proxy_set_buffer_bytes"
	FnProxyGetHeaderMapPairs          = "proxy_get_header_map_pairs"
	FnProxySetHeaderMapPairs          = "proxy_set_header_map_pairs"
	FnProxyGetHeaderMapValue          = "proxy_get_header_map_value"
	FnProxyReplaceHeaderMapValue      = "proxy_replace_header_map_value"
	FnProxyRemoveHeaderMapValue       = "proxy_remove_header_map_value"
	FnProxyAddHeaderMapValue          = "proxy_add_header_map_value"
	FnProxyGetProperty                = "proxy_get_property"
	FnProxySetProperty                = "proxy_set_property"
	FnProxyGetSharedData              = "proxy_get_shared_data"
	FnProxySetSharedData              = "proxy_set_shared_data"
	FnProxyRegisterSharedQueue        = "proxy_register_shared_queue"
	FnProxyResolveSharedQueue         = "proxy_resolve_shared_queue"
	FnProxyDequeueSharedQueue         = "proxy_dequeue_shared_queue"
	FnProxyEnqueueSharedQueue         = "proxy_enqueue_shared_queue"
	FnProxyContinueStream             = "proxy_continue_stream"
	FnProxyCloseStream                = "proxy_close_stream"
	FnProxySendLocalResponse          = "proxy_send_local_response"
	FnProxyHTTPCall                   = "proxy_http_call"
	FnProxySetEffectiveContext        = "proxy_set_effective_context"
	FnProxyDone                       = "proxy_done"
	FnProxyDefineMetric               = "proxy_define_metric"
	FnProxyGetMetric                  = "proxy_get_metric"
	FnProxyRecordMetric               = "proxy_record_metric"
	FnProxyIncrementMetric            = "proxy_increment_metric"
)

// ABI is the raw imported host surface. Implementations marshal the byte
// slices across the sandbox boundary (or keep them in memory, for the
// emulator). Return slices are owned by the caller.
//
// Read paths return their data alongside the status; callers must treat
// the data as valid only when the status says so.
type ABI interface {
	ProxyLog(level types.LogLevel, message []byte) types.Status
	ProxyGetCurrentTimeNanoseconds() (uint64, types.Status)
	ProxySetTickPeriodMilliseconds(periodMillis uint32) types.Status

	ProxyGetBufferBytes(bufferType types.BufferType, start, maxSize uint32) ([]byte, types.Status)
	ProxySetBufferBytes(bufferType types.BufferType, start, size uint32, data []byte) types.Status

	ProxyGetHeaderMapPairs(mapType types.MapType) ([]byte, types.Status)
	ProxySetHeaderMapPairs(mapType types.MapType, encodedPairs []byte) types.Status
	ProxyGetHeaderMapValue(mapType types.MapType, key []byte) ([]byte, types.Status)
	ProxyReplaceHeaderMapValue(mapType types.MapType, key, value []byte) types.Status
	ProxyRemoveHeaderMapValue(mapType types.MapType, key []byte) types.Status
	ProxyAddHeaderMapValue(mapType types.MapType, key, value []byte) types.Status

	ProxyGetProperty(encodedPath []byte) ([]byte, types.Status)
	ProxySetProperty(encodedPath, value []byte) types.Status

	ProxyGetSharedData(key []byte) (value []byte, cas uint32, status types.Status)
	ProxySetSharedData(key, value []byte, cas uint32) types.Status

	ProxyRegisterSharedQueue(name []byte) (uint32, types.Status)
	ProxyResolveSharedQueue(vmID, name []byte) (uint32, types.Status)
	ProxyDequeueSharedQueue(queueID uint32) ([]byte, types.Status)
	ProxyEnqueueSharedQueue(queueID uint32, value []byte) types.Status

	ProxyContinueStream(streamType types.StreamType) types.Status
	ProxyCloseStream(streamType types.StreamType) types.Status
	ProxySendLocalResponse(statusCode uint32, statusCodeDetails, body, encodedHeaders []byte, grpcStatus int32) types.Status

	ProxyHTTPCall(upstream, encodedHeaders, body, encodedTrailers []byte, timeoutMillis uint32) (token uint32, status types.Status)
	ProxySetEffectiveContext(contextID uint32) types.Status
	ProxyDone() types.Status

	ProxyDefineMetric(metricType types.MetricType, name []byte) (uint32, types.Status)
	ProxyGetMetric(metricID uint32) (uint64, types.Status)
	ProxyRecordMetric(metricID uint32, value uint64) types.Status
	ProxyIncrementMetric(metricID uint32, offset int64) types.Status
}

// Unbound is an ABI with no host behind it. Every call reports
// StatusUnimplemented. It is the default on non-wasm targets.
type Unbound struct{}

var _ ABI = Unbound{}

func (Unbound) ProxyLog(types.LogLevel, []byte) types.Status { return types.StatusUnimplemented }
func (Unbound) ProxyGetCurrentTimeNanoseconds() (uint64, types.Status) {
	return 0, types.StatusUnimplemented
}
func (Unbound) ProxySetTickPeriodMilliseconds(uint32) types.Status {
	return types.StatusUnimplemented
}
func (Unbound) ProxyGetBufferBytes(types.BufferType, uint32, uint32) ([]byte, types.Status) {
	return nil, types.StatusUnimplemented
}
func (Unbound) ProxySetBufferBytes(types.BufferType, uint32, uint32, []byte) types.Status {
	return types.StatusUnimplemented
}
func (Unbound) ProxyGetHeaderMapPairs(types.MapType) ([]byte, types.Status) {
	return nil, types.StatusUnimplemented
}
func (Unbound) ProxySetHeaderMapPairs(types.MapType, []byte) types.Status {
	return types.StatusUnimplemented
}
func (Unbound) ProxyGetHeaderMapValue(types.MapType, []byte) ([]byte, types.Status) {
	return nil, types.StatusUnimplemented
}
func (Unbound) ProxyReplaceHeaderMapValue(types.MapType, []byte, []byte) types.Status {
	return types.StatusUnimplemented
}
func (Unbound) ProxyRemoveHeaderMapValue(types.MapType, []byte) types.Status {
	return types.StatusUnimplemented
}
func (Unbound) ProxyAddHeaderMapValue(types.MapType, []byte, []byte) types.Status {
	return types.StatusUnimplemented
}
func (Unbound) ProxyGetProperty([]byte) ([]byte, types.Status) {
	return nil, types.StatusUnimplemented
}
func (Unbound) ProxySetProperty([]byte, []byte) types.Status { return types.StatusUnimplemented }
func (Unbound) ProxyGetSharedData([]byte) ([]byte, uint32, types.Status) {
	return nil, 0, types.StatusUnimplemented
}
func (Unbound) ProxySetSharedData([]byte, []byte, uint32) types.Status {
	return types.StatusUnimplemented
}
func (Unbound) ProxyRegisterSharedQueue([]byte) (uint32, types.Status) {
	return 0, types.StatusUnimplemented
}
func (Unbound) ProxyResolveSharedQueue([]byte, []byte) (uint32, types.Status) {
	return 0, types.StatusUnimplemented
}
func (Unbound) ProxyDequeueSharedQueue(uint32) ([]byte, types.Status) {
	return nil, types.StatusUnimplemented
}
func (Unbound) ProxyEnqueueSharedQueue(uint32, []byte) types.Status {
	return types.StatusUnimplemented
}
func (Unbound) ProxyContinueStream(types.StreamType) types.Status {
	return types.StatusUnimplemented
}
func (Unbound) ProxyCloseStream(types.StreamType) types.Status { return types.StatusUnimplemented }
func (Unbound) ProxySendLocalResponse(uint32, []byte, []byte, []byte, int32) types.Status {
	return types.StatusUnimplemented
}
func (Unbound) ProxyHTTPCall([]byte, []byte, []byte, []byte, uint32) (uint32, types.Status) {
	return 0, types.StatusUnimplemented
}
func (Unbound) ProxySetEffectiveContext(uint32) types.Status { return types.StatusUnimplemented }
func (Unbound) ProxyDone() types.Status                      { return types.StatusUnimplemented }
func (Unbound) ProxyDefineMetric(types.MetricType, []byte) (uint32, types.Status) {
	return 0, types.StatusUnimplemented
}
func (Unbound) ProxyGetMetric(uint32) (uint64, types.Status) {
	return 0, types.StatusUnimplemented
}
func (Unbound) ProxyRecordMetric(uint32, uint64) types.Status { return types.StatusUnimplemented }
func (Unbound) ProxyIncrementMetric(uint32, int64) types.Status {
	return types.StatusUnimplemented
}
