//go:build wasip1 && wasm

package host

import (
	"unsafe"

	"github.com/wasmgate/proxyguest/types"
)

// Raw imports. Sizes are u32 because proxy-wasm hosts run wasm32 modules.

//go:wasmimport env proxy_log
func rawProxyLog(level uint32, messageData unsafe.Pointer, messageSize uint32) uint32

//go:wasmimport env proxy_get_current_time_nanoseconds
func rawProxyGetCurrentTimeNanoseconds(returnTime unsafe.Pointer) uint32

//go:wasmimport env proxy_set_tick_period_milliseconds
func rawProxySetTickPeriodMilliseconds(period uint32) uint32

//go:wasmimport env proxy_get_buffer_bytes
func rawProxyGetBufferBytes(bufferType, start, maxSize uint32, returnData, returnSize unsafe.Pointer) uint32

//go:wasmimport env proxy_set_buffer_bytes
func rawProxySetBufferBytes(bufferType, start, size uint32, data unsafe.Pointer, dataSize uint32) uint32

//go:wasmimport env proxy_get_header_map_pairs
func rawProxyGetHeaderMapPairs(mapType uint32, returnData, returnSize unsafe.Pointer) uint32

//go:wasmimport env proxy_set_header_map_pairs
func rawProxySetHeaderMapPairs(mapType uint32, data unsafe.Pointer, size uint32) uint32

//go:wasmimport env proxy_get_header_map_value
func rawProxyGetHeaderMapValue(mapType uint32, keyData unsafe.Pointer, keySize uint32, returnData, returnSize unsafe.Pointer) uint32

//go:wasmimport env proxy_replace_header_map_value
func rawProxyReplaceHeaderMapValue(mapType uint32, keyData unsafe.Pointer, keySize uint32, valueData unsafe.Pointer, valueSize uint32) uint32

//go:wasmimport env proxy_remove_header_map_value
func rawProxyRemoveHeaderMapValue(mapType uint32, keyData unsafe.Pointer, keySize uint32) uint32

//go:wasmimport env proxy_add_header_map_value
func rawProxyAddHeaderMapValue(mapType uint32, keyData unsafe.Pointer, keySize uint32, valueData unsafe.Pointer, valueSize uint32) uint32

//go:wasmimport env proxy_get_property
func rawProxyGetProperty(pathData unsafe.Pointer, pathSize uint32, returnData, returnSize unsafe.Pointer) uint32

//go:wasmimport env proxy_set_property
func rawProxySetProperty(pathData unsafe.Pointer, pathSize uint32, valueData unsafe.Pointer, valueSize uint32) uint32

//go:wasmimport env proxy_get_shared_data
func rawProxyGetSharedData(keyData unsafe.Pointer, keySize uint32, returnData, returnSize, returnCAS unsafe.Pointer) uint32

//go:wasmimport env proxy_set_shared_data
func rawProxySetSharedData(keyData unsafe.Pointer, keySize uint32, valueData unsafe.Pointer, valueSize, cas uint32) uint32

//go:wasmimport env proxy_register_shared_queue
func rawProxyRegisterSharedQueue(nameData unsafe.Pointer, nameSize uint32, returnID unsafe.Pointer) uint32

//go:wasmimport env proxy_resolve_shared_queue
func rawProxyResolveSharedQueue(vmIDData unsafe.Pointer, vmIDSize uint32, nameData unsafe.Pointer, nameSize uint32, returnID unsafe.Pointer) uint32

//go:wasmimport env proxy_dequeue_shared_queue
func rawProxyDequeueSharedQueue(queueID uint32, returnData, returnSize unsafe.Pointer) uint32

//go:wasmimport env proxy_enqueue_shared_queue
func rawProxyEnqueueSharedQueue(queueID uint32, valueData unsafe.Pointer, valueSize uint32) uint32

//go:wasmimport env proxy_continue_stream
func rawProxyContinueStream(streamType uint32) uint32

//go:wasmimport env proxy_close_stream
func rawProxyCloseStream(streamType uint32) uint32

//go:wasmimport env proxy_send_local_response
func rawProxySendLocalResponse(statusCode uint32, detailsData unsafe.Pointer, detailsSize uint32, bodyData unsafe.Pointer, bodySize uint32, headersData unsafe.Pointer, headersSize uint32, grpcStatus int32) uint32

//go:wasmimport env proxy_http_call
func rawProxyHTTPCall(upstreamData unsafe.Pointer, upstreamSize uint32, headersData unsafe.Pointer, headersSize uint32, bodyData unsafe.Pointer, bodySize uint32, trailersData unsafe.Pointer, trailersSize uint32, timeout uint32, returnToken unsafe.Pointer) uint32

//go:wasmimport env proxy_set_effective_context
func rawProxySetEffectiveContext(contextID uint32) uint32

//go:wasmimport env proxy_done
func rawProxyDone() uint32

//go:wasmimport env proxy_define_metric
func rawProxyDefineMetric(metricType uint32, nameData unsafe.Pointer, nameSize uint32, returnID unsafe.Pointer) uint32

//go:wasmimport env proxy_get_metric
func rawProxyGetMetric(metricID uint32, returnValue unsafe.Pointer) uint32

//go:wasmimport env proxy_record_metric
func rawProxyRecordMetric(metricID uint32, value uint64) uint32

//go:wasmimport env proxy_increment_metric
func rawProxyIncrementMetric(metricID uint32, offset int64) uint32

func ptrOf(b []byte) unsafe.Pointer {
	return ptrOfBytes(b)
}

// wasmABI implements ABI over the real imported functions.
type wasmABI struct{}

var _ ABI = wasmABI{}

func (wasmABI) ProxyLog(level types.LogLevel, message []byte) types.Status {
	return types.Status(rawProxyLog(uint32(level), ptrOf(message), uint32(len(message))))
}

func (wasmABI) ProxyGetCurrentTimeNanoseconds() (uint64, types.Status) {
	var nanos uint64
	st := rawProxyGetCurrentTimeNanoseconds(unsafe.Pointer(&nanos))
	return nanos, types.Status(st)
}

func (wasmABI) ProxySetTickPeriodMilliseconds(periodMillis uint32) types.Status {
	return types.Status(rawProxySetTickPeriodMilliseconds(periodMillis))
}

func (wasmABI) ProxyGetBufferBytes(bufferType types.BufferType, start, maxSize uint32) ([]byte, types.Status) {
	var data unsafe.Pointer
	var size uint32
	st := rawProxyGetBufferBytes(uint32(bufferType), start, maxSize,
		unsafe.Pointer(&data), unsafe.Pointer(&size))
	if types.Status(st) != types.StatusOK {
		return nil, types.Status(st)
	}
	return claimMemory(data, size), types.StatusOK
}

func (wasmABI) ProxySetBufferBytes(bufferType types.BufferType, start, size uint32, data []byte) types.Status {
	return types.Status(rawProxySetBufferBytes(uint32(bufferType), start, size,
		ptrOf(data), uint32(len(data))))
}

func (wasmABI) ProxyGetHeaderMapPairs(mapType types.MapType) ([]byte, types.Status) {
	var data unsafe.Pointer
	var size uint32
	st := rawProxyGetHeaderMapPairs(uint32(mapType), unsafe.Pointer(&data), unsafe.Pointer(&size))
	if types.Status(st) != types.StatusOK {
		return nil, types.Status(st)
	}
	return claimMemory(data, size), types.StatusOK
}

func (wasmABI) ProxySetHeaderMapPairs(mapType types.MapType, encodedPairs []byte) types.Status {
	return types.Status(rawProxySetHeaderMapPairs(uint32(mapType),
		ptrOf(encodedPairs), uint32(len(encodedPairs))))
}

func (wasmABI) ProxyGetHeaderMapValue(mapType types.MapType, key []byte) ([]byte, types.Status) {
	var data unsafe.Pointer
	var size uint32
	st := rawProxyGetHeaderMapValue(uint32(mapType), ptrOf(key), uint32(len(key)),
		unsafe.Pointer(&data), unsafe.Pointer(&size))
	if types.Status(st) != types.StatusOK {
		return nil, types.Status(st)
	}
	return claimMemory(data, size), types.StatusOK
}

func (wasmABI) ProxyReplaceHeaderMapValue(mapType types.MapType, key, value []byte) types.Status {
	return types.Status(rawProxyReplaceHeaderMapValue(uint32(mapType),
		ptrOf(key), uint32(len(key)), ptrOf(value), uint32(len(value))))
}

func (wasmABI) ProxyRemoveHeaderMapValue(mapType types.MapType, key []byte) types.Status {
	return types.Status(rawProxyRemoveHeaderMapValue(uint32(mapType), ptrOf(key), uint32(len(key))))
}

func (wasmABI) ProxyAddHeaderMapValue(mapType types.MapType, key, value []byte) types.Status {
	return types.Status(rawProxyAddHeaderMapValue(uint32(mapType),
		ptrOf(key), uint32(len(key)), ptrOf(value), uint32(len(value))))
}

func (wasmABI) ProxyGetProperty(encodedPath []byte) ([]byte, types.Status) {
	var data unsafe.Pointer
	var size uint32
	st := rawProxyGetProperty(ptrOf(encodedPath), uint32(len(encodedPath)),
		unsafe.Pointer(&data), unsafe.Pointer(&size))
	if types.Status(st) != types.StatusOK {
		return nil, types.Status(st)
	}
	return claimMemory(data, size), types.StatusOK
}

func (wasmABI) ProxySetProperty(encodedPath, value []byte) types.Status {
	return types.Status(rawProxySetProperty(ptrOf(encodedPath), uint32(len(encodedPath)),
		ptrOf(value), uint32(len(value))))
}

func (wasmABI) ProxyGetSharedData(key []byte) ([]byte, uint32, types.Status) {
	var data unsafe.Pointer
	var size, cas uint32
	st := rawProxyGetSharedData(ptrOf(key), uint32(len(key)),
		unsafe.Pointer(&data), unsafe.Pointer(&size), unsafe.Pointer(&cas))
	if types.Status(st) != types.StatusOK {
		return nil, 0, types.Status(st)
	}
	return claimMemory(data, size), cas, types.StatusOK
}

func (wasmABI) ProxySetSharedData(key, value []byte, cas uint32) types.Status {
	return types.Status(rawProxySetSharedData(ptrOf(key), uint32(len(key)),
		ptrOf(value), uint32(len(value)), cas))
}

func (wasmABI) ProxyRegisterSharedQueue(name []byte) (uint32, types.Status) {
	var id uint32
	st := rawProxyRegisterSharedQueue(ptrOf(name), uint32(len(name)), unsafe.Pointer(&id))
	return id, types.Status(st)
}

func (wasmABI) ProxyResolveSharedQueue(vmID, name []byte) (uint32, types.Status) {
	var id uint32
	st := rawProxyResolveSharedQueue(ptrOf(vmID), uint32(len(vmID)),
		ptrOf(name), uint32(len(name)), unsafe.Pointer(&id))
	return id, types.Status(st)
}

func (wasmABI) ProxyDequeueSharedQueue(queueID uint32) ([]byte, types.Status) {
	var data unsafe.Pointer
	var size uint32
	st := rawProxyDequeueSharedQueue(queueID, unsafe.Pointer(&data), unsafe.Pointer(&size))
	if types.Status(st) != types.StatusOK {
		return nil, types.Status(st)
	}
	return claimMemory(data, size), types.StatusOK
}

func (wasmABI) ProxyEnqueueSharedQueue(queueID uint32, value []byte) types.Status {
	return types.Status(rawProxyEnqueueSharedQueue(queueID, ptrOf(value), uint32(len(value))))
}

func (wasmABI) ProxyContinueStream(streamType types.StreamType) types.Status {
	return types.Status(rawProxyContinueStream(uint32(streamType)))
}

func (wasmABI) ProxyCloseStream(streamType types.StreamType) types.Status {
	return types.Status(rawProxyCloseStream(uint32(streamType)))
}

func (wasmABI) ProxySendLocalResponse(statusCode uint32, statusCodeDetails, body, encodedHeaders []byte, grpcStatus int32) types.Status {
	return types.Status(rawProxySendLocalResponse(statusCode,
		ptrOf(statusCodeDetails), uint32(len(statusCodeDetails)),
		ptrOf(body), uint32(len(body)),
		ptrOf(encodedHeaders), uint32(len(encodedHeaders)),
		grpcStatus))
}

func (wasmABI) ProxyHTTPCall(upstream, encodedHeaders, body, encodedTrailers []byte, timeoutMillis uint32) (uint32, types.Status) {
	var token uint32
	st := rawProxyHTTPCall(ptrOf(upstream), uint32(len(upstream)),
		ptrOf(encodedHeaders), uint32(len(encodedHeaders)),
		ptrOf(body), uint32(len(body)),
		ptrOf(encodedTrailers), uint32(len(encodedTrailers)),
		timeoutMillis, unsafe.Pointer(&token))
	return token, types.Status(st)
}

func (wasmABI) ProxySetEffectiveContext(contextID uint32) types.Status {
	return types.Status(rawProxySetEffectiveContext(contextID))
}

func (wasmABI) ProxyDone() types.Status {
	return types.Status(rawProxyDone())
}

func (wasmABI) ProxyDefineMetric(metricType types.MetricType, name []byte) (uint32, types.Status) {
	var id uint32
	st := rawProxyDefineMetric(uint32(metricType), ptrOf(name), uint32(len(name)), unsafe.Pointer(&id))
	return id, types.Status(st)
}

func (wasmABI) ProxyGetMetric(metricID uint32) (uint64, types.Status) {
	var value uint64
	st := rawProxyGetMetric(metricID, unsafe.Pointer(&value))
	return value, types.Status(st)
}

func (wasmABI) ProxyRecordMetric(metricID uint32, value uint64) types.Status {
	return types.Status(rawProxyRecordMetric(metricID, value))
}

func (wasmABI) ProxyIncrementMetric(metricID uint32, offset int64) types.Status {
	return types.Status(rawProxyIncrementMetric(metricID, offset))
}

// DefaultABI returns the real imported host surface on wasm builds.
func DefaultABI() ABI {
	return wasmABI{}
}
