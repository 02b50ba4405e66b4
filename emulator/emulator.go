package emulator

import (
	"bytes"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wasmgate/proxyguest/bytestring"
	"github.com/wasmgate/proxyguest/host"
	"github.com/wasmgate/proxyguest/types"
)

// LogEntry is one message the plugin logged through the host.
type LogEntry struct {
	Level   types.LogLevel
	Message string
}

// LocalResponse is one short-circuit HTTP response the plugin asked the
// host to send downstream.
type LocalResponse struct {
	StatusCode    uint32
	StatusDetails string
	Body          []byte
	Headers       []bytestring.Pair
	GRPCStatus    int32
}

// PendingCall is an HTTP callout the plugin dispatched that has not been
// completed yet.
type PendingCall struct {
	Token         uint32
	Upstream      string
	Headers       []bytestring.Pair
	Body          []byte
	Trailers      []bytestring.Pair
	TimeoutMillis uint32
}

// StreamOp records a continue or close the plugin requested on a stream.
type StreamOp struct {
	Close bool
	Type  types.StreamType
}

type sharedEntry struct {
	value []byte
	cas   uint32
}

type sharedQueue struct {
	id   uint32
	data [][]byte
}

type metric struct {
	kind  types.MetricType
	name  string
	value uint64
}

// Host is the in-memory host. The zero value is not usable; construct
// with New. Like the plugin side, it assumes a single driving goroutine.
type Host struct {
	log   *zap.Logger
	clock func() time.Time
	vmID  string

	tickPeriod time.Duration
	buffers    map[types.BufferType][]byte
	maps       map[types.MapType][]bytestring.Pair
	properties map[string][]byte
	shared     map[string]*sharedEntry
	queues     map[string]*sharedQueue
	queueNames map[uint32]string
	metrics    map[uint32]*metric

	nextQueueID  uint32
	nextToken    uint32
	nextMetricID uint32

	logged    []LogEntry
	responses []LocalResponse
	pending   []PendingCall
	streamOps []StreamOp
	effective []uint32
	doneCalls int
}

var _ host.ABI = (*Host)(nil)

// New creates an empty emulated host. A nil logger disables diagnostic
// output.
func New(log *zap.Logger) *Host {
	if log == nil {
		log = zap.NewNop()
	}
	return &Host{
		log:          log,
		clock:        time.Now,
		vmID:         "emulator",
		buffers:      make(map[types.BufferType][]byte),
		maps:         make(map[types.MapType][]bytestring.Pair),
		properties:   make(map[string][]byte),
		shared:       make(map[string]*sharedEntry),
		queues:       make(map[string]*sharedQueue),
		queueNames:   make(map[uint32]string),
		metrics:      make(map[uint32]*metric),
		nextQueueID:  1,
		nextToken:    1,
		nextMetricID: 1,
	}
}

// SetClock overrides the time source observed by the plugin.
func (h *Host) SetClock(fn func() time.Time) { h.clock = fn }

// Imported surface.

func (h *Host) ProxyLog(level types.LogLevel, message []byte) types.Status {
	h.logged = append(h.logged, LogEntry{Level: level, Message: string(message)})
	h.log.Debug("plugin log",
		zap.Stringer("level", level),
		zap.ByteString("message", message))
	return types.StatusOK
}

func (h *Host) ProxyGetCurrentTimeNanoseconds() (uint64, types.Status) {
	return uint64(h.clock().UnixNano()), types.StatusOK
}

func (h *Host) ProxySetTickPeriodMilliseconds(periodMillis uint32) types.Status {
	h.tickPeriod = time.Duration(periodMillis) * time.Millisecond
	return types.StatusOK
}

func (h *Host) ProxyGetBufferBytes(bufferType types.BufferType, start, maxSize uint32) ([]byte, types.Status) {
	buf, ok := h.buffers[bufferType]
	if !ok {
		return nil, types.StatusNotFound
	}
	if start > uint32(len(buf)) {
		return nil, types.StatusBadArgument
	}
	end := uint32(len(buf))
	if maxSize < end-start {
		end = start + maxSize
	}
	return bytes.Clone(buf[start:end]), types.StatusOK
}

func (h *Host) ProxySetBufferBytes(bufferType types.BufferType, start, size uint32, data []byte) types.Status {
	buf := h.buffers[bufferType]
	if start > uint32(len(buf)) {
		return types.StatusBadArgument
	}
	end := start + size
	if end > uint32(len(buf)) {
		end = uint32(len(buf))
	}
	out := make([]byte, 0, int(start)+len(data)+len(buf)-int(end))
	out = append(out, buf[:start]...)
	out = append(out, data...)
	out = append(out, buf[end:]...)
	h.buffers[bufferType] = out
	return types.StatusOK
}

func (h *Host) ProxyGetHeaderMapPairs(mapType types.MapType) ([]byte, types.Status) {
	return host.EncodeMap(h.maps[mapType]), types.StatusOK
}

func (h *Host) ProxySetHeaderMapPairs(mapType types.MapType, encodedPairs []byte) types.Status {
	pairs, err := host.DecodeMap(encodedPairs)
	if err != nil {
		return types.StatusSerializationFailure
	}
	h.maps[mapType] = pairs
	return types.StatusOK
}

func (h *Host) ProxyGetHeaderMapValue(mapType types.MapType, key []byte) ([]byte, types.Status) {
	for _, p := range h.maps[mapType] {
		if p.Key.Equal(key) {
			return bytes.Clone(p.Value), types.StatusOK
		}
	}
	return nil, types.StatusNotFound
}

func (h *Host) ProxyReplaceHeaderMapValue(mapType types.MapType, key, value []byte) types.Status {
	pairs := h.maps[mapType]
	for i, p := range pairs {
		if p.Key.Equal(key) {
			pairs[i].Value = bytestring.New(value)
			return types.StatusOK
		}
	}
	h.maps[mapType] = append(pairs, bytestring.Pair{
		Key:   bytestring.New(key),
		Value: bytestring.New(value),
	})
	return types.StatusOK
}

func (h *Host) ProxyRemoveHeaderMapValue(mapType types.MapType, key []byte) types.Status {
	pairs := h.maps[mapType]
	kept := pairs[:0]
	for _, p := range pairs {
		if !p.Key.Equal(key) {
			kept = append(kept, p)
		}
	}
	h.maps[mapType] = kept
	return types.StatusOK
}

func (h *Host) ProxyAddHeaderMapValue(mapType types.MapType, key, value []byte) types.Status {
	h.maps[mapType] = append(h.maps[mapType], bytestring.Pair{
		Key:   bytestring.New(key),
		Value: bytestring.New(value),
	})
	return types.StatusOK
}

func (h *Host) ProxyGetProperty(encodedPath []byte) ([]byte, types.Status) {
	v, ok := h.properties[string(encodedPath)]
	if !ok {
		return nil, types.StatusNotFound
	}
	return bytes.Clone(v), types.StatusOK
}

func (h *Host) ProxySetProperty(encodedPath, value []byte) types.Status {
	h.properties[string(encodedPath)] = bytes.Clone(value)
	return types.StatusOK
}

func (h *Host) ProxyGetSharedData(key []byte) ([]byte, uint32, types.Status) {
	e, ok := h.shared[string(key)]
	if !ok {
		return nil, 0, types.StatusNotFound
	}
	return bytes.Clone(e.value), e.cas, types.StatusOK
}

func (h *Host) ProxySetSharedData(key, value []byte, cas uint32) types.Status {
	e, ok := h.shared[string(key)]
	if !ok {
		if cas != 0 {
			return types.StatusCASMismatch
		}
		h.shared[string(key)] = &sharedEntry{value: bytes.Clone(value), cas: 1}
		return types.StatusOK
	}
	if cas != 0 && cas != e.cas {
		return types.StatusCASMismatch
	}
	e.value = bytes.Clone(value)
	e.cas++
	return types.StatusOK
}

func (h *Host) ProxyRegisterSharedQueue(name []byte) (uint32, types.Status) {
	if q, ok := h.queues[string(name)]; ok {
		return q.id, types.StatusOK
	}
	q := &sharedQueue{id: h.nextQueueID}
	h.nextQueueID++
	h.queues[string(name)] = q
	h.queueNames[q.id] = string(name)
	return q.id, types.StatusOK
}

func (h *Host) ProxyResolveSharedQueue(vmID, name []byte) (uint32, types.Status) {
	if string(vmID) != h.vmID {
		return 0, types.StatusNotFound
	}
	q, ok := h.queues[string(name)]
	if !ok {
		return 0, types.StatusNotFound
	}
	return q.id, types.StatusOK
}

func (h *Host) ProxyDequeueSharedQueue(queueID uint32) ([]byte, types.Status) {
	name, ok := h.queueNames[queueID]
	if !ok {
		return nil, types.StatusNotFound
	}
	q := h.queues[name]
	if len(q.data) == 0 {
		return nil, types.StatusEmpty
	}
	head := q.data[0]
	q.data = q.data[1:]
	return head, types.StatusOK
}

func (h *Host) ProxyEnqueueSharedQueue(queueID uint32, value []byte) types.Status {
	name, ok := h.queueNames[queueID]
	if !ok {
		return types.StatusNotFound
	}
	q := h.queues[name]
	q.data = append(q.data, bytes.Clone(value))
	return types.StatusOK
}

func (h *Host) ProxyContinueStream(streamType types.StreamType) types.Status {
	h.streamOps = append(h.streamOps, StreamOp{Type: streamType})
	return types.StatusOK
}

func (h *Host) ProxyCloseStream(streamType types.StreamType) types.Status {
	h.streamOps = append(h.streamOps, StreamOp{Close: true, Type: streamType})
	return types.StatusOK
}

func (h *Host) ProxySendLocalResponse(statusCode uint32, statusCodeDetails, body, encodedHeaders []byte, grpcStatus int32) types.Status {
	headers, err := host.DecodeMap(encodedHeaders)
	if err != nil {
		return types.StatusSerializationFailure
	}
	h.responses = append(h.responses, LocalResponse{
		StatusCode:    statusCode,
		StatusDetails: string(statusCodeDetails),
		Body:          bytes.Clone(body),
		Headers:       headers,
		GRPCStatus:    grpcStatus,
	})
	return types.StatusOK
}

func (h *Host) ProxyHTTPCall(upstream, encodedHeaders, body, encodedTrailers []byte, timeoutMillis uint32) (uint32, types.Status) {
	headers, err := host.DecodeMap(encodedHeaders)
	if err != nil {
		return 0, types.StatusSerializationFailure
	}
	trailers, err := host.DecodeMap(encodedTrailers)
	if err != nil {
		return 0, types.StatusSerializationFailure
	}
	token := h.nextToken
	h.nextToken++
	h.pending = append(h.pending, PendingCall{
		Token:         token,
		Upstream:      string(upstream),
		Headers:       headers,
		Body:          bytes.Clone(body),
		Trailers:      trailers,
		TimeoutMillis: timeoutMillis,
	})
	h.log.Debug("http callout dispatched",
		zap.Uint32("token", token),
		zap.ByteString("upstream", upstream))
	return token, types.StatusOK
}

func (h *Host) ProxySetEffectiveContext(contextID uint32) types.Status {
	h.effective = append(h.effective, contextID)
	return types.StatusOK
}

func (h *Host) ProxyDone() types.Status {
	h.doneCalls++
	return types.StatusOK
}

func (h *Host) ProxyDefineMetric(metricType types.MetricType, name []byte) (uint32, types.Status) {
	for id, m := range h.metrics {
		if m.name == string(name) {
			if m.kind != metricType {
				return 0, types.StatusBadArgument
			}
			return id, types.StatusOK
		}
	}
	id := h.nextMetricID
	h.nextMetricID++
	h.metrics[id] = &metric{kind: metricType, name: string(name)}
	return id, types.StatusOK
}

func (h *Host) ProxyGetMetric(metricID uint32) (uint64, types.Status) {
	m, ok := h.metrics[metricID]
	if !ok {
		return 0, types.StatusNotFound
	}
	return m.value, types.StatusOK
}

func (h *Host) ProxyRecordMetric(metricID uint32, value uint64) types.Status {
	m, ok := h.metrics[metricID]
	if !ok {
		return types.StatusNotFound
	}
	m.value = value
	return types.StatusOK
}

func (h *Host) ProxyIncrementMetric(metricID uint32, offset int64) types.Status {
	m, ok := h.metrics[metricID]
	if !ok {
		return types.StatusNotFound
	}
	next := int64(m.value) + offset
	if next < 0 {
		return types.StatusBadArgument
	}
	m.value = uint64(next)
	return types.StatusOK
}

// Host-side drivers and probes.

// SetBuffer installs the full contents of a host-owned buffer.
func (h *Host) SetBuffer(bufferType types.BufferType, data []byte) {
	h.buffers[bufferType] = bytes.Clone(data)
}

// Buffer returns the current contents of a host-owned buffer.
func (h *Host) Buffer(bufferType types.BufferType) []byte {
	return h.buffers[bufferType]
}

// SetMapPairs installs the full contents of a header-like map.
func (h *Host) SetMapPairs(mapType types.MapType, pairs []bytestring.Pair) {
	h.maps[mapType] = pairs
}

// MapPairs returns the current contents of a header-like map.
func (h *Host) MapPairs(mapType types.MapType) []bytestring.Pair {
	return h.maps[mapType]
}

// SetPropertyPath installs a property under a dotted path such as
// "request.path".
func (h *Host) SetPropertyPath(path string, value []byte) {
	encoded := host.EncodePropertyPath(strings.Split(path, "."))
	h.properties[string(encoded)] = bytes.Clone(value)
}

// TickPeriod reports the last tick period the plugin armed, zero when
// disarmed.
func (h *Host) TickPeriod() time.Duration { return h.tickPeriod }

// Logged returns every message the plugin has logged, in order.
func (h *Host) Logged() []LogEntry { return h.logged }

// LocalResponses returns every short-circuit response the plugin sent.
func (h *Host) LocalResponses() []LocalResponse { return h.responses }

// StreamOps returns every continue/close the plugin requested.
func (h *Host) StreamOps() []StreamOp { return h.streamOps }

// PendingCalls returns the callouts dispatched but not yet completed.
func (h *Host) PendingCalls() []PendingCall { return h.pending }

// EffectiveContext reports the id of the last explicit context switch,
// or zero if none happened.
func (h *Host) EffectiveContext() uint32 {
	if len(h.effective) == 0 {
		return 0
	}
	return h.effective[len(h.effective)-1]
}

// DoneCalls reports how often the plugin signaled deferred completion.
func (h *Host) DoneCalls() int { return h.doneCalls }

// MetricValue looks a metric up by name.
func (h *Host) MetricValue(name string) (uint64, bool) {
	for _, m := range h.metrics {
		if m.name == name {
			return m.value, true
		}
	}
	return 0, false
}

// QueueLen reports the depth of a named queue.
func (h *Host) QueueLen(name string) int {
	q, ok := h.queues[name]
	if !ok {
		return 0
	}
	return len(q.data)
}

// CompleteHTTPCall resolves a pending callout: the response payload is
// staged into the callout response map and buffer slots, where the
// plugin's response handler reads it, and the pending entry is removed.
// The caller then delivers the response event through the dispatcher.
func (h *Host) CompleteHTTPCall(token uint32, headers []bytestring.Pair, body []byte, trailers []bytestring.Pair) (PendingCall, bool) {
	for i, call := range h.pending {
		if call.Token != token {
			continue
		}
		h.pending = append(h.pending[:i], h.pending[i+1:]...)
		h.maps[types.MapTypeHTTPCallResponseHeaders] = headers
		h.maps[types.MapTypeHTTPCallResponseTrailers] = trailers
		h.buffers[types.BufferTypeHTTPCallResponseBody] = bytes.Clone(body)
		return call, true
	}
	return PendingCall{}, false
}
