package host

import (
	"fmt"
	"time"

	"github.com/wasmgate/proxyguest/bytestring"
	"github.com/wasmgate/proxyguest/errors"
	"github.com/wasmgate/proxyguest/types"
)

// Calls provides the typed outbound capability surface over a raw ABI.
// A non-success status (other than the not-found/empty sentinels on read
// paths) surfaces as a *errors.HostCallError; payloads that fail to decode
// surface as a *errors.HostResponseError.
//
// Calls is confined to one execution unit and is not safe for concurrent
// use, matching the single-threaded scheduling model of the host.
type Calls struct {
	abi       ABI
	onCallout func(token uint32)
	minLevel  types.LogLevel
}

// NewCalls wraps abi. The log level gate defaults to trace (everything
// passes through to the host).
func NewCalls(abi ABI) *Calls {
	return &Calls{abi: abi, minLevel: types.LogLevelTrace}
}

// SetCalloutHook registers fn to run after every successfully dispatched
// HTTP callout, receiving the host-assigned token. The dispatcher uses
// this to correlate eventual responses back to the issuing context.
func (c *Calls) SetCalloutHook(fn func(token uint32)) {
	c.onCallout = fn
}

// SetLogLevel drops messages below level before they reach the host.
func (c *Calls) SetLogLevel(level types.LogLevel) {
	c.minLevel = level
}

// Log sends a message to the host logger.
func (c *Calls) Log(level types.LogLevel, message string) error {
	if level < c.minLevel {
		return nil
	}
	return errors.Call(FnProxyLog, c.abi.ProxyLog(level, []byte(message)))
}

// Logf formats and logs a message.
func (c *Calls) Logf(level types.LogLevel, format string, args ...any) error {
	if level < c.minLevel {
		return nil
	}
	return c.Log(level, fmt.Sprintf(format, args...))
}

// GetCurrentTime reads the host clock.
func (c *Calls) GetCurrentTime() (time.Time, error) {
	nanos, st := c.abi.ProxyGetCurrentTimeNanoseconds()
	if st != types.StatusOK {
		return time.Time{}, errors.Call(FnProxyGetCurrentTimeNanoseconds, st)
	}
	return time.Unix(0, int64(nanos)), nil
}

// SetTickPeriod arms (or with zero disarms) the periodic tick delivered to
// the root context.
func (c *Calls) SetTickPeriod(period time.Duration) error {
	return errors.Call(FnProxySetTickPeriodMilliseconds,
		c.abi.ProxySetTickPeriodMilliseconds(uint32(period.Milliseconds())))
}

// GetBuffer reads up to maxSize bytes of a host buffer starting at start.
// A missing buffer yields (nil, nil).
func (c *Calls) GetBuffer(bufferType types.BufferType, start, maxSize int) (bytestring.ByteString, error) {
	data, st := c.abi.ProxyGetBufferBytes(bufferType, uint32(start), uint32(maxSize))
	switch st {
	case types.StatusOK:
		return data, nil
	case types.StatusNotFound:
		return nil, nil
	default:
		return nil, errors.Call(FnProxyGetBufferBytes, st)
	}
}

// SetBuffer replaces size bytes of a host buffer at start with value.
func (c *Calls) SetBuffer(bufferType types.BufferType, start, size int, value []byte) error {
	return errors.Call(FnProxySetBufferBytes,
		c.abi.ProxySetBufferBytes(bufferType, uint32(start), uint32(size), value))
}

// GetMap returns every key-value pair of a header-like map.
func (c *Calls) GetMap(mapType types.MapType) ([]bytestring.Pair, error) {
	data, st := c.abi.ProxyGetHeaderMapPairs(mapType)
	if st != types.StatusOK {
		return nil, errors.Call(FnProxyGetHeaderMapPairs, st)
	}
	pairs, err := DecodeMap(data)
	if err != nil {
		return nil, errors.Response(FnProxyGetHeaderMapPairs, err)
	}
	return pairs, nil
}

// SetMap replaces the full contents of a header-like map.
func (c *Calls) SetMap(mapType types.MapType, pairs []bytestring.Pair) error {
	return errors.Call(FnProxySetHeaderMapPairs,
		c.abi.ProxySetHeaderMapPairs(mapType, EncodeMap(pairs)))
}

// GetMapValue returns the value for key, or (nil, nil) when absent.
func (c *Calls) GetMapValue(mapType types.MapType, key string) (bytestring.ByteString, error) {
	data, st := c.abi.ProxyGetHeaderMapValue(mapType, []byte(key))
	switch st {
	case types.StatusOK:
		return data, nil
	case types.StatusNotFound:
		return nil, nil
	default:
		return nil, errors.Call(FnProxyGetHeaderMapValue, st)
	}
}

// SetMapValue replaces the value for key; a nil value removes the key.
func (c *Calls) SetMapValue(mapType types.MapType, key string, value []byte) error {
	if value == nil {
		return errors.Call(FnProxyRemoveHeaderMapValue,
			c.abi.ProxyRemoveHeaderMapValue(mapType, []byte(key)))
	}
	return errors.Call(FnProxyReplaceHeaderMapValue,
		c.abi.ProxyReplaceHeaderMapValue(mapType, []byte(key), value))
}

// AddMapValue appends a key-value pair without replacing existing entries.
func (c *Calls) AddMapValue(mapType types.MapType, key string, value []byte) error {
	return errors.Call(FnProxyAddHeaderMapValue,
		c.abi.ProxyAddHeaderMapValue(mapType, []byte(key), value))
}

// GetProperty reads a property of the current context, or (nil, nil) when
// the path does not resolve.
func (c *Calls) GetProperty(path []string) (bytestring.ByteString, error) {
	data, st := c.abi.ProxyGetProperty(EncodePropertyPath(path))
	switch st {
	case types.StatusOK:
		return data, nil
	case types.StatusNotFound:
		return nil, nil
	default:
		return nil, errors.Call(FnProxyGetProperty, st)
	}
}

// SetProperty writes a property of the current context.
func (c *Calls) SetProperty(path []string, value []byte) error {
	return errors.Call(FnProxySetProperty,
		c.abi.ProxySetProperty(EncodePropertyPath(path), value))
}

// GetSharedData reads a shared key-value entry and its optimistic
// concurrency token. A missing key yields (nil, 0, nil).
func (c *Calls) GetSharedData(key string) (bytestring.ByteString, uint32, error) {
	data, cas, st := c.abi.ProxyGetSharedData([]byte(key))
	switch st {
	case types.StatusOK:
		return data, cas, nil
	case types.StatusNotFound:
		return nil, 0, nil
	default:
		return nil, 0, errors.Call(FnProxyGetSharedData, st)
	}
}

// SetSharedData writes a shared key-value entry. A non-zero cas must match
// the entry's current token or the host rejects the write with
// StatusCASMismatch.
func (c *Calls) SetSharedData(key string, value []byte, cas uint32) error {
	return errors.Call(FnProxySetSharedData,
		c.abi.ProxySetSharedData([]byte(key), value, cas))
}

// RegisterSharedQueue creates or attaches to a queue owned by this VM and
// returns its id.
func (c *Calls) RegisterSharedQueue(name string) (uint32, error) {
	id, st := c.abi.ProxyRegisterSharedQueue([]byte(name))
	if st != types.StatusOK {
		return 0, errors.Call(FnProxyRegisterSharedQueue, st)
	}
	return id, nil
}

// ResolveSharedQueue looks up a queue registered by another VM. The bool
// reports whether the queue exists.
func (c *Calls) ResolveSharedQueue(vmID, name string) (uint32, bool, error) {
	id, st := c.abi.ProxyResolveSharedQueue([]byte(vmID), []byte(name))
	switch st {
	case types.StatusOK:
		return id, true, nil
	case types.StatusNotFound:
		return 0, false, nil
	default:
		return 0, false, errors.Call(FnProxyResolveSharedQueue, st)
	}
}

// DequeueSharedQueue pops the oldest entry, or (nil, nil) when the queue
// is empty.
func (c *Calls) DequeueSharedQueue(queueID uint32) (bytestring.ByteString, error) {
	data, st := c.abi.ProxyDequeueSharedQueue(queueID)
	switch st {
	case types.StatusOK:
		return data, nil
	case types.StatusEmpty:
		return nil, nil
	default:
		return nil, errors.Call(FnProxyDequeueSharedQueue, st)
	}
}

// EnqueueSharedQueue pushes value onto a queue.
func (c *Calls) EnqueueSharedQueue(queueID uint32, value []byte) error {
	return errors.Call(FnProxyEnqueueSharedQueue,
		c.abi.ProxyEnqueueSharedQueue(queueID, value))
}

// ContinueStream resumes host processing of a paused stream.
func (c *Calls) ContinueStream(streamType types.StreamType) error {
	return errors.Call(FnProxyContinueStream, c.abi.ProxyContinueStream(streamType))
}

// CloseStream terminates host processing of a stream.
func (c *Calls) CloseStream(streamType types.StreamType) error {
	return errors.Call(FnProxyCloseStream, c.abi.ProxyCloseStream(streamType))
}

// SendHTTPResponse short-circuits the current HTTP exchange with a local
// response instead of forwarding to the upstream.
func (c *Calls) SendHTTPResponse(statusCode uint32, headers []bytestring.Pair, body []byte) error {
	return errors.Call(FnProxySendLocalResponse,
		c.abi.ProxySendLocalResponse(statusCode, nil, body, EncodeMap(headers), -1))
}

// DispatchHTTPCall issues an asynchronous HTTP call to an upstream and
// returns the host-assigned correlation token. The response arrives later
// as an ordinary inbound event; the configured callout hook records the
// token so the dispatcher can route that event.
func (c *Calls) DispatchHTTPCall(upstream string, headers []bytestring.Pair, body []byte,
	trailers []bytestring.Pair, timeout time.Duration) (uint32, error) {

	token, st := c.abi.ProxyHTTPCall([]byte(upstream),
		EncodeMap(headers), body, EncodeMap(trailers), uint32(timeout.Milliseconds()))
	if st != types.StatusOK {
		return 0, errors.Call(FnProxyHTTPCall, st)
	}
	if c.onCallout != nil {
		c.onCallout(token)
	}
	return token, nil
}

// SetEffectiveContext tells the host which context subsequent outbound
// calls should be attributed to.
func (c *Calls) SetEffectiveContext(contextID uint32) error {
	return errors.Call(FnProxySetEffectiveContext, c.abi.ProxySetEffectiveContext(contextID))
}

// Done signals that the plugin has finished processing the current
// context after deferring its "done" acknowledgment.
func (c *Calls) Done() error {
	return errors.Call(FnProxyDone, c.abi.ProxyDone())
}

// DefineMetric registers a named metric and returns its id.
func (c *Calls) DefineMetric(metricType types.MetricType, name string) (uint32, error) {
	id, st := c.abi.ProxyDefineMetric(metricType, []byte(name))
	if st != types.StatusOK {
		return 0, errors.Call(FnProxyDefineMetric, st)
	}
	return id, nil
}

// GetMetric reads the current value of a metric.
func (c *Calls) GetMetric(metricID uint32) (uint64, error) {
	value, st := c.abi.ProxyGetMetric(metricID)
	if st != types.StatusOK {
		return 0, errors.Call(FnProxyGetMetric, st)
	}
	return value, nil
}

// RecordMetric sets a metric to an absolute value.
func (c *Calls) RecordMetric(metricID uint32, value uint64) error {
	return errors.Call(FnProxyRecordMetric, c.abi.ProxyRecordMetric(metricID, value))
}

// IncrementMetric adjusts a metric by a signed offset.
func (c *Calls) IncrementMetric(metricID uint32, offset int64) error {
	return errors.Call(FnProxyIncrementMetric, c.abi.ProxyIncrementMetric(metricID, offset))
}
