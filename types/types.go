package types

import "strconv"

// Status is the result code returned by every host ABI call.
type Status uint32

const (
	StatusOK                   Status = 0
	StatusNotFound             Status = 1
	StatusBadArgument          Status = 2
	StatusSerializationFailure Status = 3
	StatusParseFailure         Status = 4
	StatusBadExpression        Status = 5
	StatusInvalidMemoryAccess  Status = 6
	StatusEmpty                Status = 7
	StatusCASMismatch          Status = 8
	StatusResultMismatch       Status = 9
	StatusInternalFailure      Status = 10
	StatusBrokenConnection     Status = 11
	StatusUnimplemented        Status = 12
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not_found"
	case StatusBadArgument:
		return "bad_argument"
	case StatusSerializationFailure:
		return "serialization_failure"
	case StatusParseFailure:
		return "parse_failure"
	case StatusBadExpression:
		return "bad_expression"
	case StatusInvalidMemoryAccess:
		return "invalid_memory_access"
	case StatusEmpty:
		return "empty"
	case StatusCASMismatch:
		return "cas_mismatch"
	case StatusResultMismatch:
		return "result_mismatch"
	case StatusInternalFailure:
		return "internal_failure"
	case StatusBrokenConnection:
		return "broken_connection"
	case StatusUnimplemented:
		return "unimplemented"
	}
	return "status(" + strconv.FormatUint(uint64(s), 10) + ")"
}

// Action tells the host whether to continue or pause stream processing
// after an event returns.
type Action uint32

const (
	ActionContinue Action = 0
	ActionPause    Action = 1
)

func (a Action) String() string {
	switch a {
	case ActionContinue:
		return "continue"
	case ActionPause:
		return "pause"
	}
	return "action(" + strconv.FormatUint(uint64(a), 10) + ")"
}

// LogLevel selects the severity of a message logged through the host.
type LogLevel uint32

const (
	LogLevelTrace    LogLevel = 0
	LogLevelDebug    LogLevel = 1
	LogLevelInfo     LogLevel = 2
	LogLevelWarn     LogLevel = 3
	LogLevelError    LogLevel = 4
	LogLevelCritical LogLevel = 5
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelTrace:
		return "trace"
	case LogLevelDebug:
		return "debug"
	case LogLevelInfo:
		return "info"
	case LogLevelWarn:
		return "warn"
	case LogLevelError:
		return "error"
	case LogLevelCritical:
		return "critical"
	}
	return "level(" + strconv.FormatUint(uint64(l), 10) + ")"
}

// ContextType classifies the kind of child context a root context expects
// to parent. A root that does not care reports neither.
type ContextType uint32

const (
	ContextTypeHTTP   ContextType = 0
	ContextTypeStream ContextType = 1
)

// StreamType selects which stream a continue/close host call applies to.
type StreamType uint32

const (
	StreamTypeHTTPRequest  StreamType = 0
	StreamTypeHTTPResponse StreamType = 1
	StreamTypeDownstream   StreamType = 2
	StreamTypeUpstream     StreamType = 3
)

// PeerType identifies which side closed a network connection.
type PeerType uint32

const (
	PeerTypeUnknown PeerType = 0
	PeerTypeLocal   PeerType = 1
	PeerTypeRemote  PeerType = 2
)

// BufferType selects a byte buffer owned by the host.
type BufferType uint32

const (
	BufferTypeHTTPRequestBody      BufferType = 0
	BufferTypeHTTPResponseBody     BufferType = 1
	BufferTypeDownstreamData       BufferType = 2
	BufferTypeUpstreamData         BufferType = 3
	BufferTypeHTTPCallResponseBody BufferType = 4
	BufferTypeGRPCReceiveBuffer    BufferType = 5
	BufferTypeVMConfiguration      BufferType = 6
	BufferTypePluginConfiguration  BufferType = 7
	BufferTypeCallData             BufferType = 8
)

// MapType selects a header-like map owned by the host.
type MapType uint32

const (
	MapTypeHTTPRequestHeaders          MapType = 0
	MapTypeHTTPRequestTrailers         MapType = 1
	MapTypeHTTPResponseHeaders         MapType = 2
	MapTypeHTTPResponseTrailers        MapType = 3
	MapTypeGRPCReceiveInitialMetadata  MapType = 4
	MapTypeGRPCReceiveTrailingMetadata MapType = 5
	MapTypeHTTPCallResponseHeaders     MapType = 6
	MapTypeHTTPCallResponseTrailers    MapType = 7
)

// MetricType selects the kind of metric defined on the host.
type MetricType uint32

const (
	MetricTypeCounter   MetricType = 0
	MetricTypeGauge     MetricType = 1
	MetricTypeHistogram MetricType = 2
)
