// Package types defines the enumerations shared across the proxy-wasm host
// ABI: statuses, actions, log levels, and the buffer/map/metric selectors
// consumed by host calls. The dispatcher and host layers consume these
// values; they are defined by the host ABI, not invented here.
package types
