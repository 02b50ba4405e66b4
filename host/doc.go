// Package host exposes the outbound half of the proxy-wasm ABI: the
// functions a plugin imports from its host.
//
// Two layers are provided. ABI is the raw imported surface: one method per
// proxy_* import, status-code returning, operating on byte slices. Calls
// wraps an ABI with typed Go signatures, error conversion, and the binary
// codecs for header maps and property paths.
//
// On wasm builds (GOOS=wasip1) the default ABI is backed by real
// go:wasmimport declarations. Everywhere else the default ABI reports
// StatusUnimplemented, and tests or tooling substitute an implementation
// such as the emulator package.
package host
