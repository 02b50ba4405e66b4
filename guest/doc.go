// Package guest is the plugin-facing entry point. It owns the process-wide
// dispatcher instance that the wasm exports drive, and exposes the
// registration surface a plugin uses at startup:
//
//	func main() {
//		guest.SetRootContext(func(contextID uint32) dispatch.RootHandler {
//			return &myPlugin{}
//		})
//	}
//
// A wasm module has exactly one event loop, so the runtime here is a
// package-level singleton by construction rather than by convenience. On
// non-wasm builds the same surface binds to an unimplemented ABI; Bind
// swaps in a live one for tests and embedders.
package guest
