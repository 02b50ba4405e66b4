// Package proxyguest is the in-module runtime for proxy-wasm plugins.
//
// A proxy-wasm plugin runs inside a sandboxed WebAssembly VM embedded in a
// proxy or edge server. The host drives the plugin through a fixed set of
// exported entry points (context creation, lifecycle and data events,
// teardown), and the plugin calls back into the host through a parallel set
// of imported functions (buffers, header maps, properties, shared state,
// metrics, asynchronous upstream calls).
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	proxyguest/          Root package documentation
//	├── guest/           Execution-unit entry points and factory registration
//	├── dispatch/        Context dispatcher: registries, routing, callouts
//	├── host/            Outbound host ABI: raw imports and typed wrappers
//	├── types/           Host ABI enumerations (actions, statuses, buffers)
//	├── bytestring/      Possibly-non-UTF-8 header/body value type
//	├── errors/          Structured errors for failed host calls
//	├── plugincfg/       JSON plugin configuration access
//	├── emulator/        In-memory host implementation for tests and tooling
//	└── vmhost/          wazero bridge running compiled plugins off-proxy
//
// # Quick Start
//
// A minimal HTTP filter registers a root context factory during init and
// lets the dispatcher create per-stream handlers:
//
//	func init() {
//		guest.SetRootContext(func(contextID uint32) dispatch.RootHandler {
//			return &myRoot{}
//		})
//		guest.SetHTTPContext(func(contextID, rootContextID uint32) dispatch.HTTPHandler {
//			return &myFilter{}
//		})
//	}
//
// Handlers embed the Base* types from the dispatch package and override
// only the events they care about.
//
// # Concurrency Model
//
// One execution unit (one wasm instance) is single-threaded and
// non-reentrant: the host serializes inbound events, and every event runs
// to completion before the next begins. The dispatcher and its tables are
// confined to that unit and are not safe for concurrent use. Host-side
// packages (emulator, vmhost) follow the same discipline and are meant to
// be driven from a single goroutine per plugin instance.
package proxyguest
