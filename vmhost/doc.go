// Package vmhost runs a compiled plugin inside a wazero sandbox against
// the emulated host. It registers the env module (the imported host
// surface) backed by an emulator.Host, loads the plugin's wasm binary,
// and exposes typed drivers for the exported entry points.
//
// The bridge exists for conformance runs: the same plugin binary a real
// proxy would load can be driven event by event from a Go test or from
// the guestrun CLI, with full visibility into the host state it touched.
package vmhost
