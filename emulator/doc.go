// Package emulator is an in-memory implementation of the host side of the
// ABI. It backs three consumers: unit tests that need a scriptable host,
// the vmhost bridge (which forwards sandboxed import calls here), and the
// guestrun CLI.
//
// The emulator stores buffers, header maps, properties, shared key-value
// data, named queues, and metrics, and records every observable side
// effect (log lines, local responses, dispatched callouts, effective
// context switches) for assertions. Scenario files let tests and the CLI
// preload host state from YAML instead of building it call by call.
package emulator
