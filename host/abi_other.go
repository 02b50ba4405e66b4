//go:build !(wasip1 && wasm)

package host

// DefaultABI returns an Unbound ABI on non-wasm targets; tests and tooling
// substitute their own implementation.
func DefaultABI() ABI {
	return Unbound{}
}
