package host

import "unsafe"

// Buffers handed to the host through proxy_on_memory_allocate must stay
// reachable until the host passes them back through a return pointer, or
// the GC may reclaim them mid-call. The pin table keys buffers by the
// address of their first byte.
var pinned = map[uintptr][]byte{}

// AllocateMemory allocates a buffer the host can fill with input data and
// pins it against garbage collection. The wasm entry point
// proxy_on_memory_allocate is a thin wrapper over this.
func AllocateMemory(size uint32) []byte {
	if size == 0 {
		return nil
	}
	buf := make([]byte, size)
	pinned[uintptr(unsafe.Pointer(&buf[0]))] = buf
	return buf
}

// ptrOfBytes returns the address of the first byte, or nil for empty
// slices, matching how the ABI encodes absent payloads.
func ptrOfBytes(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(&b[0])
}

// claimMemory takes ownership of a host-returned buffer: it unpins the
// allocation and returns it as a slice. Pointers outside the pin table
// (a host writing into memory it owns) are copied defensively.
func claimMemory(ptr unsafe.Pointer, size uint32) []byte {
	if ptr == nil || size == 0 {
		return nil
	}
	key := uintptr(ptr)
	if buf, ok := pinned[key]; ok {
		delete(pinned, key)
		return buf[:size:size]
	}
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(ptr), size))
	return out
}
