package vmhost

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wasmgate/proxyguest/types"
)

const fnMemoryAllocate = "proxy_on_memory_allocate"

// readBytes copies size bytes of guest memory starting at ptr. The copy
// matters: the underlying view is invalidated when the guest grows its
// memory.
func readBytes(mod api.Module, ptr, size uint32) ([]byte, bool) {
	if size == 0 {
		return nil, true
	}
	view, ok := mod.Memory().Read(ptr, size)
	if !ok {
		return nil, false
	}
	out := make([]byte, size)
	copy(out, view)
	return out, true
}

func writeU32(mod api.Module, ptr, value uint32) bool {
	return mod.Memory().WriteUint32Le(ptr, value)
}

func writeU64(mod api.Module, ptr uint32, value uint64) bool {
	return mod.Memory().WriteUint64Le(ptr, value)
}

// copyOut hands data to the guest: it asks the guest allocator for a
// buffer, copies data into it, and stores the resulting pointer and size
// through the two return slots. Empty data stores a null pointer.
func copyOut(ctx context.Context, mod api.Module, data []byte, retData, retSize uint32) types.Status {
	if len(data) == 0 {
		if !writeU32(mod, retData, 0) || !writeU32(mod, retSize, 0) {
			return types.StatusInvalidMemoryAccess
		}
		return types.StatusOK
	}

	alloc := mod.ExportedFunction(fnMemoryAllocate)
	if alloc == nil {
		return types.StatusInternalFailure
	}
	res, err := alloc.Call(ctx, uint64(len(data)))
	if err != nil || len(res) != 1 {
		return types.StatusInternalFailure
	}
	ptr := uint32(res[0])
	if !mod.Memory().Write(ptr, data) {
		return types.StatusInvalidMemoryAccess
	}
	if !writeU32(mod, retData, ptr) || !writeU32(mod, retSize, uint32(len(data))) {
		return types.StatusInvalidMemoryAccess
	}
	return types.StatusOK
}
