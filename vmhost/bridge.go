package vmhost

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wasmgate/proxyguest/emulator"
	"github.com/wasmgate/proxyguest/host"
	"github.com/wasmgate/proxyguest/types"
)

// VM hosts one plugin instance. Construct with New, feed it a binary
// with Load, then drive events through the On* methods. Not safe for
// concurrent use; the ABI is single threaded on both sides.
type VM struct {
	runtime wazero.Runtime
	mod     api.Module
	state   *emulator.Host
	log     *zap.Logger
}

// New creates a sandbox wired to state. The env and WASI host modules
// are instantiated immediately; the plugin itself is loaded separately.
func New(ctx context.Context, state *emulator.Host, log *zap.Logger) (*VM, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := &VM{
		runtime: wazero.NewRuntime(ctx),
		state:   state,
		log:     log,
	}
	if err := vm.instantiateEnv(ctx); err != nil {
		vm.runtime.Close(ctx)
		return nil, fmt.Errorf("register host module: %w", err)
	}
	wasi_snapshot_preview1.MustInstantiate(ctx, vm.runtime)
	return vm, nil
}

// Load compiles and instantiates the plugin binary. Reactor-style
// binaries get their _initialize called; start functions do not run
// automatically, events are delivered explicitly.
func (vm *VM) Load(ctx context.Context, binary []byte) error {
	cfg := wazero.NewModuleConfig().
		WithName("plugin").
		WithStartFunctions()
	mod, err := vm.runtime.InstantiateWithConfig(ctx, binary, cfg)
	if err != nil {
		return fmt.Errorf("instantiate plugin: %w", err)
	}
	vm.mod = mod

	if initFn := mod.ExportedFunction("_initialize"); initFn != nil {
		if _, err := initFn.Call(ctx); err != nil {
			return fmt.Errorf("run _initialize: %w", err)
		}
	}
	vm.log.Debug("plugin loaded", zap.String("module", mod.Name()))
	return nil
}

// State returns the emulated host the plugin runs against.
func (vm *VM) State() *emulator.Host { return vm.state }

// Close tears the sandbox down.
func (vm *VM) Close(ctx context.Context) error {
	return vm.runtime.Close(ctx)
}

// hostFn describes one imported function of the env module.
type hostFn struct {
	name    string
	fn      api.GoModuleFunc
	params  []api.ValueType
	results []api.ValueType
}

func (vm *VM) instantiateEnv(ctx context.Context) error {
	b := vm.runtime.NewHostModuleBuilder("env")
	for _, f := range vm.hostFunctions() {
		b.NewFunctionBuilder().
			WithGoModuleFunction(f.fn, f.params, f.results).
			Export(f.name)
	}
	_, err := b.Instantiate(ctx)
	return err
}

func (vm *VM) hostFunctions() []hostFn {
	i32 := api.ValueTypeI32
	i64 := api.ValueTypeI64
	sig := func(n int) []api.ValueType {
		p := make([]api.ValueType, n)
		for i := range p {
			p[i] = i32
		}
		return p
	}
	ret := []api.ValueType{i32}

	return []hostFn{
		{host.FnProxyLog, vm.proxyLog, sig(3), ret},
		{host.FnProxyGetCurrentTimeNanoseconds, vm.proxyGetCurrentTime, sig(1), ret},
		{host.FnProxySetTickPeriodMilliseconds, vm.proxySetTickPeriod, sig(1), ret},
		{host.FnProxyGetBufferBytes, vm.proxyGetBufferBytes, sig(5), ret},
		{host.FnProxySetBufferBytes, vm.proxySetBufferBytes, sig(5), ret},
		{host.FnProxyGetHeaderMapPairs, vm.proxyGetHeaderMapPairs, sig(3), ret},
		{host.FnProxySetHeaderMapPairs, vm.proxySetHeaderMapPairs, sig(3), ret},
		{host.FnProxyGetHeaderMapValue, vm.proxyGetHeaderMapValue, sig(5), ret},
		{host.FnProxyReplaceHeaderMapValue, vm.proxyReplaceHeaderMapValue, sig(5), ret},
		{host.FnProxyRemoveHeaderMapValue, vm.proxyRemoveHeaderMapValue, sig(3), ret},
		{host.FnProxyAddHeaderMapValue, vm.proxyAddHeaderMapValue, sig(5), ret},
		{host.FnProxyGetProperty, vm.proxyGetProperty, sig(4), ret},
		{host.FnProxySetProperty, vm.proxySetProperty, sig(4), ret},
		{host.FnProxyGetSharedData, vm.proxyGetSharedData, sig(5), ret},
		{host.FnProxySetSharedData, vm.proxySetSharedData, sig(5), ret},
		{host.FnProxyRegisterSharedQueue, vm.proxyRegisterSharedQueue, sig(3), ret},
		{host.FnProxyResolveSharedQueue, vm.proxyResolveSharedQueue, sig(5), ret},
		{host.FnProxyDequeueSharedQueue, vm.proxyDequeueSharedQueue, sig(3), ret},
		{host.FnProxyEnqueueSharedQueue, vm.proxyEnqueueSharedQueue, sig(3), ret},
		{host.FnProxyContinueStream, vm.proxyContinueStream, sig(1), ret},
		{host.FnProxyCloseStream, vm.proxyCloseStream, sig(1), ret},
		{host.FnProxySendLocalResponse, vm.proxySendLocalResponse, sig(8), ret},
		{host.FnProxyHTTPCall, vm.proxyHTTPCall, sig(10), ret},
		{host.FnProxySetEffectiveContext, vm.proxySetEffectiveContext, sig(1), ret},
		{host.FnProxyDone, vm.proxyDone, sig(0), ret},
		{host.FnProxyDefineMetric, vm.proxyDefineMetric, sig(4), ret},
		{host.FnProxyGetMetric, vm.proxyGetMetric, sig(2), ret},
		{host.FnProxyRecordMetric, vm.proxyRecordMetric, []api.ValueType{i32, i64}, ret},
		{host.FnProxyIncrementMetric, vm.proxyIncrementMetric, []api.ValueType{i32, i64}, ret},
	}
}

func statusResult(stack []uint64, st types.Status) {
	stack[0] = uint64(st)
}

func (vm *VM) proxyLog(_ context.Context, mod api.Module, stack []uint64) {
	msg, ok := readBytes(mod, uint32(stack[1]), uint32(stack[2]))
	if !ok {
		statusResult(stack, types.StatusInvalidMemoryAccess)
		return
	}
	statusResult(stack, vm.state.ProxyLog(types.LogLevel(stack[0]), msg))
}

func (vm *VM) proxyGetCurrentTime(_ context.Context, mod api.Module, stack []uint64) {
	nanos, st := vm.state.ProxyGetCurrentTimeNanoseconds()
	if st == types.StatusOK && !writeU64(mod, uint32(stack[0]), nanos) {
		st = types.StatusInvalidMemoryAccess
	}
	statusResult(stack, st)
}

func (vm *VM) proxySetTickPeriod(_ context.Context, _ api.Module, stack []uint64) {
	statusResult(stack, vm.state.ProxySetTickPeriodMilliseconds(uint32(stack[0])))
}

func (vm *VM) proxyGetBufferBytes(ctx context.Context, mod api.Module, stack []uint64) {
	data, st := vm.state.ProxyGetBufferBytes(types.BufferType(stack[0]), uint32(stack[1]), uint32(stack[2]))
	if st == types.StatusOK {
		st = copyOut(ctx, mod, data, uint32(stack[3]), uint32(stack[4]))
	}
	statusResult(stack, st)
}

func (vm *VM) proxySetBufferBytes(_ context.Context, mod api.Module, stack []uint64) {
	data, ok := readBytes(mod, uint32(stack[3]), uint32(stack[4]))
	if !ok {
		statusResult(stack, types.StatusInvalidMemoryAccess)
		return
	}
	statusResult(stack, vm.state.ProxySetBufferBytes(
		types.BufferType(stack[0]), uint32(stack[1]), uint32(stack[2]), data))
}

func (vm *VM) proxyGetHeaderMapPairs(ctx context.Context, mod api.Module, stack []uint64) {
	data, st := vm.state.ProxyGetHeaderMapPairs(types.MapType(stack[0]))
	if st == types.StatusOK {
		st = copyOut(ctx, mod, data, uint32(stack[1]), uint32(stack[2]))
	}
	statusResult(stack, st)
}

func (vm *VM) proxySetHeaderMapPairs(_ context.Context, mod api.Module, stack []uint64) {
	data, ok := readBytes(mod, uint32(stack[1]), uint32(stack[2]))
	if !ok {
		statusResult(stack, types.StatusInvalidMemoryAccess)
		return
	}
	statusResult(stack, vm.state.ProxySetHeaderMapPairs(types.MapType(stack[0]), data))
}

func (vm *VM) proxyGetHeaderMapValue(ctx context.Context, mod api.Module, stack []uint64) {
	key, ok := readBytes(mod, uint32(stack[1]), uint32(stack[2]))
	if !ok {
		statusResult(stack, types.StatusInvalidMemoryAccess)
		return
	}
	value, st := vm.state.ProxyGetHeaderMapValue(types.MapType(stack[0]), key)
	if st == types.StatusOK {
		st = copyOut(ctx, mod, value, uint32(stack[3]), uint32(stack[4]))
	}
	statusResult(stack, st)
}

func (vm *VM) proxyReplaceHeaderMapValue(_ context.Context, mod api.Module, stack []uint64) {
	key, okK := readBytes(mod, uint32(stack[1]), uint32(stack[2]))
	value, okV := readBytes(mod, uint32(stack[3]), uint32(stack[4]))
	if !okK || !okV {
		statusResult(stack, types.StatusInvalidMemoryAccess)
		return
	}
	statusResult(stack, vm.state.ProxyReplaceHeaderMapValue(types.MapType(stack[0]), key, value))
}

func (vm *VM) proxyRemoveHeaderMapValue(_ context.Context, mod api.Module, stack []uint64) {
	key, ok := readBytes(mod, uint32(stack[1]), uint32(stack[2]))
	if !ok {
		statusResult(stack, types.StatusInvalidMemoryAccess)
		return
	}
	statusResult(stack, vm.state.ProxyRemoveHeaderMapValue(types.MapType(stack[0]), key))
}

func (vm *VM) proxyAddHeaderMapValue(_ context.Context, mod api.Module, stack []uint64) {
	key, okK := readBytes(mod, uint32(stack[1]), uint32(stack[2]))
	value, okV := readBytes(mod, uint32(stack[3]), uint32(stack[4]))
	if !okK || !okV {
		statusResult(stack, types.StatusInvalidMemoryAccess)
		return
	}
	statusResult(stack, vm.state.ProxyAddHeaderMapValue(types.MapType(stack[0]), key, value))
}

func (vm *VM) proxyGetProperty(ctx context.Context, mod api.Module, stack []uint64) {
	path, ok := readBytes(mod, uint32(stack[0]), uint32(stack[1]))
	if !ok {
		statusResult(stack, types.StatusInvalidMemoryAccess)
		return
	}
	value, st := vm.state.ProxyGetProperty(path)
	if st == types.StatusOK {
		st = copyOut(ctx, mod, value, uint32(stack[2]), uint32(stack[3]))
	}
	statusResult(stack, st)
}

func (vm *VM) proxySetProperty(_ context.Context, mod api.Module, stack []uint64) {
	path, okP := readBytes(mod, uint32(stack[0]), uint32(stack[1]))
	value, okV := readBytes(mod, uint32(stack[2]), uint32(stack[3]))
	if !okP || !okV {
		statusResult(stack, types.StatusInvalidMemoryAccess)
		return
	}
	statusResult(stack, vm.state.ProxySetProperty(path, value))
}

func (vm *VM) proxyGetSharedData(ctx context.Context, mod api.Module, stack []uint64) {
	key, ok := readBytes(mod, uint32(stack[0]), uint32(stack[1]))
	if !ok {
		statusResult(stack, types.StatusInvalidMemoryAccess)
		return
	}
	value, cas, st := vm.state.ProxyGetSharedData(key)
	if st == types.StatusOK {
		st = copyOut(ctx, mod, value, uint32(stack[2]), uint32(stack[3]))
	}
	if st == types.StatusOK && !writeU32(mod, uint32(stack[4]), cas) {
		st = types.StatusInvalidMemoryAccess
	}
	statusResult(stack, st)
}

func (vm *VM) proxySetSharedData(_ context.Context, mod api.Module, stack []uint64) {
	key, okK := readBytes(mod, uint32(stack[0]), uint32(stack[1]))
	value, okV := readBytes(mod, uint32(stack[2]), uint32(stack[3]))
	if !okK || !okV {
		statusResult(stack, types.StatusInvalidMemoryAccess)
		return
	}
	statusResult(stack, vm.state.ProxySetSharedData(key, value, uint32(stack[4])))
}

func (vm *VM) proxyRegisterSharedQueue(_ context.Context, mod api.Module, stack []uint64) {
	name, ok := readBytes(mod, uint32(stack[0]), uint32(stack[1]))
	if !ok {
		statusResult(stack, types.StatusInvalidMemoryAccess)
		return
	}
	id, st := vm.state.ProxyRegisterSharedQueue(name)
	if st == types.StatusOK && !writeU32(mod, uint32(stack[2]), id) {
		st = types.StatusInvalidMemoryAccess
	}
	statusResult(stack, st)
}

func (vm *VM) proxyResolveSharedQueue(_ context.Context, mod api.Module, stack []uint64) {
	vmID, okV := readBytes(mod, uint32(stack[0]), uint32(stack[1]))
	name, okN := readBytes(mod, uint32(stack[2]), uint32(stack[3]))
	if !okV || !okN {
		statusResult(stack, types.StatusInvalidMemoryAccess)
		return
	}
	id, st := vm.state.ProxyResolveSharedQueue(vmID, name)
	if st == types.StatusOK && !writeU32(mod, uint32(stack[4]), id) {
		st = types.StatusInvalidMemoryAccess
	}
	statusResult(stack, st)
}

func (vm *VM) proxyDequeueSharedQueue(ctx context.Context, mod api.Module, stack []uint64) {
	value, st := vm.state.ProxyDequeueSharedQueue(uint32(stack[0]))
	if st == types.StatusOK {
		st = copyOut(ctx, mod, value, uint32(stack[1]), uint32(stack[2]))
	}
	statusResult(stack, st)
}

func (vm *VM) proxyEnqueueSharedQueue(_ context.Context, mod api.Module, stack []uint64) {
	value, ok := readBytes(mod, uint32(stack[1]), uint32(stack[2]))
	if !ok {
		statusResult(stack, types.StatusInvalidMemoryAccess)
		return
	}
	statusResult(stack, vm.state.ProxyEnqueueSharedQueue(uint32(stack[0]), value))
}

func (vm *VM) proxyContinueStream(_ context.Context, _ api.Module, stack []uint64) {
	statusResult(stack, vm.state.ProxyContinueStream(types.StreamType(stack[0])))
}

func (vm *VM) proxyCloseStream(_ context.Context, _ api.Module, stack []uint64) {
	statusResult(stack, vm.state.ProxyCloseStream(types.StreamType(stack[0])))
}

func (vm *VM) proxySendLocalResponse(_ context.Context, mod api.Module, stack []uint64) {
	details, okD := readBytes(mod, uint32(stack[1]), uint32(stack[2]))
	body, okB := readBytes(mod, uint32(stack[3]), uint32(stack[4]))
	headers, okH := readBytes(mod, uint32(stack[5]), uint32(stack[6]))
	if !okD || !okB || !okH {
		statusResult(stack, types.StatusInvalidMemoryAccess)
		return
	}
	statusResult(stack, vm.state.ProxySendLocalResponse(
		uint32(stack[0]), details, body, headers, int32(uint32(stack[7]))))
}

func (vm *VM) proxyHTTPCall(_ context.Context, mod api.Module, stack []uint64) {
	upstream, okU := readBytes(mod, uint32(stack[0]), uint32(stack[1]))
	headers, okH := readBytes(mod, uint32(stack[2]), uint32(stack[3]))
	body, okB := readBytes(mod, uint32(stack[4]), uint32(stack[5]))
	trailers, okT := readBytes(mod, uint32(stack[6]), uint32(stack[7]))
	if !okU || !okH || !okB || !okT {
		statusResult(stack, types.StatusInvalidMemoryAccess)
		return
	}
	token, st := vm.state.ProxyHTTPCall(upstream, headers, body, trailers, uint32(stack[8]))
	if st == types.StatusOK && !writeU32(mod, uint32(stack[9]), token) {
		st = types.StatusInvalidMemoryAccess
	}
	statusResult(stack, st)
}

func (vm *VM) proxySetEffectiveContext(_ context.Context, _ api.Module, stack []uint64) {
	statusResult(stack, vm.state.ProxySetEffectiveContext(uint32(stack[0])))
}

func (vm *VM) proxyDone(_ context.Context, _ api.Module, stack []uint64) {
	statusResult(stack, vm.state.ProxyDone())
}

func (vm *VM) proxyDefineMetric(_ context.Context, mod api.Module, stack []uint64) {
	name, ok := readBytes(mod, uint32(stack[1]), uint32(stack[2]))
	if !ok {
		statusResult(stack, types.StatusInvalidMemoryAccess)
		return
	}
	id, st := vm.state.ProxyDefineMetric(types.MetricType(stack[0]), name)
	if st == types.StatusOK && !writeU32(mod, uint32(stack[3]), id) {
		st = types.StatusInvalidMemoryAccess
	}
	statusResult(stack, st)
}

func (vm *VM) proxyGetMetric(_ context.Context, mod api.Module, stack []uint64) {
	value, st := vm.state.ProxyGetMetric(uint32(stack[0]))
	if st == types.StatusOK && !writeU64(mod, uint32(stack[1]), value) {
		st = types.StatusInvalidMemoryAccess
	}
	statusResult(stack, st)
}

func (vm *VM) proxyRecordMetric(_ context.Context, _ api.Module, stack []uint64) {
	statusResult(stack, vm.state.ProxyRecordMetric(uint32(stack[0]), stack[1]))
}

func (vm *VM) proxyIncrementMetric(_ context.Context, _ api.Module, stack []uint64) {
	statusResult(stack, vm.state.ProxyIncrementMetric(uint32(stack[0]), int64(stack[1])))
}
