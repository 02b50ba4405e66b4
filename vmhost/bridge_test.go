package vmhost

import (
	"context"
	"testing"

	"github.com/tetratelabs/wazero/api"

	"github.com/wasmgate/proxyguest/emulator"
	"github.com/wasmgate/proxyguest/host"
	"github.com/wasmgate/proxyguest/types"
)

func TestNew_RegistersHostModules(t *testing.T) {
	ctx := context.Background()
	vm, err := New(ctx, emulator.New(nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer vm.Close(ctx)

	if vm.runtime.Module("env") == nil {
		t.Fatal("env module not instantiated")
	}
	if vm.runtime.Module("wasi_snapshot_preview1") == nil {
		t.Fatal("wasi module not instantiated")
	}
}

func TestHostFunctions_CoverFullImportSurface(t *testing.T) {
	vm := &VM{state: emulator.New(nil)}
	fns := vm.hostFunctions()

	want := []string{
		host.FnProxyLog,
		host.FnProxyGetCurrentTimeNanoseconds,
		host.FnProxySetTickPeriodMilliseconds,
		host.FnProxyGetBufferBytes,
		host.FnProxySetBufferBytes,
		host.FnProxyGetHeaderMapPairs,
		host.FnProxySetHeaderMapPairs,
		host.FnProxyGetHeaderMapValue,
		host.FnProxyReplaceHeaderMapValue,
		host.FnProxyRemoveHeaderMapValue,
		host.FnProxyAddHeaderMapValue,
		host.FnProxyGetProperty,
		host.FnProxySetProperty,
		host.FnProxyGetSharedData,
		host.FnProxySetSharedData,
		host.FnProxyRegisterSharedQueue,
		host.FnProxyResolveSharedQueue,
		host.FnProxyDequeueSharedQueue,
		host.FnProxyEnqueueSharedQueue,
		host.FnProxyContinueStream,
		host.FnProxyCloseStream,
		host.FnProxySendLocalResponse,
		host.FnProxyHTTPCall,
		host.FnProxySetEffectiveContext,
		host.FnProxyDone,
		host.FnProxyDefineMetric,
		host.FnProxyGetMetric,
		host.FnProxyRecordMetric,
		host.FnProxyIncrementMetric,
	}

	seen := make(map[string]hostFn, len(fns))
	for _, f := range fns {
		if _, dup := seen[f.name]; dup {
			t.Fatalf("duplicate registration of %s", f.name)
		}
		seen[f.name] = f
	}
	for _, name := range want {
		f, ok := seen[name]
		if !ok {
			t.Fatalf("%s not registered", name)
		}
		if len(f.results) != 1 || f.results[0] != api.ValueTypeI32 {
			t.Fatalf("%s does not return a status", name)
		}
	}
	if len(fns) != len(want) {
		t.Fatalf("registered %d functions, want %d", len(fns), len(want))
	}
}

func TestStatelessImports(t *testing.T) {
	state := emulator.New(nil)
	vm := &VM{state: state}

	stack := []uint64{250}
	vm.proxySetTickPeriod(context.Background(), nil, stack)
	if types.Status(stack[0]) != types.StatusOK {
		t.Fatalf("set tick period: %v", types.Status(stack[0]))
	}

	stack = []uint64{9}
	vm.proxySetEffectiveContext(context.Background(), nil, stack)
	if types.Status(stack[0]) != types.StatusOK || state.EffectiveContext() != 9 {
		t.Fatalf("effective context = %d", state.EffectiveContext())
	}

	stack = []uint64{}
	stack = append(stack, 0)
	vm.proxyDone(context.Background(), nil, stack)
	if state.DoneCalls() != 1 {
		t.Fatalf("done calls = %d", state.DoneCalls())
	}
}

func TestEventDrivers_RequireLoadedPlugin(t *testing.T) {
	ctx := context.Background()
	vm, err := New(ctx, emulator.New(nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer vm.Close(ctx)

	if err := vm.OnContextCreate(ctx, 1, 0); err == nil {
		t.Fatal("expected error without a loaded plugin")
	}
}
