package guest

import (
	"testing"

	"github.com/wasmgate/proxyguest/dispatch"
	"github.com/wasmgate/proxyguest/host"
	"github.com/wasmgate/proxyguest/types"
)

type logABI struct {
	host.Unbound
	logged []string
}

func (a *logABI) ProxyLog(_ types.LogLevel, message []byte) types.Status {
	a.logged = append(a.logged, string(message))
	return types.StatusOK
}

type countingRoot struct {
	dispatch.BaseRootHandler
	ticks int
}

func (r *countingRoot) OnTick() { r.ticks++ }

func TestBind_CarriesRegistrations(t *testing.T) {
	root := &countingRoot{}
	SetRootContext(func(uint32) dispatch.RootHandler { return root })
	SetLogLevel(types.LogLevelWarn)

	abi := &logABI{}
	Bind(abi)

	// Factory survived the rebind.
	Dispatcher().OnContextCreate(1, 0)
	Dispatcher().OnTick(1)
	if root.ticks != 1 {
		t.Fatalf("root ticks = %d", root.ticks)
	}

	// So did the level gate.
	if err := Host().Log(types.LogLevelInfo, "filtered"); err != nil {
		t.Fatal(err)
	}
	if err := Host().Log(types.LogLevelError, "kept"); err != nil {
		t.Fatal(err)
	}
	if len(abi.logged) != 1 || abi.logged[0] != "kept" {
		t.Fatalf("host saw %v", abi.logged)
	}
}

func TestBind_DiscardsContextState(t *testing.T) {
	SetRootContext(func(uint32) dispatch.RootHandler { return &countingRoot{} })
	Bind(&logABI{})
	Dispatcher().OnContextCreate(1, 0)

	Bind(&logABI{})
	defer func() {
		if recover() == nil {
			t.Fatal("context survived rebind")
		}
	}()
	Dispatcher().OnTick(1)
}
