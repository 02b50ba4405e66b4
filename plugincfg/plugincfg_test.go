package plugincfg

import (
	"testing"

	"github.com/wasmgate/proxyguest/emulator"
	"github.com/wasmgate/proxyguest/host"
	"github.com/wasmgate/proxyguest/types"
)

const sample = `{
	"mode": "strict",
	"limits": {"max_pending": 16, "enforce": true},
	"upstreams": ["auth", "billing"]
}`

func TestLoadPlugin(t *testing.T) {
	emu := emulator.New(nil)
	emu.SetBuffer(types.BufferTypePluginConfiguration, []byte(sample))
	calls := host.NewCalls(emu)

	cfg, err := LoadPlugin(calls, len(sample))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Valid() {
		t.Fatal("payload did not parse")
	}
	if got := cfg.String("mode", "lenient"); got != "strict" {
		t.Fatalf("mode = %q", got)
	}
	if got := cfg.Int("limits.max_pending", 0); got != 16 {
		t.Fatalf("max_pending = %d", got)
	}
	if !cfg.Bool("limits.enforce", false) {
		t.Fatal("enforce = false")
	}
	if got := cfg.Strings("upstreams"); len(got) != 2 || got[1] != "billing" {
		t.Fatalf("upstreams = %v", got)
	}
}

func TestFallbacks(t *testing.T) {
	cfg := Parse([]byte(`{"present": "yes"}`))
	if got := cfg.String("absent", "default"); got != "default" {
		t.Fatalf("string fallback = %q", got)
	}
	if got := cfg.Int("absent", 7); got != 7 {
		t.Fatalf("int fallback = %d", got)
	}
	if cfg.Exists("absent") {
		t.Fatal("absent path exists")
	}
	if cfg.Strings("present") != nil {
		t.Fatal("scalar produced a string slice")
	}
}

func TestZeroSize(t *testing.T) {
	calls := host.NewCalls(host.Unbound{})
	cfg, err := LoadPlugin(calls, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.IsEmpty() {
		t.Fatal("expected empty config")
	}
}

func TestLoadVM(t *testing.T) {
	emu := emulator.New(nil)
	emu.SetBuffer(types.BufferTypeVMConfiguration, []byte(`{"vm":"shared"}`))
	calls := host.NewCalls(emu)

	cfg, err := LoadVM(calls, len(`{"vm":"shared"}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.String("vm", ""); got != "shared" {
		t.Fatalf("vm = %q", got)
	}
}
