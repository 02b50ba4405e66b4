// Command guestrun loads a compiled plugin and drives it through a full
// proxy lifecycle against the emulated host: VM start, configuration, an
// HTTP exchange, optional ticks, and teardown. Host state can be
// preloaded from a YAML scenario file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/wasmgate/proxyguest/bytestring"
	"github.com/wasmgate/proxyguest/emulator"
	"github.com/wasmgate/proxyguest/types"
	"github.com/wasmgate/proxyguest/vmhost"
)

const (
	rootContextID = 1
	httpContextID = 2
)

func main() {
	var (
		wasmFile = flag.String("wasm", "", "Path to plugin wasm file")
		scenario = flag.String("scenario", "", "YAML scenario with host state to preload")
		ticks    = flag.Int("ticks", 0, "Number of tick events to deliver after configuration")
		skipHTTP = flag.Bool("no-http", false, "Skip the HTTP exchange")
		debug    = flag.Bool("debug", false, "Verbose host-side logging")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: guestrun -wasm <plugin.wasm> [-scenario state.yaml] [-ticks n] [-no-http]")
		os.Exit(1)
	}

	if err := run(*wasmFile, *scenario, *ticks, *skipHTTP, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(wasmFile, scenarioFile string, ticks int, skipHTTP, debug bool) error {
	ctx := context.Background()

	log := zap.NewNop()
	if debug {
		var err error
		log, err = zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer log.Sync()
	}

	binary, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read plugin: %w", err)
	}

	state := emulator.New(log)
	if scenarioFile != "" {
		s, err := emulator.LoadScenario(scenarioFile)
		if err != nil {
			return err
		}
		s.Apply(state)
	}

	vm, err := vmhost.New(ctx, state, log)
	if err != nil {
		return err
	}
	defer vm.Close(ctx)

	if err := vm.Load(ctx, binary); err != nil {
		return err
	}

	section("lifecycle")
	event("create root context %d", rootContextID)
	if err := vm.OnContextCreate(ctx, rootContextID, 0); err != nil {
		return err
	}

	vmCfg := state.Buffer(types.BufferTypeVMConfiguration)
	event("vm start (%d config byte(s))", len(vmCfg))
	ok, err := vm.OnVMStart(ctx, rootContextID, len(vmCfg))
	if err != nil {
		return err
	}
	result("accepted=%t", ok)

	pluginCfg := state.Buffer(types.BufferTypePluginConfiguration)
	event("configure (%d config byte(s))", len(pluginCfg))
	ok, err = vm.OnConfigure(ctx, rootContextID, len(pluginCfg))
	if err != nil {
		return err
	}
	result("accepted=%t", ok)

	for i := 0; i < ticks; i++ {
		event("tick %d/%d", i+1, ticks)
		if err := vm.OnTick(ctx, rootContextID); err != nil {
			return err
		}
	}

	if !skipHTTP {
		if err := runHTTPExchange(ctx, vm, state); err != nil {
			return err
		}
	}

	printSideEffects(state)
	return nil
}

func runHTTPExchange(ctx context.Context, vm *vmhost.VM, state *emulator.Host) error {
	section("http exchange")

	event("create http context %d", httpContextID)
	if err := vm.OnContextCreate(ctx, httpContextID, rootContextID); err != nil {
		return err
	}

	reqHeaders := state.MapPairs(types.MapTypeHTTPRequestHeaders)
	event("request headers (%d)", len(reqHeaders))
	action, err := vm.OnRequestHeaders(ctx, httpContextID, len(reqHeaders), false)
	if err != nil {
		return err
	}
	result("action=%v", action)

	if body := state.Buffer(types.BufferTypeHTTPRequestBody); len(body) > 0 {
		event("request body (%d byte(s))", len(body))
		action, err = vm.OnRequestBody(ctx, httpContextID, len(body), true)
		if err != nil {
			return err
		}
		result("action=%v", action)
	}

	// Resolve whatever the plugin dispatched during request handling
	// before the response phase begins.
	for _, call := range state.PendingCalls() {
		event("complete callout token=%d upstream=%s", call.Token, call.Upstream)
		err := vm.CompleteHTTPCall(ctx, call.Token, []bytestring.Pair{
			{Key: bytestring.FromString(":status"), Value: bytestring.FromString("200")},
		}, nil, nil)
		if err != nil {
			return err
		}
	}

	respHeaders := state.MapPairs(types.MapTypeHTTPResponseHeaders)
	event("response headers (%d)", len(respHeaders))
	action, err = vm.OnResponseHeaders(ctx, httpContextID, len(respHeaders), false)
	if err != nil {
		return err
	}
	result("action=%v", action)

	if body := state.Buffer(types.BufferTypeHTTPResponseBody); len(body) > 0 {
		event("response body (%d byte(s))", len(body))
		action, err = vm.OnResponseBody(ctx, httpContextID, len(body), true)
		if err != nil {
			return err
		}
		result("action=%v", action)
	}

	event("finalize context %d", httpContextID)
	if err := vm.OnLog(ctx, httpContextID); err != nil {
		return err
	}
	done, err := vm.OnDone(ctx, httpContextID)
	if err != nil {
		return err
	}
	result("done=%t", done)
	return vm.OnDelete(ctx, httpContextID)
}
