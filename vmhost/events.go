package vmhost

import (
	"context"
	"fmt"

	"github.com/wasmgate/proxyguest/bytestring"
	"github.com/wasmgate/proxyguest/types"
)

// Typed drivers for the plugin's exported entry points. Each returns an
// error when the export is missing or the call traps; the abort of a
// plugin that detected a broken contract surfaces here as a trap.

func (vm *VM) call(ctx context.Context, name string, args ...uint64) ([]uint64, error) {
	if vm.mod == nil {
		return nil, fmt.Errorf("%s: no plugin loaded", name)
	}
	fn := vm.mod.ExportedFunction(name)
	if fn == nil {
		return nil, fmt.Errorf("%s: not exported by plugin", name)
	}
	res, err := fn.Call(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return res, nil
}

func (vm *VM) callBool(ctx context.Context, name string, args ...uint64) (bool, error) {
	res, err := vm.call(ctx, name, args...)
	if err != nil {
		return false, err
	}
	return len(res) > 0 && res[0] != 0, nil
}

func (vm *VM) callAction(ctx context.Context, name string, args ...uint64) (types.Action, error) {
	res, err := vm.call(ctx, name, args...)
	if err != nil {
		return types.ActionContinue, err
	}
	if len(res) == 0 {
		return types.ActionContinue, fmt.Errorf("%s: no result", name)
	}
	return types.Action(res[0]), nil
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func (vm *VM) OnContextCreate(ctx context.Context, contextID, rootContextID uint32) error {
	_, err := vm.call(ctx, "proxy_on_context_create", uint64(contextID), uint64(rootContextID))
	return err
}

func (vm *VM) OnDone(ctx context.Context, contextID uint32) (bool, error) {
	return vm.callBool(ctx, "proxy_on_done", uint64(contextID))
}

func (vm *VM) OnLog(ctx context.Context, contextID uint32) error {
	_, err := vm.call(ctx, "proxy_on_log", uint64(contextID))
	return err
}

func (vm *VM) OnDelete(ctx context.Context, contextID uint32) error {
	_, err := vm.call(ctx, "proxy_on_delete", uint64(contextID))
	return err
}

func (vm *VM) OnVMStart(ctx context.Context, contextID uint32, vmConfigurationSize int) (bool, error) {
	return vm.callBool(ctx, "proxy_on_vm_start", uint64(contextID), uint64(vmConfigurationSize))
}

func (vm *VM) OnConfigure(ctx context.Context, contextID uint32, pluginConfigurationSize int) (bool, error) {
	return vm.callBool(ctx, "proxy_on_configure", uint64(contextID), uint64(pluginConfigurationSize))
}

func (vm *VM) OnTick(ctx context.Context, contextID uint32) error {
	_, err := vm.call(ctx, "proxy_on_tick", uint64(contextID))
	return err
}

func (vm *VM) OnQueueReady(ctx context.Context, contextID, queueID uint32) error {
	_, err := vm.call(ctx, "proxy_on_queue_ready", uint64(contextID), uint64(queueID))
	return err
}

func (vm *VM) OnNewConnection(ctx context.Context, contextID uint32) (types.Action, error) {
	return vm.callAction(ctx, "proxy_on_new_connection", uint64(contextID))
}

func (vm *VM) OnDownstreamData(ctx context.Context, contextID uint32, dataSize int, endOfStream bool) (types.Action, error) {
	return vm.callAction(ctx, "proxy_on_downstream_data",
		uint64(contextID), uint64(dataSize), b2u(endOfStream))
}

func (vm *VM) OnDownstreamClose(ctx context.Context, contextID uint32, peer types.PeerType) error {
	_, err := vm.call(ctx, "proxy_on_downstream_connection_close", uint64(contextID), uint64(peer))
	return err
}

func (vm *VM) OnUpstreamData(ctx context.Context, contextID uint32, dataSize int, endOfStream bool) (types.Action, error) {
	return vm.callAction(ctx, "proxy_on_upstream_data",
		uint64(contextID), uint64(dataSize), b2u(endOfStream))
}

func (vm *VM) OnUpstreamClose(ctx context.Context, contextID uint32, peer types.PeerType) error {
	_, err := vm.call(ctx, "proxy_on_upstream_connection_close", uint64(contextID), uint64(peer))
	return err
}

func (vm *VM) OnRequestHeaders(ctx context.Context, contextID uint32, numHeaders int, endOfStream bool) (types.Action, error) {
	return vm.callAction(ctx, "proxy_on_request_headers",
		uint64(contextID), uint64(numHeaders), b2u(endOfStream))
}

func (vm *VM) OnRequestBody(ctx context.Context, contextID uint32, bodySize int, endOfStream bool) (types.Action, error) {
	return vm.callAction(ctx, "proxy_on_request_body",
		uint64(contextID), uint64(bodySize), b2u(endOfStream))
}

func (vm *VM) OnRequestTrailers(ctx context.Context, contextID uint32, numTrailers int) (types.Action, error) {
	return vm.callAction(ctx, "proxy_on_request_trailers", uint64(contextID), uint64(numTrailers))
}

func (vm *VM) OnResponseHeaders(ctx context.Context, contextID uint32, numHeaders int, endOfStream bool) (types.Action, error) {
	return vm.callAction(ctx, "proxy_on_response_headers",
		uint64(contextID), uint64(numHeaders), b2u(endOfStream))
}

func (vm *VM) OnResponseBody(ctx context.Context, contextID uint32, bodySize int, endOfStream bool) (types.Action, error) {
	return vm.callAction(ctx, "proxy_on_response_body",
		uint64(contextID), uint64(bodySize), b2u(endOfStream))
}

func (vm *VM) OnResponseTrailers(ctx context.Context, contextID uint32, numTrailers int) (types.Action, error) {
	return vm.callAction(ctx, "proxy_on_response_trailers", uint64(contextID), uint64(numTrailers))
}

// CompleteHTTPCall stages the response of a pending callout into host
// state and delivers the response event to the plugin.
func (vm *VM) CompleteHTTPCall(ctx context.Context, token uint32, headers []bytestring.Pair, body []byte, trailers []bytestring.Pair) error {
	if _, ok := vm.state.CompleteHTTPCall(token, headers, body, trailers); !ok {
		return fmt.Errorf("no pending callout for token %d", token)
	}
	_, err := vm.call(ctx, "proxy_on_http_call_response",
		0, uint64(token), uint64(len(headers)), uint64(len(body)), uint64(len(trailers)))
	return err
}
