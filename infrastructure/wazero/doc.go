// Package wazero runs guest modules on the wazero runtime using the waPC host
// protocol.
//
// The guest exports __guest_call(operation_len, payload_len) and pulls the
// operation name and payload with __guest_request. It reports its result with
// __guest_response or __guest_error. Calls into the host go through
// __host_call(binding, namespace, operation, payload), whose result the guest
// fetches with __host_response / __host_error.
//
// # Basic Usage
//
//	loader := wazero.NewLoader(wazero.WithLogger(logger))
//	guest, err := loader.Load(ctx, bytecode, func(ctx context.Context, binding, ns, op string, payload []byte) ([]byte, error) {
//	    return registry.Dispatch(ctx, entities.HostCall{Binding: binding, Namespace: ns, Operation: op, Payload: payload})
//	})
//	if err != nil {
//	    return err
//	}
//	defer guest.Close(ctx)
//
//	out, err := guest.Call(ctx, "text", payload)
package wazero
