// Package dispatch routes host-originated events to user-supplied context
// handlers.
//
// The host identifies every logical processing scope (plugin/root, network
// stream, HTTP stream) by an opaque 32-bit context id. The Dispatcher owns
// three id-to-handler tables, one per role, plus a correlation table for
// asynchronous callout tokens. For each inbound event it resolves the
// owning handler, marks that id as the active context (some outbound host
// calls operate implicitly on "whichever context is currently executing"),
// and forwards the typed payload.
//
// Identifier lifecycle is a hard contract with the host: ids are unique
// among live contexts, created exactly once and deleted exactly once, and
// a child context always references an already-registered root. When the
// dispatcher observes a violation it panics with a *ContractViolation:
// the host and plugin have desynchronized and continuing would misroute
// events for live connections. Recoverable failures (host calls returning
// a non-success status) are ordinary error values and never panic.
//
// The dispatcher is confined to one execution unit and relies on the host
// serializing events; it performs no locking.
package dispatch
