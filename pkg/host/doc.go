// Package host implements the host side of the safeframe messaging protocol:
// a per-slot session state machine, a demultiplexing message router, and the
// size-change negotiation flows.
//
// # Components
//
//   - Router: registry mapping slot identifiers to sessions plus the single
//     dispatch entry point for inbound raw events. One router serves every
//     slot on a page; per-slot filtering happens after decode, by sentinel.
//   - Session: per-slot protocol state machine
//     (CONSTRUCTED → REGISTERED → CHANNEL_ESTABLISHED) holding the channel,
//     identity tokens, cached geometry, and the collapse target.
//   - SizeNegotiator: expand/collapse/fluid-resize orchestration on top of a
//     session, converting every resize outcome into exactly one response
//     envelope or a forced collapse; failures never propagate past it.
//
// # Collaborators
//
// The page machinery is consumed through interfaces, never implemented here:
// SlotElement (layout and the asynchronous resize primitive), Frame (the
// creative iframe surface), VisibilityObserver (geometry observations), and
// ImpressionSource (the consume-once delayed-impression URL).
//
// # Lifecycle
//
// Sessions register at construction and live for the page lifetime; the
// registry never removes entries. The channel is set at most once, by the
// first handshake carrying a non-empty channel value. Standard messages
// arriving before establishment are dropped, not queued; routing for the
// session keeps working once the channel is set.
package host
