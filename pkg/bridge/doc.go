// Package bridge runs the host protocol behind a WebSocket endpoint.
//
// A thin shim on the publisher page relays creative postMessage traffic to
// the bridge and executes element operations (resize, iframe sizing) on its
// behalf. Each WebSocket connection represents one page; slot identifiers
// are scoped to the connection. The bridge owns a host.Router per
// connection and proxies the page-side capabilities (slot element, frame,
// visibility observer, impression store) over the socket.
package bridge
