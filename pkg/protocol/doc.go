// Package protocol implements the wire codec for host <-> creative safeframe
// messaging.
//
// # Wire Format
//
// Every message is a flat JSON envelope with short field names:
//
//	c  channel (negotiated once per slot)
//	e  slot identifier ("sentinel"), present only on handshake messages
//	i  endpoint identity token
//	p  payload (service-specific, itself JSON text for standard messages)
//	s  service name
//
// Handshake messages carry the sentinel at the envelope's top level;
// standard messages carry it inside the payload instead.
//
// # Services
//
// Service names form a closed set. Inbound payloads decode through
// DecodeMessage into one typed variant per service, so an unhandled service
// is a visible gap in the dispatch switch rather than a silent default.
// Services outside the set decode to UnknownMessage, which still carries the
// sentinel for routing and is treated as a no-op by the session.
//
// # Usage
//
//	env, err := protocol.DecodeEnvelope(raw)
//	if err != nil {
//	    // drop: not parseable structured data
//	}
//	if env.IsHandshake() {
//	    // channel establishment path
//	}
//	msg, err := protocol.DecodeMessage(env.Service, []byte(env.Payload))
package protocol
