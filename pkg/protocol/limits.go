package protocol

// Wire limits. Envelopes beyond these bounds are dropped before decoding.
const (
	// MaxEnvelopeSize is the maximum size of an inbound envelope in bytes.
	MaxEnvelopeSize = 64 * 1024

	// MaxPayloadSize is the maximum size of a nested payload in bytes.
	MaxPayloadSize = 48 * 1024
)
