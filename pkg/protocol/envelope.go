package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope errors.
var (
	ErrEnvelopeTooLarge = errors.New("protocol: envelope too large")
	ErrMissingService   = errors.New("protocol: envelope missing service name")
)

// Envelope is the wire unit exchanged between host and creative. Every field
// is present on every message; the payload's internal shape depends on the
// service.
type Envelope struct {
	// Channel is the per-slot channel token. Empty only on messages that
	// precede channel establishment.
	Channel string `json:"c,omitempty"`

	// Sentinel is the slot identifier. Present at the top level only on
	// handshake messages; standard messages carry it inside the payload.
	Sentinel string `json:"e,omitempty"`

	// Endpoint is the sender's identity token. The creative validates it
	// against the value exposed at iframe creation.
	Endpoint uint32 `json:"i"`

	// Payload is the service-specific application data, itself JSON text
	// for standard messages.
	Payload string `json:"p,omitempty"`

	// Service names the payload's service.
	Service Service `json:"s"`
}

// IsHandshake reports whether the envelope is a channel-establishment
// message, identified by the sentinel carried at the top level.
func (e *Envelope) IsHandshake() bool {
	return e.Sentinel != ""
}

// EncodeEnvelope encodes an envelope for posting to the peer window.
func EncodeEnvelope(env *Envelope) ([]byte, error) {
	if env.Service == "" {
		return nil, ErrMissingService
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode envelope: %w", err)
	}
	return data, nil
}

// DecodeEnvelope decodes a raw inbound message into an envelope. A decode
// failure means the message is not parseable structured data and must be
// dropped by the caller.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	if len(data) > MaxEnvelopeSize {
		return nil, ErrEnvelopeTooLarge
	}

	env := &Envelope{}
	if err := json.Unmarshal(data, env); err != nil {
		return nil, fmt.Errorf("protocol: decode envelope: %w", err)
	}
	if env.Service == "" && !env.IsHandshake() {
		return nil, ErrMissingService
	}
	return env, nil
}
