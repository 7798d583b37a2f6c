package bridge

import (
	"encoding/json"

	"github.com/safehost-dev/safehost/pkg/geometry"
	"github.com/safehost-dev/safehost/pkg/host"
)

// Shim message kinds. The "bridge" key distinguishes shim control traffic
// from anything else; creative envelopes travel opaquely inside the data
// field of a "creative" message and are never inspected by the shim layer.
const (
	// Shim to bridge.
	kindRegisterSlot = "register_slot"
	kindFrameReady   = "frame_ready"
	kindObservation  = "observation"
	kindImpression   = "impression"
	kindSize         = "size"
	kindResizeResult = "resize_result"
	kindCreative     = "creative"

	// Bridge to shim.
	kindRegistered  = "registered"
	kindResize      = "resize"
	kindResetResize = "reset_resize"
	kindFrameSize   = "frame_size"
	kindPost        = "post"
)

// shimMessage is the single wire shape exchanged with the page shim. Kind
// selects which of the remaining fields are meaningful.
type shimMessage struct {
	Kind string `json:"bridge"`

	// Slot scopes the message to one placement. Present on everything except
	// resize_result, which correlates by Seq alone.
	Slot string `json:"slot,omitempty"`

	// Seq correlates a resize command with its result.
	Seq uint64 `json:"seq,omitempty"`

	Height int `json:"height,omitempty"`
	Width  int `json:"width,omitempty"`

	// Origin is the creative postMessage origin, relayed verbatim so the
	// router's origin check sees what the page saw.
	Origin string `json:"origin,omitempty"`

	// Data carries an encoded protocol envelope (creative, post).
	Data json.RawMessage `json:"data,omitempty"`

	// Error is the shim's failure report on resize_result, empty on success.
	Error string `json:"error,omitempty"`

	// Observation is the relayed visibility report.
	Observation *geometry.Observation `json:"observation,omitempty"`

	// URL is a delayed-impression URL (impression).
	URL string `json:"url,omitempty"`

	// Attributes is the creative-facing registration block (registered).
	Attributes *host.RegistrationAttributes `json:"attributes,omitempty"`
}
