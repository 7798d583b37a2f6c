package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Payload errors.
var (
	ErrPayloadTooLarge = errors.New("protocol: payload too large")
)

// Message is a decoded inbound service payload. The implementations form the
// closed set of services the host understands; dispatch switches over the
// concrete types so an unhandled service is a visible gap, not a silent
// default.
type Message interface {
	// Slot returns the slot identifier carried inside the payload.
	Slot() string

	message()
}

// ExpandRequest asks the host to grow the slot by per-edge pixel deltas.
type ExpandRequest struct {
	Sentinel     string  `json:"sentinel"`
	UID          uint32  `json:"uid"`
	ExpandTop    float64 `json:"expand_t"`
	ExpandRight  float64 `json:"expand_r"`
	ExpandBottom float64 `json:"expand_b"`
	ExpandLeft   float64 `json:"expand_l"`
	Push         bool    `json:"push"`
}

func (m *ExpandRequest) Slot() string { return m.Sentinel }
func (*ExpandRequest) message()       {}

// HeightDelta returns the requested growth of the slot's height in pixels.
func (m *ExpandRequest) HeightDelta() int {
	return int(m.ExpandTop + m.ExpandBottom)
}

// WidthDelta returns the requested growth of the slot's width in pixels.
func (m *ExpandRequest) WidthDelta() int {
	return int(m.ExpandLeft + m.ExpandRight)
}

// CollapseRequest asks the host to restore the slot's initial size.
type CollapseRequest struct {
	Sentinel string `json:"sentinel"`
	UID      uint32 `json:"uid"`
}

func (m *CollapseRequest) Slot() string { return m.Sentinel }
func (*CollapseRequest) message()       {}

// RegisterDone is the creative's registration-complete notification. Its
// dimensions become the session's collapse target.
type RegisterDone struct {
	Sentinel string `json:"sentinel"`
	Width    int    `json:"w"`
	Height   int    `json:"h"`
}

func (m *RegisterDone) Slot() string { return m.Sentinel }
func (*RegisterDone) message()       {}

// CreativeGeometryUpdate is the creative-initiated fluid-height resize
// request. Height is kept raw: creatives have been observed sending
// non-numeric values, which the host must answer with a forced collapse.
type CreativeGeometryUpdate struct {
	Sentinel string          `json:"sentinel"`
	UID      uint32          `json:"uid"`
	Height   json.RawMessage `json:"height,omitempty"`
}

func (m *CreativeGeometryUpdate) Slot() string { return m.Sentinel }
func (*CreativeGeometryUpdate) message()       {}

// RequestedHeight parses the requested height as a whole number of pixels.
// It returns ok=false when the field is absent or non-numeric.
func (m *CreativeGeometryUpdate) RequestedHeight() (int, bool) {
	raw := string(m.Height)
	if raw == "" || raw == "null" {
		return 0, false
	}
	// Creatives send the height both as a JSON number and as a quoted string.
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	h, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return h, true
}

// UnknownMessage preserves routing for services outside the closed set. The
// session treats it as a no-op.
type UnknownMessage struct {
	Sentinel string  `json:"sentinel"`
	Service  Service `json:"-"`
}

func (m *UnknownMessage) Slot() string { return m.Sentinel }
func (*UnknownMessage) message()       {}

// DecodeMessage decodes a nested payload into the typed variant for svc.
// Unrecognized services decode to UnknownMessage so the sentinel remains
// available for routing.
func DecodeMessage(svc Service, payload []byte) (Message, error) {
	if len(payload) > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}

	var msg Message
	switch svc {
	case ServiceExpandRequest:
		msg = &ExpandRequest{}
	case ServiceCollapseRequest:
		msg = &CollapseRequest{}
	case ServiceRegisterDone:
		msg = &RegisterDone{}
	case ServiceCreativeGeometryUpdate:
		msg = &CreativeGeometryUpdate{}
	default:
		msg = &UnknownMessage{Service: svc}
	}

	if err := json.Unmarshal(payload, msg); err != nil {
		return nil, fmt.Errorf("protocol: decode %s payload: %w", svc, err)
	}
	return msg, nil
}

// Outbound payloads. These are composed by the host and serialized into the
// envelope's payload field.

// ConnectNotice is the host's first payload after channel establishment.
type ConnectNotice struct {
	UID      uint32 `json:"uid"`
	Geometry string `json:"geometry,omitempty"`
}

// GeometryUpdate pushes a fresh geometry snapshot to the creative.
type GeometryUpdate struct {
	UID         uint32 `json:"uid"`
	NewGeometry string `json:"newGeometry"`
}

// ResizeResponse is the full-shape answer to expand and collapse requests.
// Both the verified-success and the dimension-mismatch outcomes use this
// shape; only Success differs.
type ResizeResponse struct {
	UID          uint32  `json:"uid"`
	Success      bool    `json:"success"`
	NewGeometry  string  `json:"newGeometry"`
	ExpandTop    float64 `json:"expand_t"`
	ExpandRight  float64 `json:"expand_r"`
	ExpandBottom float64 `json:"expand_b"`
	ExpandLeft   float64 `json:"expand_l"`
	Push         bool    `json:"push"`
}

// ResizeResult is the minimal answer to an outright-rejected resize attempt.
// No geometry fields are present.
type ResizeResult struct {
	UID     uint32 `json:"uid"`
	Success bool   `json:"success"`
}

// ResizeComplete is the fixed notification posted after a successful fluid
// resize.
type ResizeComplete struct {
	UID uint32 `json:"uid"`
}

// EncodePayload serializes an outbound payload as envelope payload text.
func EncodePayload(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("protocol: encode payload: %w", err)
	}
	return string(data), nil
}
