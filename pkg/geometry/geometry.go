package geometry

import "encoding/json"

// Geometry is one slot's position and visibility snapshot in the format the
// creative client library consumes.
type Geometry struct {
	// WindowCoords is the slot's bounding rect in window coordinates.
	WindowCoords Rect

	// FrameCoords is the creative frame's bounding rect. The frame fills the
	// slot element, so this equals WindowCoords.
	FrameCoords Rect

	// AllowedExpansion is the rect the creative may expand into. Set to the
	// root viewport rect at translation time.
	AllowedExpansion Rect

	// StyleZIndex is the slot element's computed z-index style value.
	StyleZIndex string

	// XInView is the fraction of the slot's horizontal extent inside the
	// viewport, in [0, 1].
	XInView float64

	// YInView is the fraction of the slot's vertical extent inside the
	// viewport, in [0, 1].
	YInView float64
}

// wireGeometry is the flattened key layout the creative expects.
type wireGeometry struct {
	WindowCoordsT float64 `json:"windowCoords_t"`
	WindowCoordsR float64 `json:"windowCoords_r"`
	WindowCoordsB float64 `json:"windowCoords_b"`
	WindowCoordsL float64 `json:"windowCoords_l"`

	FrameCoordsT float64 `json:"frameCoords_t"`
	FrameCoordsR float64 `json:"frameCoords_r"`
	FrameCoordsB float64 `json:"frameCoords_b"`
	FrameCoordsL float64 `json:"frameCoords_l"`

	StyleZIndex string `json:"styleZIndex"`

	AllowedExpansionT float64 `json:"allowedExpansion_t"`
	AllowedExpansionR float64 `json:"allowedExpansion_r"`
	AllowedExpansionB float64 `json:"allowedExpansion_b"`
	AllowedExpansionL float64 `json:"allowedExpansion_l"`

	XInView float64 `json:"xInView"`
	YInView float64 `json:"yInView"`
}

// Serialize encodes the geometry as the flattened JSON text embedded in
// envelope payloads.
func (g *Geometry) Serialize() (string, error) {
	w := wireGeometry{
		WindowCoordsT: g.WindowCoords.Top,
		WindowCoordsR: g.WindowCoords.Right,
		WindowCoordsB: g.WindowCoords.Bottom,
		WindowCoordsL: g.WindowCoords.Left,

		FrameCoordsT: g.FrameCoords.Top,
		FrameCoordsR: g.FrameCoords.Right,
		FrameCoordsB: g.FrameCoords.Bottom,
		FrameCoordsL: g.FrameCoords.Left,

		StyleZIndex: g.StyleZIndex,

		AllowedExpansionT: g.AllowedExpansion.Top,
		AllowedExpansionR: g.AllowedExpansion.Right,
		AllowedExpansionB: g.AllowedExpansion.Bottom,
		AllowedExpansionL: g.AllowedExpansion.Left,

		XInView: g.XInView,
		YInView: g.YInView,
	}

	data, err := json.Marshal(w)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
