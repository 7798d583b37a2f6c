package geometry

// Rect is an axis-aligned rectangle in CSS pixel coordinates.
// Edges follow the DOMRect convention: Top/Left are the near edges,
// Right/Bottom the far edges.
type Rect struct {
	Top    float64 `json:"t"`
	Right  float64 `json:"r"`
	Bottom float64 `json:"b"`
	Left   float64 `json:"l"`
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float64 {
	return r.Right - r.Left
}

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float64 {
	return r.Bottom - r.Top
}

// isDegenerate reports whether the rectangle has zero or negative extent on
// either axis. The view-fraction formula is undefined for such rectangles.
func (r Rect) isDegenerate() bool {
	return r.Width() <= 0 || r.Height() <= 0
}
