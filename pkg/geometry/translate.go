package geometry

// Observation is one visibility-change report for a slot element, as
// delivered by the external visibility-observation mechanism.
type Observation struct {
	// RootBounds is the root viewport rectangle.
	RootBounds Rect

	// BoundingClientRect is the slot element's bounding rectangle.
	BoundingClientRect Rect

	// StyleZIndex is the element's current z-index style value.
	StyleZIndex string
}

// Translate converts a visibility observation into the creative's geometry
// format. The allowed-expansion rect is set to the root viewport: the
// creative may expand up to the viewport bounds.
//
// Degenerate (zero-extent) element axes report a view fraction of 0; the
// fraction formula is undefined there and must not divide.
func Translate(obs Observation) Geometry {
	elem := obs.BoundingClientRect
	root := obs.RootBounds

	return Geometry{
		WindowCoords:     elem,
		FrameCoords:      elem,
		AllowedExpansion: root,
		StyleZIndex:      obs.StyleZIndex,
		XInView:          axisFraction(root.Left, root.Right, elem.Left, elem.Right),
		YInView:          axisFraction(root.Top, root.Bottom, elem.Top, elem.Bottom),
	}
}

// axisFraction measures the portion of the element's extent on one axis that
// lies within the viewport, clamped to [0, 1]:
//
//	overlapLength = elementEnd <= viewportEnd ? viewportEnd - elementStart : elementEnd
//	fraction      = clamp(overlapLength / (elementEnd - elementStart), 0, 1)
func axisFraction(viewportStart, viewportEnd, elementStart, elementEnd float64) float64 {
	extent := elementEnd - elementStart
	if extent <= 0 {
		// Undefined for zero-size elements; guard instead of dividing.
		return 0
	}

	overlap := elementEnd
	if elementEnd <= viewportEnd {
		overlap = viewportEnd - elementStart
	}

	fraction := overlap / extent
	if fraction < 0 {
		return 0
	}
	if fraction > 1 {
		return 1
	}
	return fraction
}
