// Package geometry translates visibility observations into the geometry
// format expected by the safeframe creative client library.
//
// A visibility observation carries two rectangles: the root viewport and the
// slot element's bounding box, plus the element's z-index style value. The
// translator turns an observation into a Geometry snapshot:
//
//   - Window coordinates: the element's bounding rect.
//   - Frame coordinates: the element's bounding rect (host and frame share
//     the element's box model).
//   - Allowed expansion: the root viewport rect; the creative may expand up
//     to the viewport bounds.
//   - xInView / yInView: per-axis view fractions in [0, 1].
//
// Geometry snapshots serialize to the creative's flattened key format
// (windowCoords_t, frameCoords_t, allowedExpansion_t, xInView, yInView,
// styleZIndex) as JSON text suitable for embedding in an envelope payload.
package geometry
