package host

import (
	"github.com/safehost-dev/safehost/pkg/geometry"
)

// SlotElement is the host page's element for one ad placement. Creation and
// layout of the element are external; the session consumes it as an abstract
// capability.
type SlotElement interface {
	// Size returns the element's current rendered dimensions in pixels.
	Size() (height, width int)

	// AttemptResize asks the page to resize the element. done is invoked
	// exactly once, possibly on another goroutine, with a nil error when the
	// page reports the resize as applied. No retry or cancellation exists;
	// callers must not assume ordering between overlapping attempts.
	AttemptResize(height, width int, done func(err error))

	// ResetPendingResize abandons a resize whose reported outcome did not
	// take effect on the element.
	ResetPendingResize()

	// Frame returns the creative iframe once the element has materialized
	// it. ok is false before then.
	Frame() (frame Frame, ok bool)
}

// Frame is the creative's iframe surface, bound to a session lazily at
// channel establishment.
type Frame interface {
	// SetSize mirrors the slot element's dimensions onto the iframe.
	SetSize(height, width int)

	// Post delivers an encoded envelope to the creative window.
	Post(data []byte) error
}

// VisibilityObserver is the external visibility-observation mechanism,
// consumed only through its reported rectangles and fractions.
type VisibilityObserver interface {
	// Subscribe registers fn to receive observations for the slot element
	// and returns a cancel function. fn may be invoked on any goroutine.
	Subscribe(fn func(geometry.Observation)) (cancel func())
}

// ImpressionSource owns a slot's delayed-impression URL.
type ImpressionSource interface {
	// TakePending returns the stored URL and clears it. ok is false when no
	// impression is pending. Consume-once: a second call returns false until
	// a new URL is stored.
	TakePending() (url string, ok bool)
}

// Collaborators bundles the page-side capabilities one session consumes.
// Slot is required; Visibility and Impressions are optional.
type Collaborators struct {
	Slot        SlotElement
	Visibility  VisibilityObserver
	Impressions ImpressionSource
}
